package coding

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/surveyforge/themecode/coding/fileutils"
)

// ResultSet maps question column names to their coding results. A question's
// entry is replaced wholesale by a new extraction run and mutated batch by
// batch by applied edits.
type ResultSet struct {
	Version   int                       `json:"version"`
	Questions map[string]QuestionResult `json:"questions"`
}

// NewResultSet returns an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{Version: 1, Questions: map[string]QuestionResult{}}
}

// SetThemes stores a successful result for a question, overwriting any prior
// result (including failure markers). Themes without IDs get one assigned.
func (s *ResultSet) SetThemes(question string, themes []Theme) {
	if s.Questions == nil {
		s.Questions = map[string]QuestionResult{}
	}
	out := append([]Theme(nil), themes...)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = NewThemeID()
		}
	}
	s.Questions[question] = QuestionResult{Themes: out}
}

// Fail records a failure marker for a question. Either errMsg (upstream
// error) or rawText (unparsed model output) should be non-empty.
func (s *ResultSet) Fail(question string, errMsg string, rawText string) {
	if s.Questions == nil {
		s.Questions = map[string]QuestionResult{}
	}
	s.Questions[question] = QuestionResult{Failed: true, Error: errMsg, RawText: rawText}
}

// Themes returns the theme list for a question, or false when the question is
// missing or its result is a failure marker.
func (s *ResultSet) Themes(question string) ([]Theme, bool) {
	if s == nil || s.Questions == nil {
		return nil, false
	}
	r, ok := s.Questions[question]
	if !ok || !r.OK() {
		return nil, false
	}
	return r.Themes, true
}

// Clear removes one question's result.
func (s *ResultSet) Clear(question string) {
	if s != nil && s.Questions != nil {
		delete(s.Questions, question)
	}
}

// ClearAll removes every result.
func (s *ResultSet) ClearAll() {
	if s != nil {
		s.Questions = map[string]QuestionResult{}
	}
}

// QuestionNames returns the stored question columns in sorted order.
func (s *ResultSet) QuestionNames() []string {
	if s == nil || len(s.Questions) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Questions))
	for q := range s.Questions {
		names = append(names, q)
	}
	sort.Strings(names)
	return names
}

// LoadResultSet reads a result set JSON file. A missing file yields an empty
// set so pipeline stages can be run in any order.
func LoadResultSet(path string) (*ResultSet, error) {
	if path == "" {
		return nil, errors.New("LoadResultSet: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewResultSet(), nil
		}
		return nil, fmt.Errorf("LoadResultSet: read file: %w", err)
	}
	rs := NewResultSet()
	if err := fileutils.UnmarshalJSON(b, rs); err != nil {
		return nil, fmt.Errorf("LoadResultSet: unmarshal: %w", err)
	}
	if rs.Version == 0 {
		rs.Version = 1
	}
	if rs.Questions == nil {
		rs.Questions = map[string]QuestionResult{}
	}
	for q, r := range rs.Questions {
		if !r.OK() {
			continue
		}
		changed := false
		for i := range r.Themes {
			if r.Themes[i].ID == "" {
				r.Themes[i].ID = NewThemeID()
				changed = true
			}
		}
		if changed {
			rs.Questions[q] = r
		}
	}
	return rs, nil
}

// SaveResultSet writes the result set JSON file atomically.
func SaveResultSet(path string, rs *ResultSet) error {
	if path == "" {
		return errors.New("SaveResultSet: path is empty")
	}
	if rs == nil {
		return errors.New("SaveResultSet: result set is nil")
	}
	if err := fileutils.WriteJSONFile(path, rs, true); err != nil {
		return fmt.Errorf("SaveResultSet: write: %w", err)
	}
	return nil
}
