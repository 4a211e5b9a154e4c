package coding

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/surveyforge/themecode/coding/fileutils"
)

// Codebook is a cross-run record of theme labels and definitions, excerpted
// into extraction prompts so repeated runs converge on consistent labels.
type Codebook struct {
	Version int             `json:"version"`
	Entries []CodebookEntry `json:"entries"`
	Meta    map[string]any  `json:"meta,omitempty"`
}

// CodebookEntry is one theme label seen across extraction runs.
type CodebookEntry struct {
	Label      string   `json:"label"`
	Definition string   `json:"definition,omitempty"`
	Count      int      `json:"count"`
	Questions  []string `json:"questions,omitempty"`
}

// LoadCodebook reads a codebook JSON file. A missing file yields an empty
// codebook.
func LoadCodebook(path string) (Codebook, error) {
	if path == "" {
		return Codebook{}, errors.New("LoadCodebook: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Codebook{Version: 1, Entries: []CodebookEntry{}}, nil
		}
		return Codebook{}, fmt.Errorf("LoadCodebook: read file: %w", err)
	}
	var cb Codebook
	if err := fileutils.UnmarshalJSON(b, &cb); err != nil {
		return Codebook{}, fmt.Errorf("LoadCodebook: unmarshal: %w", err)
	}
	if cb.Version == 0 {
		cb.Version = 1
	}
	if cb.Entries == nil {
		cb.Entries = []CodebookEntry{}
	}
	return cb, nil
}

// SaveCodebook writes the codebook JSON file atomically.
func SaveCodebook(path string, cb Codebook) error {
	if path == "" {
		return errors.New("SaveCodebook: path is empty")
	}
	if err := fileutils.WriteJSONFile(path, cb, true); err != nil {
		return fmt.Errorf("SaveCodebook: write: %w", err)
	}
	return nil
}

// MergeCodebook folds one question's themes into the codebook, bumping counts
// and preferring longer definitions, and returns the touched label keys.
func MergeCodebook(cb *Codebook, question string, themes []Theme) []string {
	if cb == nil {
		return nil
	}
	if cb.Version == 0 {
		cb.Version = 1
	}
	if cb.Entries == nil {
		cb.Entries = []CodebookEntry{}
	}

	index := make(map[string]int, len(cb.Entries))
	for i := range cb.Entries {
		key := normalizeLabelKey(cb.Entries[i].Label)
		if key != "" {
			index[key] = i
		}
	}

	touched := make(map[string]struct{}, len(themes))
	for _, th := range themes {
		key := normalizeLabelKey(th.ThemeLabel)
		if key == "" {
			continue
		}
		if _, ok := touched[key]; ok {
			continue
		}
		touched[key] = struct{}{}

		def := strings.TrimSpace(th.Definition)
		if i, ok := index[key]; ok {
			e := &cb.Entries[i]
			e.Count++
			if def != "" && len(def) > len(strings.TrimSpace(e.Definition)) {
				e.Definition = def
			}
			e.Questions = appendUniqueString(e.Questions, question)
			continue
		}

		cb.Entries = append(cb.Entries, CodebookEntry{
			Label:      strings.TrimSpace(th.ThemeLabel),
			Definition: def,
			Count:      1,
			Questions:  appendUniqueString(nil, question),
		})
		index[key] = len(cb.Entries) - 1
	}

	// Keep stable ordering: highest count first, then label.
	sort.SliceStable(cb.Entries, func(i, j int) bool {
		if cb.Entries[i].Count != cb.Entries[j].Count {
			return cb.Entries[i].Count > cb.Entries[j].Count
		}
		return strings.ToLower(cb.Entries[i].Label) < strings.ToLower(cb.Entries[j].Label)
	})

	keys := make([]string, 0, len(touched))
	for key := range touched {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CullCodebook removes entries with Count < minCount.
func CullCodebook(cb *Codebook, minCount int) {
	if cb == nil || minCount <= 1 {
		return
	}
	out := cb.Entries[:0]
	for _, e := range cb.Entries {
		if e.Count >= minCount {
			out = append(out, e)
		}
	}
	cb.Entries = out
}

// CodebookExcerpt renders the top labels as prompt lines. maxLabels == 0
// disables the excerpt.
func CodebookExcerpt(cb Codebook, maxLabels int) string {
	if maxLabels == 0 || len(cb.Entries) == 0 {
		return ""
	}
	entries := cb.Entries
	if maxLabels > 0 && len(entries) > maxLabels {
		entries = entries[:maxLabels]
	}
	var b strings.Builder
	for _, e := range entries {
		label := strings.TrimSpace(e.Label)
		if label == "" {
			continue
		}
		def := strings.TrimSpace(e.Definition)
		if def == "" {
			fmt.Fprintf(&b, "- %s\n", label)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", label, def)
	}
	return b.String()
}

func normalizeLabelKey(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	return strings.ToLower(label)
}

func appendUniqueString(in []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return in
	}
	for _, v := range in {
		if v == s {
			return in
		}
	}
	return append(in, s)
}
