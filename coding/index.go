package coding

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/surveyforge/themecode/coding/fileutils"
)

// ResultIndexRecord is a single row in results.jsonl: a quick-scan summary of
// one question's coding outcome without opening the result file.
type ResultIndexRecord struct {
	Question string `json:"question"`

	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`

	ThemeCount   int     `json:"theme_count"`
	UniverseSize int     `json:"universe_size"`
	MeanCoverage float64 `json:"mean_coverage_percent"`

	ResultPath string `json:"result_path,omitempty"`
}

// BuildResultIndexRecord summarizes one question's result. universe may be
// nil when the dataset is unavailable; coverage then falls back to the union
// of assigned IDs.
func BuildResultIndexRecord(question string, r QuestionResult, universe []string, resultPath string) ResultIndexRecord {
	rec := ResultIndexRecord{
		Question:   question,
		ResultPath: resultPath,
	}
	if !r.OK() {
		rec.Failed = true
		rec.Error = fileutils.Truncate(strings.TrimSpace(r.Error), 400)
		return rec
	}

	rec.ThemeCount = len(r.Themes)
	rec.UniverseSize = len(distinctIDs(universe))
	if len(r.Themes) > 0 {
		den := CoverageDenominator(universe, r.Themes)
		sum := 0.0
		for _, t := range r.Themes {
			sum += CoveragePercent(t, den)
		}
		rec.MeanCoverage = round1(sum / float64(len(r.Themes)))
	}
	return rec
}

// WriteResultsIndex writes index records as JSONL, atomically.
func WriteResultsIndex(path string, records []ResultIndexRecord) error {
	if path == "" {
		return errors.New("WriteResultsIndex: path is empty")
	}
	var b strings.Builder
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return err
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return fileutils.WriteFileAtomic(path, []byte(b.String()), 0o644)
}
