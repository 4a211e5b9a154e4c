package coding

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildResultIndexRecord_Success(t *testing.T) {
	t.Parallel()

	r := QuestionResult{Themes: []Theme{
		{ThemeLabel: "A", ParticipantID: []string{"p1", "p2"}},
		{ThemeLabel: "B", ParticipantID: []string{"p3"}},
	}}
	universe := []string{"p1", "p2", "p3", "p4"}

	rec := BuildResultIndexRecord("q1", r, universe, "out/results.json")
	if rec.Failed || rec.Error != "" {
		t.Fatalf("rec=%+v", rec)
	}
	if rec.ThemeCount != 2 || rec.UniverseSize != 4 {
		t.Fatalf("rec=%+v", rec)
	}
	// Coverage: 50.0 and 25.0, mean 37.5.
	if rec.MeanCoverage != 37.5 {
		t.Fatalf("MeanCoverage=%v", rec.MeanCoverage)
	}
}

func TestBuildResultIndexRecord_Failure(t *testing.T) {
	t.Parallel()

	rec := BuildResultIndexRecord("q1", QuestionResult{Failed: true, Error: "boom"}, nil, "")
	if !rec.Failed || rec.Error != "boom" {
		t.Fatalf("rec=%+v", rec)
	}
	if rec.ThemeCount != 0 || rec.MeanCoverage != 0 {
		t.Fatalf("rec=%+v", rec)
	}
}

func TestWriteResultsIndex_JSONL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.jsonl")
	records := []ResultIndexRecord{
		{Question: "q1", ThemeCount: 2},
		{Question: "q2", Failed: true, Error: "boom"},
	}
	if err := WriteResultsIndex(path, records); err != nil {
		t.Fatalf("WriteResultsIndex: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var got []ResultIndexRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r ResultIndexRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("got=%v", got)
	}
	if got[0].Question != "q1" || got[1].Error != "boom" {
		t.Fatalf("got=%v", got)
	}
}
