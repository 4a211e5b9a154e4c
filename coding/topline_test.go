package coding

import (
	"strings"
	"testing"
)

func toplineDataset(t *testing.T) *Dataset {
	t.Helper()
	path := writeCSV(t, strings.Join([]string{
		"id,q_rating,weight,region",
		"r1,Good,2.0,North",
		"r2,Good,1.0,South",
		"r3,Bad,1.0,North",
		"r4,n/a,1.0,South",
		"r5,Bad,bogus,",
	}, "\n")+"\n")
	d, err := LoadDataset(path, "")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	return d
}

func TestComputeTopline_Weighted(t *testing.T) {
	t.Parallel()

	d := toplineDataset(t)
	table, err := ComputeTopline(d, "q_rating", ToplineOptions{WeightColumn: "weight"})
	if err != nil {
		t.Fatalf("ComputeTopline: %v", err)
	}

	// r4 is a placeholder; bogus weight counts as 1.0. Base = 2+1+1+1 = 5.
	if table.Base != 5.0 {
		t.Fatalf("Base=%v", table.Base)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows=%v", table.Rows)
	}
	if table.Rows[0].Value != "Good" || table.Rows[0].Weighted != 3.0 || table.Rows[0].Percent != 60.0 {
		t.Fatalf("row0=%+v", table.Rows[0])
	}
	if table.Rows[1].Value != "Bad" || table.Rows[1].Weighted != 2.0 || table.Rows[1].Percent != 40.0 {
		t.Fatalf("row1=%+v", table.Rows[1])
	}
}

func TestComputeTopline_Segments(t *testing.T) {
	t.Parallel()

	d := toplineDataset(t)
	table, err := ComputeTopline(d, "q_rating", ToplineOptions{SplitColumn: "region"})
	if err != nil {
		t.Fatalf("ComputeTopline: %v", err)
	}

	// Blank region on r5 maps to the "(blank)" segment.
	if len(table.SegmentNames) != 3 {
		t.Fatalf("segments=%v", table.SegmentNames)
	}
	found := false
	for _, s := range table.SegmentNames {
		if s == "(blank)" {
			found = true
		}
	}
	if !found {
		t.Fatalf("segments=%v", table.SegmentNames)
	}
	if table.SegmentBases["North"] != 2.0 {
		t.Fatalf("north base=%v", table.SegmentBases["North"])
	}

	var good ToplineRow
	for _, r := range table.Rows {
		if r.Value == "Good" {
			good = r
		}
	}
	if good.Segments["North"].Percent != 50.0 {
		t.Fatalf("good north=%+v", good.Segments["North"])
	}
}

func TestComputeTopline_UnknownColumns(t *testing.T) {
	t.Parallel()

	d := toplineDataset(t)
	if _, err := ComputeTopline(d, "missing", ToplineOptions{}); err == nil {
		t.Fatalf("expected error for unknown question column")
	}
	if _, err := ComputeTopline(d, "q_rating", ToplineOptions{WeightColumn: "missing"}); err == nil {
		t.Fatalf("expected error for unknown weight column")
	}
	if _, err := ComputeTopline(d, "q_rating", ToplineOptions{SplitColumn: "missing"}); err == nil {
		t.Fatalf("expected error for unknown split column")
	}
}

func TestParseWeight(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want float64
	}{
		{in: "2.5", want: 2.5},
		{in: " 1 ", want: 1.0},
		{in: "", want: 1.0},
		{in: "abc", want: 1.0},
		{in: "-3", want: 1.0},
		{in: "0", want: 1.0},
		{in: "NaN", want: 1.0},
	}
	for _, tc := range cases {
		if got := parseWeight(tc.in); got != tc.want {
			t.Fatalf("parseWeight(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestBuildToplineSummaryInput_Budget(t *testing.T) {
	t.Parallel()

	d := toplineDataset(t)
	table, err := ComputeTopline(d, "q_rating", ToplineOptions{})
	if err != nil {
		t.Fatalf("ComputeTopline: %v", err)
	}

	full := BuildToplineSummaryInput([]ToplineTable{table}, 0)
	if !strings.Contains(full, "table: q_rating") {
		t.Fatalf("got=%q", full)
	}
	if !strings.Contains(full, "- Good:") {
		t.Fatalf("got=%q", full)
	}

	tight := BuildToplineSummaryInput([]ToplineTable{table, table}, len(full)+1)
	if !strings.Contains(tight, "[tables truncated]") {
		t.Fatalf("got=%q", tight)
	}
}
