package coding

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
)

func exportResultSet() *ResultSet {
	rs := NewResultSet()
	rs.SetThemes("q1", []Theme{
		{
			ThemeLabel:             "Price",
			Definition:             "Cost concerns.",
			RepresentativeKeywords: []string{"expensive", "too; pricey"},
			ParticipantID:          []string{"r1", "r2"},
		},
		{
			ThemeLabel:    "Service",
			ParticipantID: []string{"r2", "r3"},
		},
	})
	rs.Fail("q2", "boom", "")
	return rs
}

func TestWriteLongCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteLongCSV(&buf, exportResultSet()); err != nil {
		t.Fatalf("WriteLongCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%v", rows)
	}
	if rows[0][0] != "Question" || rows[0][4] != "ParticipantIDs" {
		t.Fatalf("header=%v", rows[0])
	}
	if rows[1][1] != "Price" || rows[1][4] != "r1;r2" {
		t.Fatalf("row=%v", rows[1])
	}
	if rows[1][3] != "expensive, too pricey" {
		t.Fatalf("keywords should drop semicolons: %q", rows[1][3])
	}
	for _, r := range rows[1:] {
		if r[0] == "q2" {
			t.Fatalf("failed question exported: %v", r)
		}
	}
}

func TestWriteWideCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteWideCSV(&buf, exportResultSet()); err != nil {
		t.Fatalf("WriteWideCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	header := rows[0]
	if header[0] != "ParticipantID" {
		t.Fatalf("header=%v", header)
	}
	if header[1] != "q1_Price" || header[2] != "q1_Service" {
		t.Fatalf("header=%v", header)
	}

	// Participants sorted: r1, r2, r3.
	if len(rows) != 4 {
		t.Fatalf("rows=%v", rows)
	}
	byID := map[string][]string{}
	for _, r := range rows[1:] {
		byID[r[0]] = r
	}
	if got := byID["r1"]; got[1] != "1" || got[2] != "0" {
		t.Fatalf("r1=%v", got)
	}
	if got := byID["r2"]; got[1] != "1" || got[2] != "1" {
		t.Fatalf("r2=%v", got)
	}
	if got := byID["r3"]; got[1] != "0" || got[2] != "1" {
		t.Fatalf("r3=%v", got)
	}
}

func TestWriteWideCSV_DuplicateColumnNames(t *testing.T) {
	t.Parallel()

	rs := NewResultSet()
	rs.SetThemes("q1", []Theme{
		{ThemeLabel: "Same", ParticipantID: []string{"r1"}},
		{ThemeLabel: "Same", ParticipantID: []string{"r2"}},
	})

	var buf bytes.Buffer
	if err := WriteWideCSV(&buf, rs); err != nil {
		t.Fatalf("WriteWideCSV: %v", err)
	}
	header := strings.Split(strings.SplitN(buf.String(), "\n", 2)[0], ",")
	if header[1] != "q1_Same" || header[2] != "q1_Same_2" {
		t.Fatalf("header=%v", header)
	}
}
