package coding

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteLongCSV writes one row per (question, theme): keywords comma-joined
// with semicolons stripped, participant IDs semicolon-joined. Failed
// questions are omitted.
func WriteLongCSV(w io.Writer, rs *ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Question", "ThemeLabel", "Definition", "Keywords", "ParticipantIDs"}); err != nil {
		return fmt.Errorf("WriteLongCSV: header: %w", err)
	}

	for _, q := range rs.QuestionNames() {
		themes, ok := rs.Themes(q)
		if !ok {
			continue
		}
		for _, t := range themes {
			row := []string{
				q,
				t.ThemeLabel,
				t.Definition,
				joinKeywords(t.RepresentativeKeywords),
				strings.Join(t.ParticipantID, ";"),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("WriteLongCSV: row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// joinKeywords strips semicolons (the wide-format ID separator) before
// comma-joining, so the two delimiters never collide downstream.
func joinKeywords(keywords []string) string {
	parts := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(strings.ReplaceAll(k, ";", ""))
		if k != "" {
			parts = append(parts, k)
		}
	}
	return strings.Join(parts, ", ")
}

// WriteWideCSV writes one row per distinct participant ID with a 0/1 column
// per {question}_{themeLabel}. Duplicate column names get a numeric suffix.
func WriteWideCSV(w io.Writer, rs *ResultSet) error {
	type col struct {
		name    string
		members map[string]struct{}
	}

	var cols []col
	nameCount := map[string]int{}
	participantSet := map[string]struct{}{}

	for _, q := range rs.QuestionNames() {
		themes, ok := rs.Themes(q)
		if !ok {
			continue
		}
		for _, t := range themes {
			name := q + "_" + t.ThemeLabel
			nameCount[name]++
			if n := nameCount[name]; n > 1 {
				name = fmt.Sprintf("%s_%d", name, n)
			}
			members := map[string]struct{}{}
			for _, id := range distinctIDs(t.ParticipantID) {
				members[id] = struct{}{}
				participantSet[id] = struct{}{}
			}
			cols = append(cols, col{name: name, members: members})
		}
	}

	participants := make([]string, 0, len(participantSet))
	for id := range participantSet {
		participants = append(participants, id)
	}
	sort.Strings(participants)

	cw := csv.NewWriter(w)
	header := make([]string, 0, len(cols)+1)
	header = append(header, "ParticipantID")
	for _, c := range cols {
		header = append(header, c.name)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("WriteWideCSV: header: %w", err)
	}

	row := make([]string, len(header))
	for _, id := range participants {
		row[0] = id
		for i, c := range cols {
			if _, ok := c.members[id]; ok {
				row[i+1] = "1"
			} else {
				row[i+1] = "0"
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("WriteWideCSV: row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
