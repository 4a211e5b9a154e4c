package coding

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/surveyforge/themecode/coding/fileutils"
)

// Dataset is one loaded survey CSV: a header row plus response rows, with a
// resolved respondent-ID column.
type Dataset struct {
	Path     string
	Header   []string
	Rows     [][]string
	IDColumn string

	idIdx  int
	colIdx map[string]int
}

// Record is one respondent's answer to one question, ready for the
// record=<id> | response=<text> prompt encoding.
type Record struct {
	ID       string
	Response string
}

// idColumnCandidates are probed (case-insensitively) when no ID column is
// named. Falls back to the first column.
var idColumnCandidates = []string{
	"id", "record", "record_id", "record id",
	"respondent", "respondent_id", "respondent id",
	"participant_id", "participant id",
	"response_id", "response id",
	"caseid", "case_id",
}

// LoadDataset reads a CSV with a header row. idColumn may be empty, in which
// case common ID column names are probed and the first column is the final
// fallback. Ragged rows are tolerated; short rows read as blank cells.
func LoadDataset(path string, idColumn string) (*Dataset, error) {
	if path == "" {
		return nil, errors.New("LoadDataset: path is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadDataset: open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("LoadDataset: read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, errors.New("LoadDataset: csv is empty")
	}

	header := make([]string, len(all[0]))
	colIdx := make(map[string]int, len(all[0]))
	for i, h := range all[0] {
		h = strings.TrimSpace(h)
		header[i] = h
		if h != "" {
			if _, ok := colIdx[h]; !ok {
				colIdx[h] = i
			}
		}
	}
	if len(colIdx) == 0 {
		return nil, errors.New("LoadDataset: header row has no column names")
	}

	d := &Dataset{
		Path:   path,
		Header: header,
		Rows:   all[1:],
		colIdx: colIdx,
	}
	if err := d.resolveIDColumn(idColumn); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dataset) resolveIDColumn(idColumn string) error {
	if idColumn != "" {
		idx, ok := d.colIdx[idColumn]
		if !ok {
			return fmt.Errorf("LoadDataset: id column %q not found", idColumn)
		}
		d.IDColumn = idColumn
		d.idIdx = idx
		return nil
	}

	lower := make(map[string]int, len(d.Header))
	for i, h := range d.Header {
		lower[strings.ToLower(h)] = i
	}
	for _, cand := range idColumnCandidates {
		if idx, ok := lower[cand]; ok {
			d.IDColumn = d.Header[idx]
			d.idIdx = idx
			return nil
		}
	}
	d.IDColumn = d.Header[0]
	d.idIdx = 0
	return nil
}

// Columns returns the header names in file order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.Header...)
}

func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.colIdx[name]
	return ok
}

func (d *Dataset) cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// rowID returns the respondent ID for a row, with a positional fallback so
// rows with a blank ID cell still get a stable, distinguishable identifier.
func (d *Dataset) rowID(row []string, rowNum int) string {
	if id := d.cell(row, d.idIdx); id != "" {
		return id
	}
	return fmt.Sprintf("row%d", rowNum)
}

// Records returns the non-placeholder answers for a question column.
func (d *Dataset) Records(question string) ([]Record, error) {
	idx, ok := d.colIdx[question]
	if !ok {
		return nil, fmt.Errorf("Records: unknown column %q", question)
	}
	var out []Record
	for i, row := range d.Rows {
		resp := d.cell(row, idx)
		if isPlaceholderAnswer(resp) {
			continue
		}
		out = append(out, Record{ID: d.rowID(row, i+1), Response: resp})
	}
	return out, nil
}

// Universe returns the distinct respondent IDs with a non-placeholder answer
// to the question: the coverage denominator.
func (d *Dataset) Universe(question string) ([]string, error) {
	records, err := d.Records(question)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return distinctIDs(ids), nil
}

// isPlaceholderAnswer filters the usual non-answers out of the respondent
// universe and the prompt dump.
func isPlaceholderAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n/a", "na", "none", "-", ".", "nil", "null":
		return true
	}
	return false
}

// maxRecordLineChars caps one response line in the prompt dump.
const maxRecordLineChars = 2000

// EncodeRecords renders records as "record=<id> | response=<text>" lines
// under a character budget, marking truncation when the budget runs out.
// maxChars <= 0 uses DefaultMaxResponseChars.
func EncodeRecords(records []Record, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxResponseChars
	}
	var b strings.Builder
	total := 0
	for _, r := range records {
		line := fmt.Sprintf("record=%s | response=%s\n",
			strings.TrimSpace(r.ID),
			fileutils.SanitizeNewlines(fileutils.Truncate(r.Response, maxRecordLineChars)))
		if total+len(line) > maxChars {
			b.WriteString("... [responses truncated]\n")
			break
		}
		b.WriteString(line)
		total += len(line)
	}
	return b.String()
}
