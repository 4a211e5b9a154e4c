package coding

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/surveyforge/themecode/coding/fileutils"
)

// ToplineOptions configures a weighted frequency table.
type ToplineOptions struct {
	// WeightColumn holds per-row weights; blank, invalid, or non-positive
	// values count as 1.0. Empty name means unweighted (all 1.0).
	WeightColumn string

	// SplitColumn adds per-segment columns (e.g. a demographic).
	SplitColumn string
}

// ToplineCell is one weighted count with its share of the segment base.
type ToplineCell struct {
	Weighted float64 `json:"weighted"`
	Percent  float64 `json:"percent"`
}

// ToplineRow is one answer value's totals, with optional per-segment cells.
type ToplineRow struct {
	Value    string                 `json:"value"`
	Weighted float64                `json:"weighted"`
	Percent  float64                `json:"percent"`
	Segments map[string]ToplineCell `json:"segments,omitempty"`
}

// ToplineTable is the weighted frequency table for one closed-ended column.
type ToplineTable struct {
	Question     string             `json:"question"`
	Base         float64            `json:"base"`
	Rows         []ToplineRow       `json:"rows"`
	SegmentNames []string           `json:"segment_names,omitempty"`
	SegmentBases map[string]float64 `json:"segment_bases,omitempty"`
}

// segmentBlank labels rows whose split-column cell is a placeholder.
const segmentBlank = "(blank)"

// ComputeTopline tallies weighted answer frequencies for a question column.
// Placeholder answers are excluded from the base. Percentages are rounded to
// one decimal; rows sort by weighted count descending, then value.
func ComputeTopline(d *Dataset, question string, opts ToplineOptions) (ToplineTable, error) {
	qIdx, ok := d.colIdx[question]
	if !ok {
		return ToplineTable{}, fmt.Errorf("ComputeTopline: unknown column %q", question)
	}
	wIdx := -1
	if opts.WeightColumn != "" {
		wIdx, ok = d.colIdx[opts.WeightColumn]
		if !ok {
			return ToplineTable{}, fmt.Errorf("ComputeTopline: unknown weight column %q", opts.WeightColumn)
		}
	}
	sIdx := -1
	if opts.SplitColumn != "" {
		sIdx, ok = d.colIdx[opts.SplitColumn]
		if !ok {
			return ToplineTable{}, fmt.Errorf("ComputeTopline: unknown split column %q", opts.SplitColumn)
		}
	}

	totals := map[string]float64{}
	bySegment := map[string]map[string]float64{}
	segmentBases := map[string]float64{}
	base := 0.0

	for _, row := range d.Rows {
		value := d.cell(row, qIdx)
		if isPlaceholderAnswer(value) {
			continue
		}
		w := 1.0
		if wIdx >= 0 {
			w = parseWeight(d.cell(row, wIdx))
		}
		totals[value] += w
		base += w

		if sIdx >= 0 {
			seg := d.cell(row, sIdx)
			if isPlaceholderAnswer(seg) {
				seg = segmentBlank
			}
			if bySegment[seg] == nil {
				bySegment[seg] = map[string]float64{}
			}
			bySegment[seg][value] += w
			segmentBases[seg] += w
		}
	}

	segments := make([]string, 0, len(bySegment))
	for seg := range bySegment {
		segments = append(segments, seg)
	}
	sort.Strings(segments)

	rows := make([]ToplineRow, 0, len(totals))
	for value, weighted := range totals {
		r := ToplineRow{Value: value, Weighted: weighted, Percent: percentOf(weighted, base)}
		if len(segments) > 0 {
			r.Segments = map[string]ToplineCell{}
			for _, seg := range segments {
				w := bySegment[seg][value]
				r.Segments[seg] = ToplineCell{Weighted: w, Percent: percentOf(w, segmentBases[seg])}
			}
		}
		rows = append(rows, r)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Weighted != rows[j].Weighted {
			return rows[i].Weighted > rows[j].Weighted
		}
		return rows[i].Value < rows[j].Value
	})

	t := ToplineTable{Question: question, Base: base, Rows: rows}
	if len(segments) > 0 {
		t.SegmentNames = segments
		t.SegmentBases = segmentBases
	}
	return t, nil
}

// parseWeight treats anything unusable as weight 1.0 rather than dropping
// the row.
func parseWeight(s string) float64 {
	w, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || w != w || w <= 0 {
		return 1.0
	}
	return w
}

func percentOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return round1(part / whole * 100)
}

// ToplineSummaryInstructions is the system prompt for the prose-summary call.
const ToplineSummaryInstructions = `You are summarizing weighted survey frequency tables for a research report.

Write 1-2 short factual paragraphs per table: the leading answers, notable gaps between segments, and anything unusual about the distribution. No advice, no speculation, no bullet lists. Plain prose only.`

// BuildToplineSummaryInput renders tables as compact text for the model's
// prose summary, under a character budget.
func BuildToplineSummaryInput(tables []ToplineTable, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxResponseChars
	}
	var b strings.Builder
	total := 0
	for _, t := range tables {
		var sec strings.Builder
		fmt.Fprintf(&sec, "table: %s (weighted base %.1f)\n", t.Question, t.Base)
		for _, r := range t.Rows {
			fmt.Fprintf(&sec, "- %s: %.1f (%.1f%%)", fileutils.SanitizeNewlines(r.Value), r.Weighted, r.Percent)
			for _, seg := range t.SegmentNames {
				c := r.Segments[seg]
				fmt.Fprintf(&sec, " | %s %.1f%%", seg, c.Percent)
			}
			sec.WriteString("\n")
		}
		sec.WriteString("\n")

		if total+sec.Len() > maxChars {
			b.WriteString("... [tables truncated]\n")
			break
		}
		b.WriteString(sec.String())
		total += sec.Len()
	}
	return b.String()
}
