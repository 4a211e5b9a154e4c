package coding

import (
	"fmt"
	"sort"
)

// NormalizeBreakpoints copies, sorts, deduplicates, and bounds-filters record
// breakpoints (0-based indices where a new batch starts). Everything filtered
// out is fine: that just means fewer batches.
func NormalizeBreakpoints(breakpoints []int, total int) []int {
	if total <= 1 || len(breakpoints) == 0 {
		return nil
	}

	bps := append([]int(nil), breakpoints...)
	sort.Ints(bps)

	out := bps[:0]
	prev := -1
	for _, b := range bps {
		if b <= 0 || b >= total {
			continue
		}
		if b == prev {
			continue
		}
		out = append(out, b)
		prev = b
	}
	return out
}

// FallbackBreakpoints splits total records into even batches of roughly
// perBatch each. Returns nil when one batch suffices.
func FallbackBreakpoints(total, perBatch int) []int {
	if perBatch <= 0 || total <= perBatch {
		return nil
	}
	var bps []int
	for i := perBatch; i < total; i += perBatch {
		bps = append(bps, i)
	}
	return bps
}

// SplitByBreakpoints cuts the record list into contiguous batches at the
// given (normalized) breakpoints.
func SplitByBreakpoints(records []Record, breakpoints []int) [][]Record {
	if len(records) == 0 {
		return nil
	}
	bps := NormalizeBreakpoints(breakpoints, len(records))

	boundaries := make([]int, 0, len(bps)+2)
	boundaries = append(boundaries, 0)
	boundaries = append(boundaries, bps...)
	boundaries = append(boundaries, len(records))

	var out [][]Record
	for i := 0; i+1 < len(boundaries); i++ {
		s, e := boundaries[i], boundaries[i+1]
		if s >= e {
			continue
		}
		out = append(out, append([]Record(nil), records[s:e]...))
	}
	return out
}

// SplitByBudget batches records so each batch's encoded prompt lines stay
// within maxChars. A single over-budget record still gets its own batch.
// maxChars <= 0 disables splitting.
func SplitByBudget(records []Record, maxChars int) [][]Record {
	if len(records) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return [][]Record{append([]Record(nil), records...)}
	}

	var bps []int
	used := 0
	start := 0
	for i, r := range records {
		n := len(fmt.Sprintf("record=%s | response=%s\n", r.ID, r.Response))
		if i > start && used+n > maxChars {
			bps = append(bps, i)
			start = i
			used = 0
		}
		used += n
	}
	return SplitByBreakpoints(records, bps)
}
