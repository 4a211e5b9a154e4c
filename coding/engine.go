package coding

import (
	"encoding/json"
	"fmt"
	"sort"
)

// AppliedOp records one operation that took effect.
type AppliedOp struct {
	Kind OpKind `json:"kind"`
	Note string `json:"note,omitempty"`
}

// SkippedOp records one operation that was ignored, and why. Edits come from
// an unreliable text-generation source, so individual bad operations are
// skipped rather than aborting the batch.
type SkippedOp struct {
	Raw    json.RawMessage `json:"op,omitempty"`
	Kind   OpKind          `json:"kind,omitempty"`
	Reason string          `json:"reason"`
	Note   string          `json:"note,omitempty"`
}

// EditResult is the outcome of applying one batch: the new dense theme list
// plus an observable record of what applied and what was skipped.
type EditResult struct {
	Themes  []Theme     `json:"themes"`
	Applied []AppliedOp `json:"applied,omitempty"`
	Skipped []SkippedOp `json:"skipped,omitempty"`
}

// restructureNote flags operations whose indices were interpreted against a
// list already reshaped by a merge or split in the same batch. Nothing remaps
// those indices; an in-range index still applies to whatever landed there.
const restructureNote = "indices read against list restructured by merge/split in this batch"

// Apply runs an edit batch against a theme list and returns the new list.
// It is pure: the input slice is never mutated. Tagged operations execute in
// a fixed phase order regardless of their order in the batch: merge and split
// first, then delete, then replace, then insert. Delete/replace/insert
// indices refer to the array state after the merge/split phase.
func Apply(themes []Theme, batch Batch) EditResult {
	cur := append([]Theme(nil), themes...)
	res := EditResult{}
	res.Skipped = append(res.Skipped, batch.Malformed...)

	if batch.Legacy {
		res.Themes = applyLegacy(cur, batch.Patches, &res)
		return res
	}

	restructured := false
	note := func() string {
		if restructured {
			return restructureNote
		}
		return ""
	}

	// Phase 1: merge and split, in batch order, each against the evolving list.
	for _, op := range batch.Ops {
		switch op.Kind {
		case OpMerge:
			next, ok, reason := applyMerge(cur, op)
			if !ok {
				res.Skipped = append(res.Skipped, SkippedOp{Raw: op.Raw, Kind: op.Kind, Reason: reason})
				continue
			}
			cur = next
			restructured = true
			res.Applied = append(res.Applied, AppliedOp{Kind: op.Kind})
		case OpSplit:
			next, ok, reason := applySplit(cur, op)
			if !ok {
				res.Skipped = append(res.Skipped, SkippedOp{Raw: op.Raw, Kind: op.Kind, Reason: reason})
				continue
			}
			cur = next
			restructured = true
			res.Applied = append(res.Applied, AppliedOp{Kind: op.Kind})
		}
	}

	// Phase 2: deletes are gathered across the whole batch, deduplicated, and
	// removed in descending order so earlier removals don't shift later ones.
	toDelete := map[int]struct{}{}
	for _, op := range batch.Ops {
		if op.Kind != OpDelete {
			continue
		}
		if len(op.Indices) == 0 {
			res.Skipped = append(res.Skipped, SkippedOp{Raw: op.Raw, Kind: op.Kind, Reason: "missing indices", Note: note()})
			continue
		}
		valid := 0
		for _, i := range op.Indices {
			if i >= 0 && i < len(cur) {
				toDelete[i] = struct{}{}
				valid++
			}
		}
		if valid == 0 {
			res.Skipped = append(res.Skipped, SkippedOp{Raw: op.Raw, Kind: op.Kind, Reason: "indices out of range", Note: note()})
			continue
		}
		res.Applied = append(res.Applied, AppliedOp{Kind: op.Kind, Note: note()})
	}
	if len(toDelete) > 0 {
		idx := make([]int, 0, len(toDelete))
		for i := range toDelete {
			idx = append(idx, i)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(idx)))
		for _, i := range idx {
			cur = removeTheme(cur, i)
		}
	}

	// Phase 3: replace is a full overwrite, unlike the legacy per-field merge.
	for _, op := range batch.Ops {
		if op.Kind != OpReplace {
			continue
		}
		switch {
		case !op.HasIndex:
			res.Skipped = append(res.Skipped, SkippedOp{Raw: op.Raw, Kind: op.Kind, Reason: "missing index", Note: note()})
		case !op.HasTheme:
			res.Skipped = append(res.Skipped, SkippedOp{Raw: op.Raw, Kind: op.Kind, Reason: "missing theme", Note: note()})
		case op.Index < 0 || op.Index >= len(cur):
			res.Skipped = append(res.Skipped, SkippedOp{Raw: op.Raw, Kind: op.Kind, Reason: "index out of range", Note: note()})
		default:
			cur[op.Index] = op.Fields.Theme(fmt.Sprintf("Theme %d", op.Index+1))
			res.Applied = append(res.Applied, AppliedOp{Kind: op.Kind, Note: note()})
		}
	}

	// Phase 4: inserts, with the index clamped to [0, len].
	for _, op := range batch.Ops {
		if op.Kind != OpInsert {
			continue
		}
		switch {
		case !op.HasIndex:
			res.Skipped = append(res.Skipped, SkippedOp{Raw: op.Raw, Kind: op.Kind, Reason: "missing index", Note: note()})
		case !op.HasTheme:
			res.Skipped = append(res.Skipped, SkippedOp{Raw: op.Raw, Kind: op.Kind, Reason: "missing theme", Note: note()})
		default:
			at := clampInt(op.Index, 0, len(cur))
			cur = spliceThemes(cur, at, op.Fields.Theme(fmt.Sprintf("Theme %d", at+1)))
			res.Applied = append(res.Applied, AppliedOp{Kind: op.Kind, Note: note()})
		}
	}

	res.Themes = cur
	return res
}

func applyMerge(cur []Theme, op Operation) (next []Theme, ok bool, reason string) {
	if len(op.Indices) == 0 {
		return nil, false, "missing indices"
	}
	idx := dedupeSortInts(op.Indices, len(cur))
	if len(idx) == 0 {
		return nil, false, "indices out of range"
	}

	insertAt := idx[0]
	if op.InsertIndex != nil {
		insertAt = clampInt(*op.InsertIndex, 0, len(cur))
	}

	out := append([]Theme(nil), cur...)
	for i := len(idx) - 1; i >= 0; i-- {
		out = removeTheme(out, idx[i])
	}
	if insertAt > len(out) {
		insertAt = len(out)
	}
	return spliceThemes(out, insertAt, op.Fields.Theme("Merged Theme")), true, ""
}

func applySplit(cur []Theme, op Operation) (next []Theme, ok bool, reason string) {
	if !op.HasIndex {
		return nil, false, "missing index"
	}
	if op.Index < 0 || op.Index >= len(cur) {
		return nil, false, "index out of range"
	}
	if op.Replacements == nil {
		return nil, false, "missing replacements"
	}

	out := removeTheme(cur, op.Index)
	insertAt := op.Index
	if op.InsertIndex != nil {
		insertAt = clampInt(*op.InsertIndex, 0, len(out))
	} else if insertAt > len(out) {
		insertAt = len(out)
	}

	reps := make([]Theme, 0, len(op.Replacements))
	for i, f := range op.Replacements {
		reps = append(reps, f.Theme(fmt.Sprintf("Split %d", i+1)))
	}
	return spliceThemes(out, insertAt, reps...), true, ""
}

func applyLegacy(cur []Theme, patches []LegacyPatch, res *EditResult) []Theme {
	for _, p := range patches {
		if !p.HasIndex {
			res.Skipped = append(res.Skipped, SkippedOp{Raw: p.Raw, Kind: OpPatch, Reason: "missing index"})
			continue
		}
		if p.Index < 0 || p.Index >= len(cur) {
			res.Skipped = append(res.Skipped, SkippedOp{Raw: p.Raw, Kind: OpPatch, Reason: "index out of range"})
			continue
		}

		// Per-field merge: fields absent on the patch keep the theme's value.
		t := cur[p.Index]
		if p.Fields.Label != nil {
			t.ThemeLabel = *p.Fields.Label
		}
		if p.Fields.Definition != nil {
			t.Definition = *p.Fields.Definition
		}
		if p.Fields.HasKeywords {
			t.RepresentativeKeywords = append([]string{}, p.Fields.Keywords...)
		}
		if p.Fields.HasParticipants {
			t.ParticipantID = append([]string{}, p.Fields.Participants...)
		}
		cur[p.Index] = t
		res.Applied = append(res.Applied, AppliedOp{Kind: OpPatch})
	}
	return cur
}

// dedupeSortInts returns the unique in-range values ascending.
func dedupeSortInts(in []int, bound int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if v < 0 || v >= bound {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func removeTheme(themes []Theme, at int) []Theme {
	out := make([]Theme, 0, len(themes)-1)
	out = append(out, themes[:at]...)
	out = append(out, themes[at+1:]...)
	return out
}

func spliceThemes(themes []Theme, at int, insert ...Theme) []Theme {
	out := make([]Theme, 0, len(themes)+len(insert))
	out = append(out, themes[:at]...)
	out = append(out, insert...)
	out = append(out, themes[at:]...)
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
