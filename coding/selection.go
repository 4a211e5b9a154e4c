package coding

import (
	"math"
	"sort"
	"strings"
)

// SelectionTracker maintains, per question column, the set of themes selected
// for editing. Selection is keyed by theme ID rather than index so it
// survives the reordering a merge or split causes.
type SelectionTracker struct {
	byQuestion map[string]map[string]struct{}
}

func NewSelectionTracker() *SelectionTracker {
	return &SelectionTracker{byQuestion: map[string]map[string]struct{}{}}
}

// Toggle flips one theme's selection and reports whether it is now selected.
func (t *SelectionTracker) Toggle(question, themeID string) bool {
	set := t.byQuestion[question]
	if set == nil {
		set = map[string]struct{}{}
		t.byQuestion[question] = set
	}
	if _, ok := set[themeID]; ok {
		delete(set, themeID)
		return false
	}
	set[themeID] = struct{}{}
	return true
}

// SelectAll selects every theme in the list for the question.
func (t *SelectionTracker) SelectAll(question string, themes []Theme) {
	set := map[string]struct{}{}
	for _, th := range themes {
		if th.ID != "" {
			set[th.ID] = struct{}{}
		}
	}
	t.byQuestion[question] = set
}

// Clear drops the question's selection.
func (t *SelectionTracker) Clear(question string) {
	delete(t.byQuestion, question)
}

func (t *SelectionTracker) IsSelected(question, themeID string) bool {
	_, ok := t.byQuestion[question][themeID]
	return ok
}

// Prune drops selected IDs that no longer appear in the theme list, e.g.
// after an edit batch deleted or merged them away.
func (t *SelectionTracker) Prune(question string, themes []Theme) {
	set := t.byQuestion[question]
	if len(set) == 0 {
		return
	}
	live := make(map[string]struct{}, len(themes))
	for _, th := range themes {
		live[th.ID] = struct{}{}
	}
	for id := range set {
		if _, ok := live[id]; !ok {
			delete(set, id)
		}
	}
}

// SelectedIndices translates the selection into current positions in the
// theme list, ascending. Edit prompts name indices, not IDs.
func (t *SelectionTracker) SelectedIndices(question string, themes []Theme) []int {
	set := t.byQuestion[question]
	if len(set) == 0 {
		return nil
	}
	var out []int
	for i, th := range themes {
		if _, ok := set[th.ID]; ok {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// CoverageDenominator picks the base for coverage percentages: the respondent
// universe when known, else the union of every participant ID assigned across
// the question's themes, floored at 1 to avoid division by zero.
func CoverageDenominator(universe []string, themes []Theme) int {
	if n := len(distinctIDs(universe)); n > 0 {
		return n
	}
	union := map[string]struct{}{}
	for _, th := range themes {
		for _, id := range th.ParticipantID {
			id = strings.TrimSpace(id)
			if id != "" {
				union[id] = struct{}{}
			}
		}
	}
	if len(union) > 0 {
		return len(union)
	}
	return 1
}

// CoveragePercent is the share of the denominator covered by the theme's
// distinct participant IDs, rounded to one decimal.
func CoveragePercent(theme Theme, denominator int) float64 {
	if denominator <= 0 {
		denominator = 1
	}
	n := len(distinctIDs(theme.ParticipantID))
	return round1(float64(n) / float64(denominator) * 100)
}

// distinctIDs trims and deduplicates, preserving order. Duplicate IDs are
// tolerated in theme lists; they only collapse here, at counting time.
func distinctIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
