package coding

import "github.com/google/uuid"

// Theme is one extracted category of open-ended responses for a question
// column. Its JSON shape is shared with the model on both input and output;
// the ID is internal and never serialized into prompts.
type Theme struct {
	ID                     string   `json:"id,omitempty"`
	ThemeLabel             string   `json:"ThemeLabel"`
	Definition             string   `json:"Definition"`
	RepresentativeKeywords []string `json:"RepresentativeKeywords"`
	ParticipantID          []string `json:"ParticipantID"`
}

// NewThemeID returns an opaque identifier for a freshly created theme.
// Identity used to be the array index, which went stale on every merge/split;
// selection state is keyed by these IDs instead.
func NewThemeID() string {
	return uuid.NewString()
}

// QuestionResult is the outcome of coding one question column: either an
// ordered theme list, or a failure marker carrying the upstream error message
// or the unparsed model text for manual inspection.
type QuestionResult struct {
	Themes []Theme `json:"themes,omitempty"`

	Failed  bool   `json:"failed,omitempty"`
	Error   string `json:"error,omitempty"`
	RawText string `json:"raw_text,omitempty"`
}

// OK reports whether the result holds a usable theme list. Export and edit
// operations only apply to OK results.
func (r QuestionResult) OK() bool {
	return !r.Failed
}
