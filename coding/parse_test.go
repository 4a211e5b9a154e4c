package coding

import (
	"strings"
	"testing"
)

func TestExtractArray_PlainArray(t *testing.T) {
	t.Parallel()

	items, err := ExtractArray(`[{"op":"delete","indices":[0]}, {"op":"insert","index":1}]`)
	if err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items=%d", len(items))
	}
}

func TestExtractArray_CodeFence(t *testing.T) {
	t.Parallel()

	text := "```json\n[{\"op\":\"delete\",\"indices\":[0]}]\n```"
	items, err := ExtractArray(text)
	if err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items=%d", len(items))
	}
}

func TestExtractArray_WrappedInProse(t *testing.T) {
	t.Parallel()

	text := "Sure, here are the edits:\n\n[1, 2, 3]\n\nLet me know if you need more."
	items, err := ExtractArray(text)
	if err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items=%d", len(items))
	}
}

func TestExtractArray_SingleObjectFallback(t *testing.T) {
	t.Parallel()

	text := `The only change needed: {"op":"delete","indices":[2]}`
	items, err := ExtractArray(text)
	if err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items=%d", len(items))
	}
	if !strings.Contains(string(items[0]), `"delete"`) {
		t.Fatalf("item=%s", items[0])
	}
}

func TestExtractArray_NoJSON(t *testing.T) {
	t.Parallel()

	if _, err := ExtractArray("I could not produce any edits."); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ExtractArray("   "); err == nil {
		t.Fatalf("expected error for blank input")
	}
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "no_fence", in: `[1]`, want: `[1]`},
		{name: "bare_fence", in: "```\n[1]\n```", want: "[1]"},
		{name: "language_tag", in: "```json\n[1]\n```", want: "[1]"},
		{name: "unterminated", in: "```json\n[1]", want: "[1]"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := stripCodeFence(tc.in); got != tc.want {
				t.Fatalf("got=%q want=%q", got, tc.want)
			}
		})
	}
}
