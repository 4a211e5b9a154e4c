package coding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// OpKind discriminates the tagged edit operations. OpPatch marks a legacy
// untagged per-field patch applied for backward compatibility.
type OpKind string

const (
	OpMerge   OpKind = "merge"
	OpSplit   OpKind = "split"
	OpReplace OpKind = "replace"
	OpDelete  OpKind = "delete"
	OpInsert  OpKind = "insert"
	OpPatch   OpKind = "patch"
)

// ThemeFields is a partial theme carried by an operation. Pointer/presence
// tracking distinguishes "absent" from "empty" so legacy patches can merge
// per field. Participant IDs and keywords are coerced to strings on decode.
type ThemeFields struct {
	Label      *string
	Definition *string

	Keywords     []string
	Participants []string

	HasKeywords     bool
	HasParticipants bool
}

func (f *ThemeFields) UnmarshalJSON(b []byte) error {
	var raw struct {
		ThemeLabel             *string         `json:"ThemeLabel"`
		Definition             *string         `json:"Definition"`
		RepresentativeKeywords json.RawMessage `json:"RepresentativeKeywords"`
		ParticipantID          json.RawMessage `json:"ParticipantID"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f.Label = raw.ThemeLabel
	f.Definition = raw.Definition
	f.Keywords, f.HasKeywords = coerceStringList(raw.RepresentativeKeywords)
	f.Participants, f.HasParticipants = coerceStringList(raw.ParticipantID)
	return nil
}

// Theme materializes the partial fields into a full theme with a fresh ID.
// Missing fields take defaults: fallbackLabel, empty definition, empty lists.
func (f ThemeFields) Theme(fallbackLabel string) Theme {
	t := Theme{
		ID:                     NewThemeID(),
		ThemeLabel:             fallbackLabel,
		RepresentativeKeywords: []string{},
		ParticipantID:          []string{},
	}
	if f.Label != nil && strings.TrimSpace(*f.Label) != "" {
		t.ThemeLabel = strings.TrimSpace(*f.Label)
	}
	if f.Definition != nil {
		t.Definition = strings.TrimSpace(*f.Definition)
	}
	if f.HasKeywords {
		t.RepresentativeKeywords = append([]string{}, f.Keywords...)
	}
	if f.HasParticipants {
		t.ParticipantID = append([]string{}, f.Participants...)
	}
	return t
}

// coerceStringList decodes a JSON value as an ordered string list. Non-array
// values report absent (the defaulting rule); numeric and boolean elements
// are coerced to their string form, anything else is dropped.
func coerceStringList(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, v)
		case json.Number:
			out = append(out, v.String())
		case bool:
			out = append(out, strconv.FormatBool(v))
		}
	}
	return out, true
}

// Operation is one decoded tagged edit.
type Operation struct {
	Kind OpKind

	Indices []int // merge, delete

	Index    int // split, replace, insert
	HasIndex bool

	InsertIndex *int // merge, split

	Fields   ThemeFields // merge (inline), replace/insert (from "theme")
	HasTheme bool

	Replacements []ThemeFields // split

	Raw json.RawMessage
}

// LegacyPatch is the old untagged edit shape: overwrite just the fields
// present on the patch at a fixed index.
type LegacyPatch struct {
	Index    int
	HasIndex bool
	Fields   ThemeFields
	Raw      json.RawMessage
}

// Batch is a decoded edit batch, either tagged operations or legacy patches.
// Elements that could not be decoded land in Malformed and are reported as
// skips by Apply; decoding itself never fails once the array has been parsed.
type Batch struct {
	Ops       []Operation
	Patches   []LegacyPatch
	Legacy    bool
	Malformed []SkippedOp
}

// DecodeBatch classifies and decodes a parsed edit array. The batch is legacy
// only when every element lacks an "op" tag; in a mixed batch the untagged
// elements become observable skips instead of silently changing the whole
// batch's interpretation.
func DecodeBatch(items []json.RawMessage) Batch {
	tags := make([]string, len(items))
	tagged := false
	for i, it := range items {
		var head struct {
			Op string `json:"op"`
		}
		if err := json.Unmarshal(it, &head); err == nil && strings.TrimSpace(head.Op) != "" {
			tags[i] = strings.ToLower(strings.TrimSpace(head.Op))
			tagged = true
		}
	}

	var b Batch
	if !tagged {
		b.Legacy = true
		for _, it := range items {
			p, err := decodeLegacyPatch(it)
			if err != nil {
				b.Malformed = append(b.Malformed, SkippedOp{Raw: it, Kind: OpPatch, Reason: "malformed patch: " + err.Error()})
				continue
			}
			b.Patches = append(b.Patches, p)
		}
		return b
	}

	for i, it := range items {
		if tags[i] == "" {
			b.Malformed = append(b.Malformed, SkippedOp{Raw: it, Reason: "missing op tag"})
			continue
		}
		op, err := decodeOperation(tags[i], it)
		if err != nil {
			b.Malformed = append(b.Malformed, SkippedOp{Raw: it, Kind: OpKind(tags[i]), Reason: err.Error()})
			continue
		}
		b.Ops = append(b.Ops, op)
	}
	return b
}

func decodeOperation(tag string, raw json.RawMessage) (Operation, error) {
	kind := OpKind(tag)
	switch kind {
	case OpMerge, OpSplit, OpReplace, OpDelete, OpInsert:
	default:
		return Operation{}, fmt.Errorf("unknown op %q", tag)
	}

	var head struct {
		Indices      []int         `json:"indices"`
		Index        *int          `json:"index"`
		InsertIndex  *int          `json:"insertIndex"`
		Theme        *ThemeFields  `json:"theme"`
		Replacements []ThemeFields `json:"replacements"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Operation{}, fmt.Errorf("malformed %s: %v", tag, err)
	}

	op := Operation{
		Kind:         kind,
		Indices:      head.Indices,
		InsertIndex:  head.InsertIndex,
		Replacements: head.Replacements,
		Raw:          raw,
	}
	if head.Index != nil {
		op.Index = *head.Index
		op.HasIndex = true
	}

	switch kind {
	case OpMerge:
		// Merge carries its theme fields at the top level of the op object.
		var fields ThemeFields
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Operation{}, fmt.Errorf("malformed merge fields: %v", err)
		}
		op.Fields = fields
		op.HasTheme = true
	case OpReplace, OpInsert:
		if head.Theme != nil {
			op.Fields = *head.Theme
			op.HasTheme = true
		}
	}
	return op, nil
}

func decodeLegacyPatch(raw json.RawMessage) (LegacyPatch, error) {
	var head struct {
		Index *int `json:"index"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return LegacyPatch{}, err
	}
	var fields ThemeFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return LegacyPatch{}, err
	}
	p := LegacyPatch{Fields: fields, Raw: raw}
	if head.Index != nil {
		p.Index = *head.Index
		p.HasIndex = true
	}
	return p, nil
}
