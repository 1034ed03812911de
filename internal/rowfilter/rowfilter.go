// Package rowfilter decides which table rows are shown for a text query and
// a set of attribute filters.
package rowfilter

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Record is one table row: the text a user searches on plus categorical
// attributes such as "match" or "event".
type Record struct {
	ID    string            `json:"id"`
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// FilterState is the current user input. An empty Query or an empty value in
// Attrs places no constraint on that dimension.
type FilterState struct {
	Query string            `json:"query"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Visibility is the outcome for one record.
type Visibility struct {
	ID        string `json:"id"`
	Visible   bool   `json:"visible"`
	Highlight bool   `json:"highlight"`
}

// IsEmpty reports whether s constrains nothing.
func (s FilterState) IsEmpty() bool {
	if Normalize(s.Query) != "" {
		return false
	}
	for _, v := range s.Attrs {
		if v != "" {
			return false
		}
	}
	return true
}

// Reset returns the empty state.
func (s FilterState) Reset() FilterState {
	return FilterState{}
}

// With returns a copy of s with attribute key set to value. An empty value
// clears the constraint.
func (s FilterState) With(key, value string) FilterState {
	attrs := make(map[string]string, len(s.Attrs)+1)
	for k, v := range s.Attrs {
		attrs[k] = v
	}
	if value == "" {
		delete(attrs, key)
	} else {
		attrs[key] = value
	}
	return FilterState{Query: s.Query, Attrs: attrs}
}

// Normalize strips every whitespace rune (the ideographic space included),
// folds full-width ASCII to its narrow form and lowercases the result.
func Normalize(s string) string {
	s = width.Fold.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ComputeVisibility returns one Visibility per record, in input order.
//
// A record is visible when every non-empty attribute filter equals the
// record's attribute and, for a non-empty query, the normalized text contains
// the normalized query. Highlight marks text hits only and ignores the
// attribute filters.
func ComputeVisibility(records []Record, state FilterState) []Visibility {
	query := Normalize(state.Query)
	out := make([]Visibility, len(records))
	for i, rec := range records {
		textHit := query == "" || strings.Contains(Normalize(rec.Text), query)
		out[i] = Visibility{
			ID:        rec.ID,
			Visible:   textHit && attrsMatch(rec, state.Attrs),
			Highlight: query != "" && textHit,
		}
	}
	return out
}

// Apply returns the visible subset of records, order preserved.
func Apply(records []Record, state FilterState) []Record {
	vis := ComputeVisibility(records, state)
	out := make([]Record, 0, len(records))
	for i, v := range vis {
		if v.Visible {
			out = append(out, records[i])
		}
	}
	return out
}

// Counts returns how many entries are visible and how many are highlighted.
func Counts(vis []Visibility) (visible, highlighted int) {
	for _, v := range vis {
		if v.Visible {
			visible++
		}
		if v.Highlight {
			highlighted++
		}
	}
	return visible, highlighted
}

func attrsMatch(rec Record, filters map[string]string) bool {
	for key, want := range filters {
		if want == "" {
			continue
		}
		if rec.Attrs[key] != want {
			return false
		}
	}
	return true
}
