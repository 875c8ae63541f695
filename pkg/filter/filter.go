// Package filter narrows projected rows by a free text term and a minimum date.
package filter

import (
	"strings"
	"time"
)

// Criteria is what the user typed into a list view's search box and date picker.
type Criteria struct {
	Term    string     `json:"q"`
	MinDate *time.Time `json:"from,omitempty"`
}

// IsZero reports whether the criteria match every row.
func (c Criteria) IsZero() bool {
	return c.Term == "" && c.MinDate == nil
}

// Fields is the per-view whitelist of what a row is matched on.
type Fields[R any] struct {
	// Text returns the searchable strings of a row.
	Text func(R) []string
	// Dates returns the dates compared against MinDate. A row passes the date
	// bound when any of them is on or after it.
	Dates func(R) []time.Time
}

// Match is textMatch AND dateMatch.
func (f Fields[R]) Match(c Criteria, row R) bool {
	return f.matchText(strings.ToLower(c.Term), row) && f.matchDate(c.MinDate, row)
}

func (f Fields[R]) matchText(term string, row R) bool {
	if term == "" {
		return true
	}
	if f.Text == nil {
		return false
	}
	for _, field := range f.Text(row) {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (f Fields[R]) matchDate(min *time.Time, row R) bool {
	if min == nil {
		return true
	}
	if f.Dates == nil {
		return false
	}
	bound := day(*min, min.Location())
	for _, d := range f.Dates(row) {
		if d.IsZero() {
			continue
		}
		if !day(d, min.Location()).Before(bound) {
			return true
		}
	}
	return false
}

// day truncates t to midnight of its calendar day in loc.
func day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Apply returns the rows matching c, in their original order. The input
// slice is never modified.
func Apply[R any](rows []R, f Fields[R], c Criteria) []R {
	out := make([]R, 0, len(rows))
	for _, r := range rows {
		if f.Match(c, r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseDate parses the YYYY-MM-DD value of a date picker in loc. An empty
// value means no bound.
func ParseDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
