// Package rows flattens backend records into display rows for the dashboard
// tables. Rows are derived on every read and never written back.
package rows

import (
	"time"

	"github.com/example/shopdash/pkg/format"
)

// Projector formats timestamps in a fixed location so every view shows the
// same calendar day for the same record.
type Projector struct {
	Loc *time.Location
}

// NewProjector returns a projector for loc, defaulting to UTC.
func NewProjector(loc *time.Location) Projector {
	if loc == nil {
		loc = time.UTC
	}
	return Projector{Loc: loc}
}

func (p Projector) local(t time.Time) time.Time {
	if t.IsZero() || p.Loc == nil {
		return t
	}
	return t.In(p.Loc)
}

func (p Projector) date(t time.Time) string {
	return format.Date(p.local(t))
}

func (p Projector) clock(t time.Time) string {
	return format.Time(p.local(t))
}

// Row is implemented by every row type so views can find the record behind
// a row.
type Row[T any] interface {
	RowID() string
	Source() *T
}
