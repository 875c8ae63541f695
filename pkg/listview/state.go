// Package listview runs the dashboard list views: fetch on mount, hold the
// raw records, derive filtered rows on demand, and refetch after every
// mutation.
package listview

import (
	"context"
	"errors"

	"github.com/example/shopdash/pkg/filter"
)

// State is the fetch state of a view.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

var (
	ErrNotMounted  = errors.New("view is not mounted")
	ErrStale       = errors.New("response discarded: view moved on")
	ErrDeclined    = errors.New("action not confirmed")
	ErrNotFound    = errors.New("record not in view")
	ErrUnsupported = errors.New("action not supported by view")
)

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Answer is a Confirmer with a fixed reply, for callers that collected the
// user's answer up front.
type Answer bool

func (a Answer) Confirm(context.Context, string) (bool, error) { return bool(a), nil }

// Snapshot is what a view shows right now.
type Snapshot struct {
	View     string          `json:"view"`
	State    State           `json:"state"`
	Rows     any             `json:"rows"`
	Count    int             `json:"count"`
	Total    int             `json:"total"`
	Error    string          `json:"error,omitempty"`
	Criteria filter.Criteria `json:"criteria"`
}

// View is the type erased surface of a Controller.
type View interface {
	Name() string
	State() State
	Mounted() bool
	Mount(ctx context.Context) error
	Unmount()
	Refresh(ctx context.Context) error
	DeletePrompt(id string) (string, error)
	Delete(ctx context.Context, id string, confirm Confirmer) error
	Mutate(ctx context.Context, action string, fn func(context.Context) error) error
	Search(c filter.Criteria)
	Query(ctx context.Context, c *filter.Criteria) (Snapshot, error)
	Snapshot(c *filter.Criteria) Snapshot
	Preview(id string) (any, bool)
}
