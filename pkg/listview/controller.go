package listview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/shopdash/pkg/backend"
	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/metrics"
	"github.com/example/shopdash/pkg/notify"
	"github.com/example/shopdash/pkg/preview"
	"github.com/example/shopdash/pkg/rows"
)

// Definition describes one list view: where its records come from, how they
// become rows and what they are searched on.
type Definition[T any, R rows.Row[T]] struct {
	Name string
	// Noun names one record in toast messages, e.g. "Product".
	Noun    string
	Fetch   func(ctx context.Context, search string) ([]T, error)
	Delete  func(ctx context.Context, id string) error
	Project func(p rows.Projector, records []T) []R
	Fields  filter.Fields[R]
	Preview func(loc *time.Location) preview.Renderer[T]
	// ServerSearch views send the search term to the backend and refetch
	// instead of matching text locally.
	ServerSearch bool
}

type Options struct {
	Session   string
	Projector rows.Projector
	Notifier  notify.Notifier
	Logger    *zap.Logger
	Debounce  time.Duration
	// KeepStale leaves the last good records in place when a fetch fails.
	KeepStale bool
}

// Controller is the state machine behind one mounted list view. It is safe
// for concurrent use.
type Controller[T any, R rows.Row[T]] struct {
	def  Definition[T, R]
	opts Options

	mu       sync.RWMutex
	state    State
	records  []T
	lastErr  error
	criteria filter.Criteria
	searched string // term the records were fetched with
	gen      uint64
	mounted  bool
	life     context.Context
	stop     context.CancelFunc

	debounce *Debouncer
}

func NewController[T any, R rows.Row[T]](def Definition[T, R], opts Options) *Controller[T, R] {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Projector.Loc == nil {
		opts.Projector = rows.NewProjector(nil)
	}
	return &Controller[T, R]{
		def:      def,
		opts:     opts,
		state:    StateIdle,
		debounce: NewDebouncer(opts.Debounce),
	}
}

func (c *Controller[T, R]) Name() string { return c.def.Name }

func (c *Controller[T, R]) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller[T, R]) Mounted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mounted
}

// Mount starts the view's lifecycle and fetches. Mounting a mounted view
// does nothing.
func (c *Controller[T, R]) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return nil
	}
	c.mounted = true
	c.life, c.stop = context.WithCancel(context.Background())
	c.mu.Unlock()

	c.debounce.Resume()
	metrics.MountedViews.Inc()
	c.opts.Logger.Debug("View mounted", zap.String("view", c.def.Name), zap.String("session", c.opts.Session))
	return c.Refresh(ctx)
}

// Unmount cancels in-flight fetches and drops the records. Responses that
// arrive afterwards are discarded.
func (c *Controller[T, R]) Unmount() {
	c.debounce.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	c.stop()
	c.mounted = false
	c.gen++
	c.state = StateIdle
	c.records = nil
	c.lastErr = nil
	c.criteria = filter.Criteria{}
	c.searched = ""
	metrics.MountedViews.Dec()
	c.opts.Logger.Debug("View unmounted", zap.String("view", c.def.Name), zap.String("session", c.opts.Session))
}

// Refresh refetches the whole collection and replaces the records wholesale.
// Only the latest fetch may change the view; earlier ones still in flight
// are discarded with ErrStale.
func (c *Controller[T, R]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	c.gen++
	gen := c.gen
	prev := c.state
	c.state = StateLoading
	search := ""
	if c.def.ServerSearch {
		search = c.criteria.Term
	}
	life := c.life
	c.mu.Unlock()

	fctx, cancel := bind(ctx, life)
	defer cancel()
	records, err := c.def.Fetch(fctx, search)

	c.mu.Lock()
	if gen != c.gen || !c.mounted {
		c.mu.Unlock()
		c.opts.Logger.Debug("Discarding late response", zap.String("view", c.def.Name))
		return ErrStale
	}
	if err != nil && backend.IsCanceled(err) {
		// the caller went away; nothing to tell the user
		c.state = prev
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.state = StateError
		c.lastErr = err
		if !c.opts.KeepStale {
			c.records = nil
		}
		c.mu.Unlock()

		metrics.ViewFetches.WithLabelValues(c.def.Name, "error").Inc()
		c.opts.Logger.Warn("Fetch failed", zap.String("view", c.def.Name), zap.Error(err))
		c.toast(ctx, notify.LevelError, backend.ToastMessage(err))
		return err
	}
	c.records = records
	c.searched = search
	c.lastErr = nil
	c.state = StateSuccess
	c.mu.Unlock()

	metrics.ViewFetches.WithLabelValues(c.def.Name, "ok").Inc()
	return nil
}

// DeletePrompt checks that id can be deleted from the view and returns the
// question to put to the user.
func (c *Controller[T, R]) DeletePrompt(id string) (string, error) {
	if c.def.Delete == nil {
		return "", ErrUnsupported
	}
	if !c.Mounted() {
		return "", ErrNotMounted
	}
	if _, ok := c.Record(id); !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("Are you sure you want to delete this %s?", c.noun()), nil
}

// Delete asks for confirmation once and, when confirmed, issues exactly one
// delete followed by exactly one refetch. Nothing is removed locally.
func (c *Controller[T, R]) Delete(ctx context.Context, id string, confirm Confirmer) error {
	prompt, err := c.DeletePrompt(id)
	if err != nil {
		return err
	}
	ok, err := confirm.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}
	return c.Mutate(ctx, "delete", func(ctx context.Context) error {
		return c.def.Delete(ctx, id)
	})
}

// Mutate runs a create, update or delete against the backend and, once it
// has succeeded, refetches. The result is the mutation's own: a refetch that
// fails afterwards leaves the view in its error state but is not returned.
func (c *Controller[T, R]) Mutate(ctx context.Context, action string, fn func(context.Context) error) error {
	if !c.Mounted() {
		return ErrNotMounted
	}
	if err := fn(ctx); err != nil {
		metrics.Mutations.WithLabelValues(c.def.Name, action, "error").Inc()
		c.opts.Logger.Warn("Mutation failed",
			zap.String("view", c.def.Name),
			zap.String("action", action),
			zap.Error(err))
		c.toast(ctx, notify.LevelError, backend.ToastMessage(err))
		return err
	}
	metrics.Mutations.WithLabelValues(c.def.Name, action, "ok").Inc()
	c.toast(ctx, notify.LevelSuccess, fmt.Sprintf("%s %s successfully", c.noun(), pastTense(action)))
	if err := c.Refresh(ctx); err != nil {
		c.opts.Logger.Debug("Refetch after mutation failed",
			zap.String("view", c.def.Name),
			zap.String("action", action),
			zap.Error(err))
	}
	return nil
}

// Search applies criteria once the input has been quiet for the debounce
// delay. Server searched views refetch when the term changed.
func (c *Controller[T, R]) Search(cr filter.Criteria) {
	c.debounce.Trigger(func() {
		c.mu.RLock()
		life := c.life
		c.mu.RUnlock()
		if life == nil {
			return
		}
		if err := c.apply(life, cr); err != nil && err != ErrStale && err != ErrNotMounted {
			c.opts.Logger.Debug("Search refetch failed", zap.String("view", c.def.Name), zap.Error(err))
		}
	})
}

// Query applies cr at once, refetching first when the backend has to do the
// text matching, and returns the resulting snapshot. A nil cr uses the
// criteria last applied.
func (c *Controller[T, R]) Query(ctx context.Context, cr *filter.Criteria) (Snapshot, error) {
	if cr != nil {
		c.debounce.Cancel()
		if err := c.apply(ctx, *cr); err != nil && err != ErrStale {
			return c.Snapshot(nil), err
		}
	}
	return c.Snapshot(nil), nil
}

func (c *Controller[T, R]) apply(ctx context.Context, cr filter.Criteria) error {
	c.mu.Lock()
	c.criteria = cr
	refetch := c.def.ServerSearch && c.mounted && cr.Term != c.searched
	c.mu.Unlock()
	if refetch {
		return c.Refresh(ctx)
	}
	return nil
}

// Criteria returns the criteria last applied.
func (c *Controller[T, R]) Criteria() filter.Criteria {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.criteria
}

// Rows projects the current records and filters them by cr, or by the
// applied criteria when cr is nil.
func (c *Controller[T, R]) Rows(cr *filter.Criteria) []R {
	c.mu.RLock()
	records := c.records
	applied := c.criteria
	c.mu.RUnlock()

	if cr != nil {
		applied = *cr
	}
	if c.def.ServerSearch {
		applied.Term = ""
	}
	return filter.Apply(c.def.Project(c.opts.Projector, records), c.def.Fields, applied)
}

func (c *Controller[T, R]) Snapshot(cr *filter.Criteria) Snapshot {
	c.mu.RLock()
	state, lastErr, applied := c.state, c.lastErr, c.criteria
	total := len(c.records)
	c.mu.RUnlock()

	if cr != nil {
		applied = *cr
	}
	rs := c.Rows(&applied)
	s := Snapshot{
		View:     c.def.Name,
		State:    state,
		Rows:     rs,
		Count:    len(rs),
		Total:    total,
		Criteria: applied,
	}
	if lastErr != nil && state == StateError {
		s.Error = backend.ToastMessage(lastErr)
	}
	return s
}

// Record finds the original record behind a row.
func (c *Controller[T, R]) Record(id string) (*T, bool) {
	c.mu.RLock()
	records := c.records
	c.mu.RUnlock()

	for _, r := range c.def.Project(c.opts.Projector, records) {
		if r.RowID() == id {
			return r.Source(), r.Source() != nil
		}
	}
	return nil, false
}

// Preview renders the record through an opened modal.
func (c *Controller[T, R]) Preview(id string) (any, bool) {
	if c.def.Preview == nil {
		return nil, false
	}
	rec, ok := c.Record(id)
	if !ok {
		return nil, false
	}
	m := preview.NewModal(c.def.Preview(c.opts.Projector.Loc), nil)
	m.Open(rec)
	return m.Render()
}

func (c *Controller[T, R]) noun() string {
	if c.def.Noun != "" {
		return c.def.Noun
	}
	return "Record"
}

func (c *Controller[T, R]) toast(ctx context.Context, level notify.Level, msg string) {
	c.opts.Notifier.Notify(ctx, notify.Toast{
		Session: c.opts.Session,
		Level:   level,
		Message: msg,
		At:      time.Now(),
	})
}

func pastTense(action string) string {
	switch action {
	case "create":
		return "created"
	case "update":
		return "updated"
	case "delete":
		return "deleted"
	}
	return action
}

// bind returns a context canceled when either ctx or life ends.
func bind(ctx, life context.Context) (context.Context, context.CancelFunc) {
	out, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(life, cancel)
	return out, func() {
		stop()
		cancel()
	}
}
