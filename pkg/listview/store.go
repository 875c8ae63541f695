package listview

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/shopdash/pkg/backend"
	"github.com/example/shopdash/pkg/filter"
)

// Store holds the views of one session. Each view owns its own records;
// callers read them through Snapshot or Select and never write them.
type Store struct {
	client    *backend.Client
	principal Principal
	opts      Options
	factories map[string]Factory
	wrap      func(View) View

	mu    sync.Mutex
	views map[string]View
}

type StoreOption func(*Store)

// WithFactories replaces the catalog, mostly for tests.
func WithFactories(fs map[string]Factory) StoreOption {
	return func(s *Store) { s.factories = fs }
}

// WithWrap decorates every view the store builds, e.g. to run it on an
// actor.
func WithWrap(wrap func(View) View) StoreOption {
	return func(s *Store) { s.wrap = wrap }
}

func NewStore(client *backend.Client, p Principal, opts Options, so ...StoreOption) *Store {
	s := &Store{
		client:    client,
		principal: p,
		opts:      opts,
		factories: Catalog(),
		views:     make(map[string]View),
	}
	for _, o := range so {
		o(s)
	}
	return s
}

func (s *Store) Principal() Principal { return s.principal }

// View returns the named view, building it on first use. It is not mounted.
func (s *Store) View(name string) (View, error) {
	f, ok := s.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, name)
	}
	if !f.Allows(s.principal.Role) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[name]; ok {
		return v, nil
	}
	v := f.New(s.client, s.principal, s.opts)
	if s.wrap != nil {
		v = s.wrap(v)
	}
	s.views[name] = v
	return v, nil
}

// Open returns the named view, mounted. When the first fetch fails the view
// is still returned, in its error state, together with the fetch error.
func (s *Store) Open(ctx context.Context, name string) (View, error) {
	v, err := s.View(name)
	if err != nil {
		return nil, err
	}
	if v.Mounted() {
		return v, nil
	}
	if err := v.Mount(ctx); err != nil {
		if v.Mounted() {
			return v, err
		}
		return nil, err
	}
	return v, nil
}

// Close unmounts the named view. Closing a view that was never opened does
// nothing.
func (s *Store) Close(name string) {
	s.mu.Lock()
	v, ok := s.views[name]
	s.mu.Unlock()
	if ok {
		v.Unmount()
	}
}

// CloseAll unmounts every view and stops the actors behind them, as when
// the session ends.
func (s *Store) CloseAll() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]View)
	s.mu.Unlock()
	for _, v := range views {
		if st, ok := v.(interface{ Stop() error }); ok {
			_ = st.Stop()
			continue
		}
		v.Unmount()
	}
}

// Mounted lists the names of the views currently mounted.
func (s *Store) Mounted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0)
	for name, v := range s.views {
		if v.Mounted() {
			names = append(names, name)
		}
	}
	return names
}

type rowSource[R any] interface {
	Rows(c *filter.Criteria) []R
}

// Select returns the typed rows of a view under c, or under the view's
// applied criteria when c is nil.
func Select[R any](s *Store, name string, c *filter.Criteria) ([]R, error) {
	v, err := s.View(name)
	if err != nil {
		return nil, err
	}
	src, ok := unwrap(v).(rowSource[R])
	if !ok {
		return nil, fmt.Errorf("view %s does not hold %T rows", name, *new(R))
	}
	return src.Rows(c), nil
}

func unwrap(v View) View {
	for {
		u, ok := v.(interface{ Unwrap() View })
		if !ok {
			return v
		}
		v = u.Unwrap()
	}
}
