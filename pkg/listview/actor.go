package listview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"github.com/example/shopdash/pkg/filter"
)

// Commands a view actor handles, one at a time.
type (
	mountView struct {
		ctx context.Context
	}
	refreshView struct {
		ctx context.Context
	}
	deleteRecord struct {
		ctx     context.Context
		id      string
		confirm Confirmer
	}
	mutateView struct {
		ctx    context.Context
		action string
		fn     func(context.Context) error
	}
	queryView struct {
		ctx      context.Context
		criteria *filter.Criteria
	}
)

type viewResult struct {
	snapshot Snapshot
	err      error
}

// viewActor serializes the commands for one view so a refresh never
// overlaps a delete or another refresh.
type viewActor struct {
	view   View
	logger *zap.Logger
}

func (a *viewActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *mountView:
		ctx.Respond(&viewResult{err: a.view.Mount(msg.ctx)})

	case *refreshView:
		ctx.Respond(&viewResult{err: a.view.Refresh(msg.ctx)})

	case *deleteRecord:
		a.logger.Info("Deleting record", zap.String("view", a.view.Name()), zap.String("id", msg.id))
		ctx.Respond(&viewResult{err: a.view.Delete(msg.ctx, msg.id, msg.confirm)})

	case *mutateView:
		a.logger.Info("Running mutation", zap.String("view", a.view.Name()), zap.String("action", msg.action))
		ctx.Respond(&viewResult{err: a.view.Mutate(msg.ctx, msg.action, msg.fn)})

	case *queryView:
		s, err := a.view.Query(msg.ctx, msg.criteria)
		ctx.Respond(&viewResult{snapshot: s, err: err})

	case *actor.Started:
		a.logger.Debug("View actor started", zap.String("view", a.view.Name()))

	case *actor.Stopped:
		a.logger.Debug("View actor stopped", zap.String("view", a.view.Name()))
	}
}

// Handle is a View whose commands run on an actor. Reads go straight to the
// view. Unmount also bypasses the mailbox so it can cancel a fetch the actor
// is blocked on.
type Handle struct {
	view    View
	system  *actor.ActorSystem
	pid     *actor.PID
	timeout time.Duration
}

// Spawn starts an actor for v. timeout bounds a command whose context has
// no deadline of its own.
func Spawn(system *actor.ActorSystem, v View, logger *zap.Logger, timeout time.Duration) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return &viewActor{view: v, logger: logger.Named("view-actor")}
	})
	return &Handle{
		view:    v,
		system:  system,
		pid:     system.Root.Spawn(props),
		timeout: timeout,
	}
}

// Spawner returns a Store wrap option running every view on its own actor.
func Spawner(system *actor.ActorSystem, logger *zap.Logger, timeout time.Duration) StoreOption {
	return WithWrap(func(v View) View {
		return Spawn(system, v, logger, timeout)
	})
}

// request sends msg with a context bounded by the same deadline the reply
// is awaited with, so the actor stops working once the caller gave up.
func (h *Handle) request(ctx context.Context, build func(context.Context) any) (*viewResult, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	dl, _ := ctx.Deadline()
	timeout := time.Until(dl)
	if timeout <= 0 {
		return nil, fmt.Errorf("view %s: %w", h.view.Name(), context.DeadlineExceeded)
	}
	res, err := h.system.Root.RequestFuture(h.pid, build(ctx), timeout).Result()
	if err != nil {
		if errors.Is(err, actor.ErrTimeout) {
			return nil, fmt.Errorf("view %s: %w", h.view.Name(), context.DeadlineExceeded)
		}
		return nil, err
	}
	r, ok := res.(*viewResult)
	if !ok {
		return nil, fmt.Errorf("view %s: unexpected reply %T", h.view.Name(), res)
	}
	return r, nil
}

func (h *Handle) do(ctx context.Context, build func(context.Context) any) error {
	r, err := h.request(ctx, build)
	if err != nil {
		return err
	}
	return r.err
}

func (h *Handle) Unwrap() View             { return h.view }
func (h *Handle) Name() string             { return h.view.Name() }
func (h *Handle) State() State             { return h.view.State() }
func (h *Handle) Mounted() bool            { return h.view.Mounted() }
func (h *Handle) Unmount()                 { h.view.Unmount() }
func (h *Handle) Search(c filter.Criteria) { h.view.Search(c) }

func (h *Handle) Mount(ctx context.Context) error {
	return h.do(ctx, func(ctx context.Context) any { return &mountView{ctx: ctx} })
}

func (h *Handle) Refresh(ctx context.Context) error {
	return h.do(ctx, func(ctx context.Context) any { return &refreshView{ctx: ctx} })
}

func (h *Handle) DeletePrompt(id string) (string, error) { return h.view.DeletePrompt(id) }

// Delete asks for confirmation before the command is queued, so the time the
// user takes to answer never counts against the command's deadline.
func (h *Handle) Delete(ctx context.Context, id string, confirm Confirmer) error {
	prompt, err := h.view.DeletePrompt(id)
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
	return h.do(ctx, func(ctx context.Context) any {
		return &deleteRecord{ctx: ctx, id: id, confirm: Answer(true)}
	})
}

func (h *Handle) Mutate(ctx context.Context, action string, fn func(context.Context) error) error {
	return h.do(ctx, func(ctx context.Context) any {
		return &mutateView{ctx: ctx, action: action, fn: fn}
	})
}

func (h *Handle) Query(ctx context.Context, c *filter.Criteria) (Snapshot, error) {
	r, err := h.request(ctx, func(ctx context.Context) any {
		return &queryView{ctx: ctx, criteria: c}
	})
	if err != nil {
		return h.view.Snapshot(c), err
	}
	return r.snapshot, r.err
}

func (h *Handle) Snapshot(c *filter.Criteria) Snapshot { return h.view.Snapshot(c) }

func (h *Handle) Preview(id string) (any, bool) { return h.view.Preview(id) }

// Stop unmounts the view and stops its actor.
func (h *Handle) Stop() error {
	h.view.Unmount()
	return h.system.Root.PoisonFuture(h.pid).Wait()
}
