package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"github.com/example/shopdash/pkg/metrics"
)

type deliver struct {
	toast Toast
}

// toastActor hands toasts to the sinks one at a time, off the caller's path.
type toastActor struct {
	logger *zap.Logger
	sinks  Fanout
}

func (a *toastActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *deliver:
		a.logger.Debug("Delivering toast",
			zap.String("level", string(msg.toast.Level)),
			zap.String("message", msg.toast.Message))
		metrics.Toasts.WithLabelValues(string(msg.toast.Level)).Inc()
		a.sinks.Notify(context.Background(), msg.toast)

	case *actor.Started:
		a.logger.Info("Toast actor started")

	case *actor.Stopped:
		a.logger.Info("Toast actor stopped")
	}
}

// Dispatcher is a Notifier that queues toasts on an actor mailbox.
type Dispatcher struct {
	system *actor.ActorSystem
	pid    *actor.PID
}

func NewDispatcher(system *actor.ActorSystem, logger *zap.Logger, sinks ...Notifier) (*Dispatcher, error) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return &toastActor{logger: logger.Named("toast-actor"), sinks: Fanout(sinks)}
	})
	pid, err := system.Root.SpawnNamed(props, "toast-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn toast actor: %w", err)
	}
	return &Dispatcher{system: system, pid: pid}, nil
}

func (d *Dispatcher) Notify(_ context.Context, t Toast) {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	d.system.Root.Send(d.pid, &deliver{toast: t})
}

// Stop delivers what is queued and stops the actor.
func (d *Dispatcher) Stop() error {
	return d.system.Root.PoisonFuture(d.pid).Wait()
}
