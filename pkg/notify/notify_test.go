package notify

import (
	"context"
	"testing"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	system := actor.NewActorSystem()
	rec := &Recorder{}
	d, err := NewDispatcher(system, zaptest.NewLogger(t), rec)
	require.NoError(t, err)

	ctx := context.Background()
	d.Notify(ctx, Toast{Level: LevelSuccess, Message: "Product deleted"})
	d.Notify(ctx, Toast{Level: LevelError, Message: "Network error"})
	require.NoError(t, d.Stop())

	got := rec.Toasts()
	require.Len(t, got, 2)
	assert.Equal(t, "Product deleted", got[0].Message)
	assert.Equal(t, LevelError, got[1].Level)
	assert.False(t, got[0].At.IsZero())
}

func TestFanoutAndDrain(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Fanout{a, b, Discard}.Notify(context.Background(), Toast{Message: "hi"})

	assert.Len(t, a.Toasts(), 1)
	assert.Len(t, b.Drain(), 1)
	assert.Empty(t, b.Toasts())
}

func TestDispatcherFansOutToEverySink(t *testing.T) {
	system := actor.NewActorSystem()
	inbox, mirror := &Recorder{}, &Recorder{}
	d, err := NewDispatcher(system, zaptest.NewLogger(t), inbox, mirror)
	require.NoError(t, err)

	d.Notify(context.Background(), Toast{Session: "s1", Level: LevelInfo, Message: "Saved"})
	require.NoError(t, d.Stop())

	assert.Len(t, inbox.Toasts(), 1)
	assert.Len(t, mirror.Toasts(), 1)
}
