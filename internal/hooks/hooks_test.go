package hooks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/agentdash/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestManager_On_And_Emit(t *testing.T) {
	m := testManager()

	var called bool
	m.On(EventServerStart, "test", func(_ context.Context, p Payload) error {
		called = true
		assert.Equal(t, EventServerStart, p.Event)
		return nil
	})

	m.Emit(context.Background(), EventServerStart, nil)
	assert.True(t, called)
}

func TestManager_Emit_MultipleHandlers(t *testing.T) {
	m := testManager()

	var order []string
	m.On(EventAgentRun, "first", func(_ context.Context, _ Payload) error {
		order = append(order, "first")
		return nil
	})
	m.On(EventAgentRun, "second", func(_ context.Context, _ Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), EventAgentRun, nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManager_Emit_WithData(t *testing.T) {
	m := testManager()

	var gotData map[string]any
	m.On(EventActionFailed, "test", func(_ context.Context, p Payload) error {
		gotData = p.Data
		return nil
	})

	m.Emit(context.Background(), EventActionFailed, map[string]any{
		"action": "price_optimization",
		"error":  "warehouse suspended",
	})

	assert.Equal(t, "price_optimization", gotData["action"])
	assert.Equal(t, "warehouse suspended", gotData["error"])
}

func TestManager_Emit_HandlerError(t *testing.T) {
	m := testManager()

	var secondCalled bool
	m.On(EventServerStart, "failing", func(_ context.Context, _ Payload) error {
		return errors.New("handler broke")
	})
	m.On(EventServerStart, "second", func(_ context.Context, _ Payload) error {
		secondCalled = true
		return nil
	})

	m.Emit(context.Background(), EventServerStart, nil)
	assert.True(t, secondCalled)
}

func TestManager_NilIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.Emit(context.Background(), EventServerStop, nil)
		m.EmitAsync(context.Background(), EventServerStop, nil)
	})
	assert.Equal(t, 0, m.Count(EventServerStop))
	assert.Nil(t, m.Events())
}

func TestManager_EmitAsync(t *testing.T) {
	m := testManager()

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)

	for _, name := range []string{"async1", "async2"} {
		m.On(EventActionCompleted, name, func(ctx context.Context, _ Payload) error {
			assert.NoError(t, ctx.Err())
			count.Add(1)
			wg.Done()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.EmitAsync(ctx, EventActionCompleted, nil)
	cancel()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handlers did not complete in time")
	}

	assert.Equal(t, int32(2), count.Load())
}

func TestManager_Events(t *testing.T) {
	m := testManager()

	m.On(EventAgentRun, "h1", func(_ context.Context, _ Payload) error { return nil })
	m.On(EventServerStart, "h2", func(_ context.Context, _ Payload) error { return nil })
	m.On("custom", "h3", func(_ context.Context, _ Payload) error { return nil })

	assert.Equal(t, []string{EventServerStart, EventAgentRun, "custom"}, m.Events())
}

func TestAllEvents(t *testing.T) {
	require.Len(t, AllEvents, 5)
	assert.Contains(t, AllEvents, EventActionFailed)
}
