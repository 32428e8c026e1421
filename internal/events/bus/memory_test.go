package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/logger"
)

type eventCollector struct {
	mu     sync.Mutex
	events []*Event
}

func (c *eventCollector) handler(_ context.Context, e *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *eventCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestMemoryBus_ExactSubjectDelivery(t *testing.T) {
	b := NewMemoryEventBus(logger.NewNop())
	defer b.Close()

	collector := &eventCollector{}
	_, err := b.Subscribe("terminal.session.started", collector.handler)
	require.NoError(t, err)

	event := NewEvent("terminal.session.started", "test", map[string]interface{}{"session_id": "p1_bash"})
	require.NoError(t, b.Publish(context.Background(), "terminal.session.started", event))

	require.Eventually(t, func() bool {
		return collector.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	collector.mu.Lock()
	defer collector.mu.Unlock()
	assert.Equal(t, "terminal.session.started", collector.events[0].Type)
	assert.Equal(t, "p1_bash", collector.events[0].Data["session_id"])
	assert.NotEmpty(t, collector.events[0].ID)
}

func TestMemoryBus_WildcardSubscription(t *testing.T) {
	b := NewMemoryEventBus(logger.NewNop())
	defer b.Close()

	collector := &eventCollector{}
	_, err := b.Subscribe("terminal.session.*", collector.handler)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, "terminal.session.started", NewEvent("terminal.session.started", "test", nil)))
	require.NoError(t, b.Publish(ctx, "terminal.session.ended", NewEvent("terminal.session.ended", "test", nil)))
	// A deeper subject does not match a single-token wildcard.
	require.NoError(t, b.Publish(ctx, "terminal.session.started.extra", NewEvent("x", "test", nil)))
	// An unrelated subject never matches.
	require.NoError(t, b.Publish(ctx, "project.created", NewEvent("project.created", "test", nil)))

	require.Eventually(t, func() bool {
		return collector.count() == 2
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, collector.count())
}

func TestMemoryBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewMemoryEventBus(logger.NewNop())
	defer b.Close()

	collector := &eventCollector{}
	sub, err := b.Subscribe("terminal.session.*", collector.handler)
	require.NoError(t, err)
	require.True(t, sub.IsValid())

	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.IsValid())

	require.NoError(t, b.Publish(context.Background(), "terminal.session.started",
		NewEvent("terminal.session.started", "test", nil)))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, collector.count())
}

func TestMemoryBus_ClosedBusRejectsPublish(t *testing.T) {
	b := NewMemoryEventBus(logger.NewNop())
	b.Close()
	require.False(t, b.IsConnected())

	err := b.Publish(context.Background(), "terminal.session.started",
		NewEvent("terminal.session.started", "test", nil))
	assert.Error(t, err)

	_, err = b.Subscribe("terminal.session.*", (&eventCollector{}).handler)
	assert.Error(t, err)
}
