package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
	"github.com/ares-io/ares-core/internal/telemetry"
)

func testEvent(topic string) model.Event {
	return model.Event{Kind: model.TaskStateChanged, Topic: topic, Timestamp: time.Unix(0, 0)}
}

func TestBusPublishDeliversToMatchingTopic(t *testing.T) {
	bus := NewBus(telemetry.NoopSet(), DefaultQueueCapacity)
	ctx := context.Background()

	taskID := ids.NewTaskId()
	topic := model.TaskTopic(taskID)
	sub := bus.Subscribe(topic, 4)
	defer sub.Close()

	bus.Publish(ctx, testEvent(topic))

	select {
	case evt := <-sub.Events():
		require.Equal(t, topic, evt.Topic)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusPublishDoesNotCrossDeliverTopics(t *testing.T) {
	bus := NewBus(telemetry.NoopSet(), DefaultQueueCapacity)
	ctx := context.Background()

	subA := bus.Subscribe("task:a", 4)
	defer subA.Close()

	bus.Publish(ctx, testEvent("task:b"))

	select {
	case <-subA.Events():
		t.Fatal("subscriber for task:a received an event published to task:b")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusSystemTopicReceivesEverything(t *testing.T) {
	bus := NewBus(telemetry.NoopSet(), DefaultQueueCapacity)
	ctx := context.Background()

	sub := bus.Subscribe(model.SystemTopic, 4)
	defer sub.Close()

	bus.Publish(ctx, testEvent("task:anything"))

	select {
	case evt := <-sub.Events():
		require.Equal(t, "task:anything", evt.Topic)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event on system topic")
	}
}

func TestBusDropsAndCountsOnFullQueue(t *testing.T) {
	bus := NewBus(telemetry.NoopSet(), DefaultQueueCapacity)
	ctx := context.Background()

	sub := bus.Subscribe("task:full", 1)
	defer sub.Close()

	bus.Publish(ctx, testEvent("task:full"))
	bus.Publish(ctx, testEvent("task:full")) // queue capacity 1, this one drops

	require.Equal(t, uint64(1), sub.Dropped())
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	bus := NewBus(telemetry.NoopSet(), DefaultQueueCapacity)
	ctx := context.Background()

	sub := bus.Subscribe("task:x", 4)
	sub.Close()

	bus.Publish(ctx, testEvent("task:x"))

	_, open := <-sub.Events()
	require.False(t, open)
}

func TestBusRoundRobinsAcrossSharedTopicSubscribers(t *testing.T) {
	bus := NewBus(telemetry.NoopSet(), DefaultQueueCapacity)
	ctx := context.Background()

	subA := bus.Subscribe("task:shared", 1)
	defer subA.Close()
	subB := bus.Subscribe("task:shared", 1)
	defer subB.Close()

	bus.Publish(ctx, testEvent("task:shared"))
	bus.Publish(ctx, testEvent("task:shared"))

	gotA := drainLen(subA.Events())
	gotB := drainLen(subB.Events())
	require.Equal(t, 1, gotA)
	require.Equal(t, 1, gotB)
}

func TestBusCloseStopsEveryLiveSubscription(t *testing.T) {
	bus := NewBus(telemetry.NoopSet(), DefaultQueueCapacity)
	subA := bus.Subscribe("task:x", 1)
	subB := bus.Subscribe("agent:y", 1)

	bus.Close()

	_, openA := <-subA.Events()
	_, openB := <-subB.Events()
	require.False(t, openA)
	require.False(t, openB)
}

func drainLen(ch <-chan model.Event) int {
	n := 0
	for {
		select {
		case <-ch:
			n++
		case <-time.After(20 * time.Millisecond):
			return n
		}
	}
}
