package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ares-io/ares-core/internal/model"
	"github.com/ares-io/ares-core/internal/telemetry"
)

// TestPublishOrderMatchesReceiveOrder validates the spec §8 quantified
// property: for any two events on the same task:* topic, receive order
// equals publish order for a subscriber whose queue never overflows.
func TestPublishOrderMatchesReceiveOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("events arrive in publish order on a non-overflowing subscriber", prop.ForAll(
		func(n int) bool {
			bus := NewBus(telemetry.NoopSet(), DefaultQueueCapacity)
			sub := bus.Subscribe("task:ordering", n+1)
			defer sub.Close()

			ctx := context.Background()
			for i := 0; i < n; i++ {
				bus.Publish(ctx, model.Event{Topic: "task:ordering", Timestamp: time.Unix(int64(i), 0)})
			}

			for i := 0; i < n; i++ {
				select {
				case ev := <-sub.Events():
					if ev.Timestamp.Unix() != int64(i) {
						return false
					}
				case <-time.After(time.Second):
					return false
				}
			}
			return sub.Dropped() == 0
		},
		gen.IntRange(0, 64),
	))

	properties.TestingRun(t)
}
