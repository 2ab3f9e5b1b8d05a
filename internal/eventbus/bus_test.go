package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	require.True(t, matches("*", "anything.at.all"))
	require.True(t, matches("sentiment.analyzed", "sentiment.analyzed"))
	require.False(t, matches("sentiment.analyzed", "sentiment.other"))
	require.True(t, matches("carrier.*", "carrier.failover_succeeded"))
	require.False(t, matches("carrier.*", "carriers.failover_succeeded"))
	require.False(t, matches("carrier.*", "carrier"))
}

func TestSubscribeReceivesMatchingTopicOnly(t *testing.T) {
	b := New()
	var mu sync.Mutex
	var received []string

	unsub := b.Subscribe("carrier.*", func(ctx context.Context, evt Event) {
		mu.Lock()
		received = append(received, evt.Type)
		mu.Unlock()
	})
	defer unsub()

	b.Publish(context.Background(), Event{Type: "carrier.failover_succeeded"})
	b.Publish(context.Background(), Event{Type: "sentiment.analyzed"})
	b.Publish(context.Background(), Event{Type: "carrier.blacklisted"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"carrier.failover_succeeded", "carrier.blacklisted"}, received)
}

func TestPublishFillsTimestampAndCorrelationID(t *testing.T) {
	b := New()
	done := make(chan Event, 1)
	unsub := b.Subscribe("*", func(ctx context.Context, evt Event) { done <- evt })
	defer unsub()

	b.Publish(context.Background(), Event{Type: "x.y"})

	select {
	case evt := <-done:
		require.False(t, evt.Timestamp.IsZero())
		require.NotEmpty(t, evt.CorrelationID)
	case <-time.After(time.Second):
		t.Fatal("handler never received event")
	}
}

func TestPerSubscriberFIFOOrdering(t *testing.T) {
	b := New()
	var mu sync.Mutex
	var order []int

	unsub := b.Subscribe("seq.*", func(ctx context.Context, evt Event) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, evt.Payload.(int))
		mu.Unlock()
	})
	defer unsub()

	for i := 0; i < 20; i++ {
		b.Publish(context.Background(), Event{Type: "seq.tick", Payload: i})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 20
	}, 2*time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		require.Equal(t, i, v, "events for one subscriber must be delivered in publish order")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	var count int
	var mu sync.Mutex
	unsub := b.Subscribe("x.*", func(ctx context.Context, evt Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.Publish(context.Background(), Event{Type: "x.one"})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, time.Millisecond)

	unsub()
	b.Publish(context.Background(), Event{Type: "x.two"})
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, count)
}

func TestSwarmOrchestratorRaisesFraudSuspectOnThirdFailoverWithinWindow(t *testing.T) {
	b := New()
	s := NewSwarmOrchestrator(b)
	s.now = func() time.Time { return time.Unix(0, 0) }

	suspects := make(chan FraudSuspectEvent, 1)
	unsub := b.Subscribe("carrier.fraud_suspect", func(ctx context.Context, evt Event) {
		suspects <- evt.Payload.(FraudSuspectEvent)
	})
	defer unsub()

	publish := func() {
		b.Publish(context.Background(), Event{
			Type:    "carrier.failover_succeeded",
			Payload: FailoverSucceededEvent{FromCarrierID: "carrier-7"},
		})
	}
	publish()
	publish()

	select {
	case <-suspects:
		t.Fatal("fraud_suspect should not fire before the third incident")
	case <-time.After(50 * time.Millisecond):
	}

	publish()

	select {
	case fs := <-suspects:
		require.Equal(t, "carrier-7", fs.CarrierID)
		require.Equal(t, 3, fs.IncidentsIn24h)
	case <-time.After(time.Second):
		t.Fatal("expected carrier.fraud_suspect after third incident")
	}
}

func TestSwarmOrchestratorIgnoresIncidentsOutsideWindow(t *testing.T) {
	b := New()
	s := NewSwarmOrchestrator(b)
	current := time.Unix(0, 0)
	s.now = func() time.Time { return current }

	suspects := make(chan FraudSuspectEvent, 1)
	unsub := b.Subscribe("carrier.fraud_suspect", func(ctx context.Context, evt Event) {
		suspects <- evt.Payload.(FraudSuspectEvent)
	})
	defer unsub()

	publish := func() {
		b.Publish(context.Background(), Event{
			Type:    "carrier.failover_succeeded",
			Payload: FailoverSucceededEvent{FromCarrierID: "carrier-9"},
		})
	}

	publish()
	current = current.Add(25 * time.Hour)
	publish()
	current = current.Add(time.Minute)
	publish()

	select {
	case <-suspects:
		t.Fatal("first incident fell outside the 24h window and should not count toward the threshold")
	case <-time.After(50 * time.Millisecond):
	}
}
