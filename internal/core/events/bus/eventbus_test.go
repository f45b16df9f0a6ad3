package bus

import (
	"errors"
	"testing"
	"time"
)

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_ string, _ Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_ string, handlers int, err error, _ time.Duration) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	called := 0
	_, err := b.Subscribe("body.created", func(e Event) error {
		called++
		if e.Source() != "engine" {
			t.Fatalf("unexpected source %q", e.Source())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err = b.Publish(NewEvent("body.created", "engine", 123, 0, nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err = b.Publish(NewEvent("body.removed", "engine", 123, 0, nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if called != 1 {
		t.Fatalf("handler called %d times", called)
	}
}

func TestDeliveryFollowsSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	for i := 0; i < 16; i++ {
		i := i
		eventType := "link.created"
		if i%3 == 0 {
			eventType = Wildcard
		}
		if _, err := b.Subscribe(eventType, func(Event) error { order = append(order, i); return nil }); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	_ = b.Publish(NewEvent("link.created", "src", nil, 0, nil))
	if len(order) != 16 {
		t.Fatalf("expected 16 deliveries, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("delivery out of order: %v", order)
		}
	}
}

func TestPublishAsyncReturnsErrorChannel(t *testing.T) {
	b := New()
	handlerErr := errors.New("fail")
	_, err := b.Subscribe("x", func(e Event) error { return handlerErr })
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	select {
	case e := <-b.PublishAsync(NewEvent("x", "src", nil, 0, nil)):
		if !errors.Is(e, handlerErr) {
			t.Fatalf("expected handler error, got %v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("async publish did not complete")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	sub, _ := b.Subscribe("ev", func(e Event) error { count++; return nil })
	_ = b.Publish(NewEvent("ev", "src", nil, 0, nil))
	if err := b.Unsubscribe(sub); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	_ = sub.Cancel()
	_ = b.Publish(NewEvent("ev", "src", nil, 0, nil))
	if count != 1 || sub.IsActive() {
		t.Fatalf("cancel failed: count=%d active=%v", count, sub.IsActive())
	}
	if err := b.Unsubscribe(nil); err != nil {
		t.Fatalf("nil unsubscribe: %v", err)
	}
	if _, err := b.Subscribe("ev", nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	_, _ = b.Subscribe("e", func(e Event) error { return nil })
	_ = b.Publish(NewEvent("e", "s", nil, 0, nil))
	if m := b.GetMetrics(); m.Published != 0 || m.DeliveredHandlers != 0 {
		t.Fatalf("metrics should be zero without observers: %+v", m)
	}
	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil, 0, nil))
	m := b.GetMetrics()
	if m.Published != 1 || m.DeliveredHandlers != 1 || m.SubscribersActive != 1 {
		t.Fatalf("metrics should update with observer: %+v", m)
	}
	if obs.publishCount != 1 || obs.deliveredCount != 1 {
		t.Fatalf("observer not called: %+v", obs)
	}
	b.RemoveObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil, 0, nil))
	if obs.publishCount != 1 {
		t.Fatalf("removed observer still notified")
	}
}
