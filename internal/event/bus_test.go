package event

import (
	"sync"
	"testing"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe("item.admitted", func(e Event) {
		ev := e.(ItemAdmittedEvent)
		got = append(got, ev.ItemID)
	})

	bus.Publish(NewItemAdmittedEvent("item-1", "HIGH"))
	bus.Publish(NewItemCompletedEvent("item-1", 3)) // different type, ignored

	if len(got) != 1 || got[0] != "item-1" {
		t.Errorf("handler saw %v, want [item-1]", got)
	}
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	bus := NewBus()

	var types []string
	bus.SubscribeAll(func(e Event) {
		types = append(types, e.EventType())
	})

	bus.Publish(NewItemAdmittedEvent("item-1", "LOW"))
	bus.Publish(NewCacheHitEvent("key-1"))
	bus.Publish(NewPhaseChangedEvent("idle", "scanning"))

	want := []string{"item.admitted", "cache.hit", "phase.changed"}
	if len(types) != len(want) {
		t.Fatalf("wildcard handler saw %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestSpecificHandlersRunBeforeWildcard(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(Event) { order = append(order, "wildcard") })
	bus.Subscribe("cache.miss", func(Event) { order = append(order, "specific") })

	bus.Publish(NewCacheMissEvent("key-1"))

	if len(order) != 2 || order[0] != "specific" || order[1] != "wildcard" {
		t.Errorf("call order = %v, want [specific wildcard]", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id := bus.Subscribe("item.admitted", func(Event) { calls++ })

	bus.Publish(NewItemAdmittedEvent("item-1", "LOW"))
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe should find the subscription")
	}
	bus.Publish(NewItemAdmittedEvent("item-2", "LOW"))

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe should report not found")
	}
}

func TestPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()

	called := false
	bus.Subscribe("item.failed", func(Event) { panic("handler bug") })
	bus.Subscribe("item.failed", func(Event) { called = true })

	bus.Publish(NewItemFailedEvent("item-1", []int{2}, "failed steps 2 of 4"))

	if !called {
		t.Error("second handler should run despite the first panicking")
	}
}

func TestClearAndSubscriptionCount(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("item.admitted", func(Event) {})
	bus.Subscribe("item.completed", func(Event) {})
	bus.SubscribeAll(func(Event) {})

	if got := bus.SubscriptionCount(); got != 3 {
		t.Errorf("SubscriptionCount() = %d, want 3", got)
	}

	bus.Clear()
	if got := bus.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d, want 0", got)
	}
}

func TestPublishIsSafeUnderConcurrentSubscribe(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Subscribe("queue.depth_changed", func(Event) {})
				bus.Publish(NewQueueDepthChangedEvent(1, 2, 3, 4))
			}
		}()
	}
	wg.Wait()

	if got := bus.SubscriptionCount(); got != 8*50 {
		t.Errorf("SubscriptionCount() = %d, want %d", got, 8*50)
	}
}

func TestPublishedCountsByType(t *testing.T) {
	bus := NewBus()

	bus.Publish(NewCacheHitEvent("key-1"))
	bus.Publish(NewCacheHitEvent("key-2"))
	bus.Publish(NewCacheMissEvent("key-3"))

	if n := bus.PublishedCount("cache.hit"); n != 2 {
		t.Errorf("cache.hit count = %d, want 2", n)
	}
	if n := bus.PublishedCount("cache.miss"); n != 1 {
		t.Errorf("cache.miss count = %d, want 1", n)
	}
	if n := bus.PublishedCount("conflict.resolved"); n != 0 {
		t.Errorf("unpublished type count = %d, want 0", n)
	}

	counts := bus.PublishedCounts()
	if len(counts) != 2 || counts["cache.hit"] != 2 || counts["cache.miss"] != 1 {
		t.Errorf("unexpected counts map: %v", counts)
	}
	// The returned map is a copy.
	counts["cache.hit"] = 99
	if n := bus.PublishedCount("cache.hit"); n != 2 {
		t.Errorf("counter mutated through returned map: %d", n)
	}
}
