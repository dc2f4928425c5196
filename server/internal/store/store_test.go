package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tolerancevision/tolerancevision/server/internal/events"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func event(id, typ string) events.Event {
	return events.Event{ID: id, Type: typ, OccurredAt: base}
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func ids(evs []events.Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.ID
	}
	return out
}

func TestPutAndGet(t *testing.T) {
	st := New(time.Hour)
	st.Put(event("e1", events.FloorAdded))

	e, ok := st.Get("e1")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if e.Event.Type != events.FloorAdded {
		t.Errorf("Type: got %q, want %q", e.Event.Type, events.FloorAdded)
	}
	if _, ok := st.Get("missing"); ok {
		t.Error("Get(missing): expected false")
	}
}

func TestPublish_IsPublisher(t *testing.T) {
	st := New(time.Hour)
	var p events.Publisher = st
	if err := p.Publish(context.Background(), event("e1", events.ProjectCleared)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if st.Count() != 1 {
		t.Errorf("Count: got %d, want 1", st.Count())
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestList_NewestFirstWithinTTL(t *testing.T) {
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute)) // stale
	st.Put(event("old", events.FloorAdded))
	st.now = fixedClock(base.Add(-2 * time.Minute))
	st.Put(event("mid", events.WindowEvaluated))
	st.now = fixedClock(base)
	st.Put(event("new", events.WindowRemoved))

	got := ids(st.List(0))
	want := []string{"new", "mid"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("List: got %v, want %v", got, want)
	}
	if got := ids(st.List(1)); len(got) != 1 || got[0] != "new" {
		t.Errorf("List(1): got %v, want [new]", got)
	}
}

func TestCount_IncludesStale(t *testing.T) {
	st := New(5 * time.Minute)
	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(event("old", events.FloorAdded))
	st.now = fixedClock(base)
	st.Put(event("new", events.FloorAdded))

	if n := st.Count(); n != 2 {
		t.Errorf("Count: got %d, want 2", n)
	}
}

func TestEvict_RemovesStale(t *testing.T) {
	st := New(5 * time.Minute)
	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(event("old1", events.FloorAdded))
	st.Put(event("old2", events.FloorAdded))
	st.now = fixedClock(base)
	st.Put(event("live", events.FloorAdded))

	if removed := st.Evict(base); removed != 2 {
		t.Errorf("Evict: removed %d, want 2", removed)
	}
	if st.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", st.Count())
	}
	if removed := st.Evict(base); removed != 0 {
		t.Errorf("second Evict: removed %d, want 0", removed)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := New(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New(time.Hour)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			st.Put(event(fmt.Sprintf("e%d", n), events.WindowEvaluated))
		}(i)
		go func() {
			defer wg.Done()
			st.List(10)
		}()
	}
	wg.Wait()

	if st.Count() != 50 {
		t.Errorf("Count: got %d, want 50", st.Count())
	}
}
