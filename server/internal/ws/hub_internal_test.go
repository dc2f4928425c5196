package ws

import (
	"sync"
	"testing"
	"time"

	"github.com/tolerancevision/tolerancevision/pkg/registry"
)

// drain empties c.send until it is closed.
func drain(c *client, wg *sync.WaitGroup) {
	defer wg.Done()
	for range c.send {
	}
}

func TestBroadcast_ConcurrentUnregister(t *testing.T) {
	h := New(registry.New(), time.Hour)

	const n = 200
	clients := make([]*client, n)
	var drained sync.WaitGroup
	for i := range clients {
		clients[i] = &client{send: make(chan []byte, sendBufSize)}
		h.register(clients[i])
		drained.Add(1)
		go drain(clients[i], &drained)
	}

	stop := make(chan struct{})
	panicked := make(chan any, 1)
	var senders sync.WaitGroup
	senders.Add(1)
	go func() {
		defer senders.Done()
		defer func() {
			if r := recover(); r != nil {
				panicked <- r
			}
		}()
		for {
			select {
			case <-stop:
				return
			default:
				h.broadcast()
			}
		}
	}()

	for _, c := range clients {
		h.unregister(c)
	}
	close(stop)
	senders.Wait()
	drained.Wait()

	select {
	case r := <-panicked:
		t.Fatalf("broadcast panicked: %v", r)
	default:
	}
	if got := h.Count(); got != 0 {
		t.Errorf("Count: got %d, want 0", got)
	}
}

func TestBroadcast_DropsSlowClient(t *testing.T) {
	h := New(registry.New(), time.Hour)

	slow := &client{send: make(chan []byte, 1)}
	h.register(slow)

	h.broadcast() // fills the buffer
	h.broadcast() // buffer full: dropped

	if got := h.Count(); got != 0 {
		t.Errorf("Count: got %d, want 0", got)
	}
	if _, ok := <-slow.send; !ok {
		t.Fatal("expected the first message before close")
	}
	if _, ok := <-slow.send; ok {
		t.Error("send channel should be closed after drop")
	}
}
