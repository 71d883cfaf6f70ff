package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// blockingSink holds every Emit until released.
type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	seen    []Event
}

func newBlockingSink() *blockingSink {
	return &blockingSink{release: make(chan struct{})}
}

func (s *blockingSink) Emit(_ context.Context, event Event) {
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, event)
}

func (s *blockingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)
	defer d.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		d.Emit(ctx, Event{EventType: "login", AccountID: "u1"})
	}

	for i := 0; i < 3; i++ {
		select {
		case event := <-sink.Events():
			if event.EventType != "login" {
				t.Fatalf("unexpected event: %+v", event)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled config must yield a nil dispatcher")
	}

	// A nil dispatcher is safe to use.
	d.Emit(context.Background(), Event{EventType: "login"})
	d.Close()
	if got := d.Dropped(); got != 0 {
		t.Fatalf("expected 0 dropped, got %d", got)
	}
}

func TestDropIfFullCountsDrops(t *testing.T) {
	sink := newBlockingSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	ctx := context.Background()
	// The worker parks on the first event; the buffer holds one more.
	// Everything beyond that is dropped.
	for i := 0; i < 10; i++ {
		d.Emit(ctx, Event{EventType: "login"})
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer")
	}

	close(sink.release)
	d.Close()
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	sink := newBlockingSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d.Emit(ctx, Event{EventType: "login"})
	}

	close(sink.release)
	d.Close()

	if got := sink.count(); got != 5 {
		t.Fatalf("expected 5 drained events, got %d", got)
	}

	// Emitting after Close is a no-op.
	d.Emit(ctx, Event{EventType: "login"})
	if got := sink.count(); got != 5 {
		t.Fatalf("expected no delivery after close, got %d", got)
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		EventType: "login",
		AccountID: "u1",
		Success:   true,
		Metadata:  map[string]string{"reason": "ok"},
	})

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if decoded.EventType != "login" || decoded.AccountID != "u1" || !decoded.Success {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
	if decoded.Metadata["reason"] != "ok" {
		t.Fatalf("metadata lost: %+v", decoded.Metadata)
	}
}
