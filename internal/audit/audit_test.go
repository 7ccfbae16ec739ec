package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

type panicSink struct{}

func (panicSink) Emit(context.Context, Event) {
	panic("sink exploded")
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherFlushesOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: "magic_link_request"})
	}
	d.Close()

	if got := sink.count.Load(); got != 50 {
		t.Fatalf("expected 50 delivered events, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "late"})
	if got := sink.count.Load(); got != 50 {
		t.Fatalf("emit after close must be ignored, got %d", got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event parks in the sink, one fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "x"})
	}

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), Event{EventType: "a"})
	d.Emit(context.Background(), Event{EventType: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		d.Emit(ctx, Event{EventType: "c"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked emit did not honor context cancellation")
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, panicSink{})
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Emit(context.Background(), Event{EventType: "y"})
	d.Close()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "magic_link_verify", UserID: "u1", Success: true})

	line := strings.TrimSpace(buf.String())
	var got Event
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("invalid json %q: %v", line, err)
	}
	if got.EventType != "magic_link_verify" || got.UserID != "u1" || !got.Success {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{EventType: "logout", Success: true})
	sink.Emit(context.Background(), Event{EventType: "magic_link_verify", Success: false, Error: "magic_link_token_used", Metadata: map[string]string{"reason": "used"}})

	out := buf.String()
	if !strings.Contains(out, `"level":"INFO"`) || !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("expected info and warn records, got %s", out)
	}
	if !strings.Contains(out, `"meta.reason":"used"`) {
		t.Fatalf("expected metadata attribute, got %s", out)
	}
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), Event{EventType: "x"})
	select {
	case ev := <-sink.Events():
		if ev.EventType != "x" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected buffered event")
	}
}
