package signals

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"notecard-service/internal/logger"
	"notecard-service/internal/notecard"
)

func quietLogger() *logger.Logger {
	return logger.NewLogger(log.New(io.Discard, "", 0), logger.LogLevelNone)
}

type fakeLines struct {
	queued [][]byte
	closed bool
}

func (f *fakeLines) TryLine() ([]byte, bool) {
	if len(f.queued) == 0 {
		return nil, false
	}
	line := f.queued[0]
	f.queued = f.queued[1:]
	return line, true
}

func (f *fakeLines) Close() error {
	f.closed = true
	return nil
}

type fakeRelay struct {
	rsp      notecard.Response
	err      error
	requests []string
}

func (f *fakeRelay) NewRequest(name string) *notecard.Request {
	return notecard.NewRequest(name)
}

func (f *fakeRelay) RequestAndResponse(ctx context.Context, req *notecard.Request) (notecard.Response, error) {
	f.requests = append(f.requests, req.Name())
	return f.rsp, f.err
}

type fakePopper struct {
	values  []string
	err     error
	key     string
	timeout time.Duration
}

func (f *fakePopper) PopSignal(ctx context.Context, key string, timeout time.Duration) (string, bool, error) {
	f.key = key
	f.timeout = timeout
	if f.err != nil {
		return "", false, f.err
	}
	if len(f.values) == 0 {
		return "", false, nil
	}
	v := f.values[0]
	f.values = f.values[1:]
	return v, true, nil
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"stream", "request", "redis"} {
		m, err := ParseMode(s)
		if err != nil {
			t.Errorf("ParseMode(%q) failed: %v", s, err)
		}
		if string(m) != s {
			t.Errorf("ParseMode(%q) = %q", s, m)
		}
	}
	if _, err := ParseMode("carrier-pigeon"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestLineSourceDrainsQueuedLines(t *testing.T) {
	lines := &fakeLines{queued: [][]byte{[]byte(`{"a":1}`), []byte("")}}
	src := NewLineSource(lines, 10*time.Millisecond)

	if !src.Draining() {
		t.Error("line source should drain")
	}
	if src.Idle() != 10*time.Millisecond {
		t.Errorf("Idle() = %v", src.Idle())
	}

	ev, ok := src.Next(context.Background())
	if !ok || ev.String() != `{"a":1}` {
		t.Fatalf("first event = %+v, %v", ev, ok)
	}
	ev, ok = src.Next(context.Background())
	if !ok || !ev.Empty() {
		t.Fatalf("second event should be empty, got %+v, %v", ev, ok)
	}
	if _, ok := src.Next(context.Background()); ok {
		t.Error("expected no more events")
	}

	src.Close()
	if !lines.closed {
		t.Error("Close should close the line reader")
	}
}

func TestRequestSourceReturnsBody(t *testing.T) {
	relay := &fakeRelay{rsp: notecard.Response{
		"body": map[string]interface{}{"horn": true},
	}}
	src := NewRequestSource(relay, quietLogger())

	ev, ok := src.Next(context.Background())
	if !ok {
		t.Fatal("expected an event")
	}
	if ev.String() != `{"horn":true}` {
		t.Errorf("payload = %s", ev.String())
	}
	if len(relay.requests) != 1 || relay.requests[0] != "hub.signal" {
		t.Errorf("requests = %v", relay.requests)
	}
	if src.Draining() || src.Idle() != 5*time.Second {
		t.Errorf("unexpected pacing: draining=%v idle=%v", src.Draining(), src.Idle())
	}
}

func TestRequestSourceNoSignal(t *testing.T) {
	src := NewRequestSource(&fakeRelay{rsp: notecard.Response{}}, quietLogger())
	if _, ok := src.Next(context.Background()); ok {
		t.Error("reply without body should not produce an event")
	}

	src = NewRequestSource(&fakeRelay{err: errors.New("timeout")}, quietLogger())
	if _, ok := src.Next(context.Background()); ok {
		t.Error("failed request should not produce an event")
	}
}

func TestListSourcePops(t *testing.T) {
	popper := &fakePopper{values: []string{"honk"}}
	src := NewListSource(popper, "scooter:signal", quietLogger())

	ev, ok := src.Next(context.Background())
	if !ok || ev.String() != "honk" {
		t.Fatalf("event = %+v, %v", ev, ok)
	}
	if popper.key != "scooter:signal" || popper.timeout != time.Second {
		t.Errorf("popped %s with timeout %v", popper.key, popper.timeout)
	}
	if _, ok := src.Next(context.Background()); ok {
		t.Error("empty list should not produce an event")
	}
	if src.Idle() != 0 || src.Draining() {
		t.Error("list source paces itself through the blocking pop")
	}
}

func TestListSourceError(t *testing.T) {
	src := NewListSource(&fakePopper{err: errors.New("connection refused")}, "scooter:signal", quietLogger())
	if _, ok := src.Next(context.Background()); ok {
		t.Error("pop error should not produce an event")
	}
}
