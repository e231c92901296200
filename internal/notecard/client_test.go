package notecard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"notecard-service/internal/logger"
)

// Mock Transport
type fakeTransport struct {
	written   [][]byte
	replies   [][]byte
	writeErrs []error
	drains    int
	closed    bool
}

func (f *fakeTransport) WriteLine(ctx context.Context, line []byte) error {
	if len(f.writeErrs) > 0 {
		err := f.writeErrs[0]
		f.writeErrs = f.writeErrs[1:]
		if err != nil {
			return err
		}
	}
	f.written = append(f.written, append([]byte(nil), line...))
	return nil
}

func (f *fakeTransport) ReadLine(ctx context.Context) ([]byte, error) {
	if len(f.replies) == 0 {
		return nil, ErrTimeout
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *fakeTransport) Drain() error {
	f.drains++
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) decoded(t *testing.T, i int) map[string]interface{} {
	t.Helper()
	if i >= len(f.written) {
		t.Fatalf("Expected at least %d writes, got %d", i+1, len(f.written))
	}
	var m map[string]interface{}
	if err := json.Unmarshal(f.written[i], &m); err != nil {
		t.Fatalf("Write %d is not JSON: %v", i, err)
	}
	return m
}

// fakeClock advances only when the client sleeps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func newTestClient() (*Client, *fakeTransport, *fakeClock) {
	l := logger.NewLogger(log.New(io.Discard, "", 0), logger.LogLevelDebug)
	tr := &fakeTransport{}
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := NewClient(tr, l)
	c.now = clock.Now
	c.sleep = clock.Sleep
	return c, tr, clock
}

func TestSendRequestEncodesFields(t *testing.T) {
	c, tr, _ := newTestClient()
	tr.replies = [][]byte{[]byte(`{}`)}

	req := c.NewRequest("hub.set").
		SetString("mode", "periodic").
		SetInt("outbound", 15).
		SetInt("inbound", 15)
	if err := c.SendRequest(context.Background(), req); err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	m := tr.decoded(t, 0)
	if m["req"] != "hub.set" || m["mode"] != "periodic" {
		t.Errorf("Unexpected request: %v", m)
	}
	if m["outbound"] != float64(15) || m["inbound"] != float64(15) {
		t.Errorf("Unexpected intervals: %v", m)
	}
}

func TestSendCommandDoesNotReadReply(t *testing.T) {
	c, tr, _ := newTestClient()

	cmd := c.NewCommand("card.attn").SetString("mode", "rearm,auxgpio")
	if err := c.SendRequest(context.Background(), cmd); err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	m := tr.decoded(t, 0)
	if m["cmd"] != "card.attn" {
		t.Errorf("Expected cmd field, got %v", m)
	}
	if _, hasReq := m["req"]; hasReq {
		t.Error("Command must not carry a req field")
	}
}

func TestRequestAndResponseRelayError(t *testing.T) {
	c, tr, _ := newTestClient()
	tr.replies = [][]byte{[]byte(`{"err":"unknown request"}`)}

	_, err := c.RequestAndResponse(context.Background(), c.NewRequest("bogus"))
	var relayErr *RelayError
	if !errors.As(err, &relayErr) {
		t.Fatalf("Expected RelayError, got %v", err)
	}
	if relayErr.Request != "bogus" || relayErr.Message != "unknown request" {
		t.Errorf("Unexpected error contents: %+v", relayErr)
	}
}

func TestRequestAndResponseSkipsBlankLines(t *testing.T) {
	c, tr, _ := newTestClient()
	tr.replies = [][]byte{{}, []byte(`{"connected":true}`)}

	rsp, err := c.RequestAndResponse(context.Background(), c.NewRequest("hub.signal"))
	if err != nil {
		t.Fatalf("RequestAndResponse failed: %v", err)
	}
	if connected, ok := rsp.Bool("connected"); !ok || !connected {
		t.Errorf("Expected connected=true, got %v", rsp)
	}
}

func TestRequestAndResponseMalformed(t *testing.T) {
	c, tr, _ := newTestClient()
	tr.replies = [][]byte{[]byte(`not json`)}

	if _, err := c.RequestAndResponse(context.Background(), c.NewRequest("card.aux")); err == nil {
		t.Error("Expected error for malformed reply")
	}
}

func TestSendRequestWithRetryRecovers(t *testing.T) {
	c, tr, clock := newTestClient()
	tr.writeErrs = []error{errors.New("io"), errors.New("io"), nil}
	tr.replies = [][]byte{[]byte(`{}`)}

	err := c.SendRequestWithRetry(context.Background(), c.NewRequest("hub.set"), 5*time.Second)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if len(clock.sleeps) != 2 {
		t.Errorf("Expected 2 retry sleeps, got %d", len(clock.sleeps))
	}
}

func TestSendRequestWithRetryGivesUp(t *testing.T) {
	c, tr, clock := newTestClient()
	// every attempt times out waiting for a reply

	err := c.SendRequestWithRetry(context.Background(), c.NewRequest("hub.set"), 5*time.Second)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if len(tr.written) != 5 {
		t.Errorf("Expected 5 attempts within 5s, got %d", len(tr.written))
	}
	for _, d := range clock.sleeps {
		if d != time.Second {
			t.Errorf("Expected 1s retry interval, got %v", d)
		}
	}
}

func TestSendRequestWithRetryStopsOnRelayError(t *testing.T) {
	c, tr, clock := newTestClient()
	tr.replies = [][]byte{[]byte(`{"err":"product UID not set"}`)}

	err := c.SendRequestWithRetry(context.Background(), c.NewRequest("hub.set"), 5*time.Second)
	if err == nil {
		t.Fatal("Expected error")
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("Non-I/O relay errors must not be retried, slept %d times", len(clock.sleeps))
	}
}

func TestSendRequestWithRetryOnIOReply(t *testing.T) {
	c, tr, _ := newTestClient()
	tr.replies = [][]byte{[]byte(`{"err":"{io} i2c busy"}`), []byte(`{}`)}

	if err := c.SendRequestWithRetry(context.Background(), c.NewRequest("hub.set"), 5*time.Second); err != nil {
		t.Fatalf("Expected {io} reply to be retried, got %v", err)
	}
	if len(tr.written) != 2 {
		t.Errorf("Expected 2 writes, got %d", len(tr.written))
	}
}

func TestFetchEnv(t *testing.T) {
	c, tr, _ := newTestClient()
	tr.replies = [][]byte{[]byte(`{"body":{"wifi_ssid":"CES2023","other":"x"},"time":1700000000}`)}

	vars, err := c.FetchEnv(context.Background(), []string{"wifi_ssid", "wifi_password"})
	if err != nil {
		t.Fatalf("FetchEnv failed: %v", err)
	}
	if len(vars) != 1 || vars["wifi_ssid"] != "CES2023" {
		t.Errorf("Unexpected vars: %v", vars)
	}

	m := tr.decoded(t, 0)
	names, _ := m["names"].([]interface{})
	if m["req"] != "env.get" || len(names) != 2 {
		t.Errorf("Unexpected env.get request: %v", m)
	}
}

func TestFetchEnvNoBody(t *testing.T) {
	c, tr, _ := newTestClient()
	tr.replies = [][]byte{[]byte(`{"time":1700000000}`)}

	vars, err := c.FetchEnv(context.Background(), []string{"wifi_ssid"})
	if err != nil {
		t.Fatalf("FetchEnv failed: %v", err)
	}
	if len(vars) != 0 {
		t.Errorf("Expected no vars, got %v", vars)
	}
}

func TestResponseGettersTolerateWrongTypes(t *testing.T) {
	rsp := Response{"state": "not-an-array", "high": "yes"}

	if _, ok := rsp.ObjectAt("state", 0); ok {
		t.Error("ObjectAt on non-array should fail")
	}
	if _, ok := rsp.Bool("high"); ok {
		t.Error("Bool on string should fail")
	}
	if _, ok := rsp.Object("missing"); ok {
		t.Error("Object on missing key should fail")
	}
}

func TestClose(t *testing.T) {
	c, tr, _ := newTestClient()
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !tr.closed {
		t.Error("Transport not closed")
	}
}

func TestRequestsCarryIncreasingIDs(t *testing.T) {
	c, tr, _ := newTestClient()
	tr.replies = [][]byte{[]byte(`{}`), []byte(`{}`)}

	c.SendRequest(context.Background(), c.NewRequest("hub.sync"))
	c.SendRequest(context.Background(), c.NewRequest("hub.sync"))
	c.SendRequest(context.Background(), c.NewCommand("card.attn"))

	if id := tr.decoded(t, 0)["id"]; id != float64(1) {
		t.Errorf("First id = %v, want 1", id)
	}
	if id := tr.decoded(t, 1)["id"]; id != float64(2) {
		t.Errorf("Second id = %v, want 2", id)
	}
	if _, ok := tr.decoded(t, 2)["id"]; ok {
		t.Error("Commands get no reply and must not carry an id")
	}
}

func TestRequestAndResponseDropsStaleReply(t *testing.T) {
	c, tr, _ := newTestClient()
	tr.replies = [][]byte{
		[]byte(`{"id":41,"state":[{"high":true}]}`),
		[]byte(`{"id":1,"state":[{"high":false}]}`),
	}

	rsp, err := c.RequestAndResponse(context.Background(), c.NewRequest("card.aux"))
	if err != nil {
		t.Fatalf("RequestAndResponse failed: %v", err)
	}
	aux1, _ := rsp.ObjectAt("state", 0)
	if high, _ := aux1.Bool("high"); high {
		t.Error("Reply for an earlier request was accepted")
	}
}

func TestReadFailureDrainsTransport(t *testing.T) {
	c, tr, _ := newTestClient()

	if _, err := c.RequestAndResponse(context.Background(), c.NewRequest("card.aux")); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if tr.drains != 1 {
		t.Errorf("Expected one drain after timeout, got %d", tr.drains)
	}

	tr.replies = [][]byte{[]byte(`not json`)}
	c.RequestAndResponse(context.Background(), c.NewRequest("card.aux"))
	if tr.drains != 2 {
		t.Errorf("Expected a drain after a malformed reply, got %d", tr.drains)
	}
}
