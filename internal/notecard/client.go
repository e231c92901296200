package notecard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"notecard-service/internal/logger"
)

// Transport carries newline-delimited JSON to and from the relay.
type Transport interface {
	WriteLine(ctx context.Context, line []byte) error
	ReadLine(ctx context.Context) ([]byte, error)
	// Drain discards any input already received or still in flight, so a
	// late reply cannot be read as the answer to a later request.
	Drain() error
	Close() error
}

const retryInterval = time.Second

// Client issues requests over a single shared transport. Calls are
// serialized; only one request is in flight at a time.
type Client struct {
	transport Transport
	logger    *logger.Logger
	mu        sync.Mutex
	lastID    uint32

	now   func() time.Time
	sleep func(time.Duration)
}

func NewClient(transport Transport, l *logger.Logger) *Client {
	return &Client{
		transport: transport,
		logger:    l,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

func (c *Client) NewRequest(name string) *Request {
	return NewRequest(name)
}

func (c *Client) NewCommand(name string) *Request {
	return NewCommand(name)
}

// SendRequest submits req once. Commands are written without waiting for a
// reply.
func (c *Client) SendRequest(ctx context.Context, req *Request) error {
	_, err := c.transact(ctx, req)
	return err
}

// SendRequestWithRetry resubmits req on I/O failures, once per second, until
// timeout has elapsed.
func (c *Client) SendRequestWithRetry(ctx context.Context, req *Request, timeout time.Duration) error {
	deadline := c.now().Add(timeout)
	attempt := 0
	for {
		attempt++
		_, err := c.transact(ctx, req)
		if err == nil {
			return nil
		}
		if !IsIOError(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !c.now().Add(retryInterval).Before(deadline) {
			return fmt.Errorf("%s failed after %d attempts: %w", req.Name(), attempt, err)
		}
		c.logger.Debugf("%s attempt %d failed, retrying: %v", req.Name(), attempt, err)
		c.sleep(retryInterval)
	}
}

// RequestAndResponse submits req and returns the relay's reply. An "err"
// field in the reply is returned as a *RelayError.
func (c *Client) RequestAndResponse(ctx context.Context, req *Request) (Response, error) {
	if req.IsCommand() {
		return nil, fmt.Errorf("%s: commands have no response", req.Name())
	}
	return c.transact(ctx, req)
}

func (c *Client) transact(ctx context.Context, req *Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !req.IsCommand() {
		c.lastID++
		if c.lastID == 0 {
			c.lastID = 1
		}
		req.id = c.lastID
	}

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", req.Name(), err)
	}

	if _, secret := req.Field("password"); secret {
		c.logger.Debugf("> {\"req\":\"%s\",...}", req.Name())
	} else {
		c.logger.Debugf("> %s", line)
	}
	if err := c.transport.WriteLine(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", req.Name(), err)
	}
	if req.IsCommand() {
		return nil, nil
	}

	for {
		reply, err := c.transport.ReadLine(ctx)
		if err != nil {
			c.drain()
			return nil, fmt.Errorf("failed to read %s reply: %w", req.Name(), err)
		}
		if len(reply) == 0 {
			continue
		}
		c.logger.Debugf("< %s", reply)

		rsp, err := parseResponse(reply)
		if err != nil {
			c.drain()
			return nil, fmt.Errorf("malformed %s reply: %w", req.Name(), err)
		}
		if id, ok := rsp.Number("id"); ok && uint32(id) != req.id {
			c.logger.Warnf("Dropping stale reply (id %d) while waiting for %s (id %d)", uint32(id), req.Name(), req.id)
			continue
		}
		if msg := rsp.Err(); msg != "" {
			return rsp, &RelayError{Request: req.Name(), Message: msg}
		}
		return rsp, nil
	}
}

// drain resynchronizes the channel after a failed read. Called with c.mu held.
func (c *Client) drain() {
	if err := c.transport.Drain(); err != nil {
		c.logger.Warnf("Failed to drain relay input: %v", err)
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.Close()
}
