// Package signals delivers inbound relay signals to the control loop. The
// delivery strategy is chosen once at startup.
package signals

import (
	"context"
	"fmt"
	"time"
)

type Mode string

const (
	ModeStream  Mode = "stream"
	ModeRequest Mode = "request"
	ModeRedis   Mode = "redis"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStream, ModeRequest, ModeRedis:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown signal mode %q (want stream, request or redis)", s)
	}
}

// Event is one inbound signal. Its content is opaque; arrival alone is the
// trigger.
type Event struct {
	Payload []byte
}

func (e Event) Empty() bool    { return len(e.Payload) == 0 }
func (e Event) String() string { return string(e.Payload) }

// Source produces signal events for the control loop.
type Source interface {
	// Next returns the next pending event. ok is false when nothing is
	// pending. Blocking sources wait a bounded time before giving up.
	Next(ctx context.Context) (ev Event, ok bool)
	// Draining reports whether the loop should call Next until it comes
	// back empty, rather than once per iteration.
	Draining() bool
	// Idle is the pause the loop takes after each signal pass.
	Idle() time.Duration
	Close() error
}
