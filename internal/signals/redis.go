package signals

import (
	"context"
	"time"

	"notecard-service/internal/logger"
)

const listPopTimeout = time.Second

// ListPopper is satisfied by messaging.RedisClient.
type ListPopper interface {
	PopSignal(ctx context.Context, key string, timeout time.Duration) (string, bool, error)
}

// ListSource takes signals from a Redis list filled by another service.
type ListSource struct {
	popper ListPopper
	key    string
	logger *logger.Logger
}

func NewListSource(popper ListPopper, key string, l *logger.Logger) *ListSource {
	return &ListSource{popper: popper, key: key, logger: l}
}

func (s *ListSource) Next(ctx context.Context) (Event, bool) {
	value, ok, err := s.popper.PopSignal(ctx, s.key, listPopTimeout)
	if err != nil {
		s.logger.Warnf("Error reading from %s list: %v", s.key, err)
		return Event{}, false
	}
	if !ok {
		return Event{}, false
	}
	return Event{Payload: []byte(value)}, true
}

func (s *ListSource) Draining() bool      { return false }
func (s *ListSource) Idle() time.Duration { return 0 }
func (s *ListSource) Close() error        { return nil }
