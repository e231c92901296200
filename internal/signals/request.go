package signals

import (
	"context"
	"encoding/json"
	"time"

	"notecard-service/internal/logger"
	"notecard-service/internal/notecard"
)

// RequestIdle is the pause after each hub.signal poll.
const RequestIdle = 5 * time.Second

// Relay is the part of the relay client RequestSource needs.
type Relay interface {
	NewRequest(name string) *notecard.Request
	RequestAndResponse(ctx context.Context, req *notecard.Request) (notecard.Response, error)
}

// RequestSource asks the relay for a pending signal with hub.signal.
type RequestSource struct {
	relay  Relay
	logger *logger.Logger
}

func NewRequestSource(relay Relay, l *logger.Logger) *RequestSource {
	return &RequestSource{relay: relay, logger: l}
}

func (s *RequestSource) Next(ctx context.Context) (Event, bool) {
	rsp, err := s.relay.RequestAndResponse(ctx, s.relay.NewRequest("hub.signal"))
	if err != nil {
		s.logger.Warnf("hub.signal failed: %v", err)
		return Event{}, false
	}
	body, ok := rsp.Object("body")
	if !ok {
		return Event{}, false
	}
	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.Warnf("Failed to encode signal body: %v", err)
		return Event{}, false
	}
	return Event{Payload: payload}, true
}

func (s *RequestSource) Draining() bool      { return false }
func (s *RequestSource) Idle() time.Duration { return RequestIdle }
func (s *RequestSource) Close() error        { return nil }
