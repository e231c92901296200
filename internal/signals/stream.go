package signals

import (
	"context"
	"time"
)

// LineReader is satisfied by notecard.LineReader.
type LineReader interface {
	TryLine() ([]byte, bool)
	Close() error
}

// LineSource reads signals forwarded by the relay on its AUX serial port,
// one per line. It never blocks.
type LineSource struct {
	reader       LineReader
	pollInterval time.Duration
}

func NewLineSource(reader LineReader, pollInterval time.Duration) *LineSource {
	return &LineSource{reader: reader, pollInterval: pollInterval}
}

func (s *LineSource) Next(ctx context.Context) (Event, bool) {
	line, ok := s.reader.TryLine()
	if !ok {
		return Event{}, false
	}
	return Event{Payload: line}, true
}

func (s *LineSource) Draining() bool      { return true }
func (s *LineSource) Idle() time.Duration { return s.pollInterval }
func (s *LineSource) Close() error        { return s.reader.Close() }
