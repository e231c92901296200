package notecard

import (
	"bufio"
	"errors"
	"io"
	"sync"

	"notecard-service/internal/logger"
)

// MaxLineLen is the largest chunk LineReader emits. Longer lines are split.
const MaxLineLen = 255

// LineReader turns a byte stream into newline-delimited chunks and lets the
// caller poll for them without blocking.
type LineReader struct {
	src    io.ReadCloser
	logger *logger.Logger
	lines  chan []byte
	done   chan struct{}
	once   sync.Once
}

func NewLineReader(src io.ReadCloser, backlog int, l *logger.Logger) *LineReader {
	if backlog <= 0 {
		backlog = 64
	}
	lr := &LineReader{
		src:    src,
		logger: l,
		lines:  make(chan []byte, backlog),
		done:   make(chan struct{}),
	}
	go lr.run()
	return lr
}

func (lr *LineReader) run() {
	defer close(lr.lines)
	r := bufio.NewReader(lr.src)
	line := make([]byte, 0, MaxLineLen)

	emit := func() bool {
		out := append([]byte(nil), line...)
		line = line[:0]
		select {
		case lr.lines <- out:
			return true
		case <-lr.done:
			return false
		}
	}

	for {
		b, err := r.ReadByte()
		if err != nil {
			if len(line) > 0 {
				emit()
			}
			lr.reportStop(err)
			return
		}
		switch b {
		case '\n':
			if !emit() {
				return
			}
		case '\r':
		default:
			line = append(line, b)
			if len(line) == MaxLineLen {
				if !emit() {
					return
				}
			}
		}
	}
}

// reportStop logs why the stream ended. Errors after Close are expected.
func (lr *LineReader) reportStop(err error) {
	select {
	case <-lr.done:
		lr.logger.Debugf("Signal stream closed: %v", err)
		return
	default:
	}
	if errors.Is(err, io.EOF) {
		lr.logger.Warnf("Signal stream ended, no further signals will arrive")
		return
	}
	lr.logger.Errorf("Signal stream failed, no further signals will arrive: %v", err)
}

// TryLine returns the next buffered line. ok is false when no line is
// available yet or the reader has stopped.
func (lr *LineReader) TryLine() (line []byte, ok bool) {
	select {
	case l, open := <-lr.lines:
		if !open {
			return nil, false
		}
		return l, true
	default:
		return nil, false
	}
}

func (lr *LineReader) Close() error {
	var err error
	lr.once.Do(func() {
		close(lr.done)
		err = lr.src.Close()
	})
	return err
}
