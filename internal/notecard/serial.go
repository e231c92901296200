package notecard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// SerialTransport talks to the relay over a tty in raw mode.
type SerialTransport struct {
	port    string
	file    *os.File
	reader  *bufio.Reader
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// OpenSerial opens port at baud. timeout bounds each reply read when the
// caller's context has no deadline.
func OpenSerial(port string, baud int, timeout time.Duration) (*SerialTransport, error) {
	rate, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %d", baud)
	}

	f, err := os.OpenFile(port, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", port, err)
	}

	if err := configureRaw(f, rate); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to configure %s: %w", port, err)
	}

	return &SerialTransport{
		port:    port,
		file:    f,
		reader:  bufio.NewReaderSize(f, 1024),
		timeout: timeout,
	}, nil
}

// OpenSerialStream opens a raw tty for one-way reads, such as the relay's AUX
// signal port.
func OpenSerialStream(port string, baud int) (*os.File, error) {
	rate, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %d", baud)
	}
	f, err := os.OpenFile(port, os.O_RDONLY|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", port, err)
	}
	if err := configureRaw(f, rate); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to configure %s: %w", port, err)
	}
	return f, nil
}

// configureRaw puts the tty into 8N1 raw mode. The fd is reached through
// SyscallConn so the file stays registered with the runtime poller and read
// deadlines keep working.
func configureRaw(f *os.File, rate uint32) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var ioctlErr error
	err = rc.Control(func(fd uintptr) {
		t, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
		if err != nil {
			ioctlErr = err
			return
		}
		t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
			unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
		t.Oflag &^= unix.OPOST
		t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
		t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CBAUD
		t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | rate
		t.Ispeed = rate
		t.Ospeed = rate
		t.Cc[unix.VMIN] = 1
		t.Cc[unix.VTIME] = 0
		ioctlErr = unix.IoctlSetTermios(int(fd), unix.TCSETS, t)
	})
	if err != nil {
		return err
	}
	return ioctlErr
}

func (s *SerialTransport) WriteLine(ctx context.Context, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.file.SetWriteDeadline(s.deadline(ctx)); err != nil {
		return err
	}
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := s.file.Write(buf); err != nil {
		return s.mapErr(err)
	}
	return nil
}

func (s *SerialTransport) ReadLine(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	if err := s.file.SetReadDeadline(s.deadline(ctx)); err != nil {
		return nil, err
	}
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		return nil, s.mapErr(err)
	}
	return trimEOL(line), nil
}

// drainWindow is how long Drain waits for stragglers after the last byte;
// drainLimit caps the whole drain on a port that never goes quiet.
const (
	drainWindow = 50 * time.Millisecond
	drainLimit  = time.Second
)

// Drain discards buffered input and anything arriving within drainWindow.
func (s *SerialTransport) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.reader.Reset(s.file)
	buf := make([]byte, 256)
	stop := time.Now().Add(drainLimit)
	for time.Now().Before(stop) {
		if err := s.file.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
			return err
		}
		if _, err := s.file.Read(buf); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}
			return s.mapErr(err)
		}
	}
	return nil
}

func (s *SerialTransport) deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(s.timeout)
}

func (s *SerialTransport) mapErr(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, os.ErrClosed) {
		return ErrClosed
	}
	return err
}

func (s *SerialTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

func trimEOL(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
