package notecard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTimeout = errors.New("relay request timed out")
	ErrClosed  = errors.New("relay transport closed")
)

// RelayError is an "err" reply from the relay.
type RelayError struct {
	Request string
	Message string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Request, e.Message)
}

// IsIOError reports whether err is worth retrying: a transport failure or a
// relay reply tagged {io}.
func IsIOError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrClosed) {
		return false
	}
	var relayErr *RelayError
	if errors.As(err, &relayErr) {
		return strings.Contains(relayErr.Message, "{io}")
	}
	return true
}
