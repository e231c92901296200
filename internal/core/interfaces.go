package core

import (
	"context"
	"time"

	"notecard-service/internal/notecard"
	"notecard-service/internal/types"
)

// RelayClient defines the relay operations needed by ScooterSystem
type RelayClient interface {
	NewRequest(name string) *notecard.Request
	NewCommand(name string) *notecard.Request
	SendRequest(ctx context.Context, req *notecard.Request) error
	SendRequestWithRetry(ctx context.Context, req *notecard.Request, timeout time.Duration) error
	RequestAndResponse(ctx context.Context, req *notecard.Request) (notecard.Response, error)
	FetchEnv(ctx context.Context, names []string) (map[string]string, error)
	Close() error
}

// HardwareIO defines the local hardware operations needed by ScooterSystem
type HardwareIO interface {
	Initialize() error
	Cleanup()

	WriteDigitalOutput(channel string, value bool) error
	SetInitialValue(name string, value bool)
	ReadAnalogInput(channel string) (int, error)
}

// StatePublisher mirrors service state to other processes. Nothing published
// is read back by the control loop.
type StatePublisher interface {
	Connect() error
	Close() error

	PublishBatteryReading(reading types.SensorReading) error
	PublishIgnitionState(on bool) error
	PublishPowerMode(mode types.PowerMode) error
	PublishSignal(payload string) error
}
