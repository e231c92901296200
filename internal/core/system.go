package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notecard-service/internal/logger"
	"notecard-service/internal/signals"
	"notecard-service/internal/types"
)

const (
	defaultSampleInterval = 15 * time.Second
	defaultHornPulse      = 250 * time.Millisecond
	hubSetRetryTimeout    = 5 * time.Second
)

// Options holds the settings ScooterSystem needs from the configuration.
type Options struct {
	ProductUID     string
	SerialNumber   string
	SignalMode     signals.Mode
	SampleInterval time.Duration
	HornPulse      time.Duration
}

type ScooterSystem struct {
	opts   Options
	logger *logger.Logger
	relay  RelayClient
	io     HardwareIO
	redis  StatePublisher
	source signals.Source
	power  *powerMachine

	mu                 sync.Mutex
	wifiSSID           types.BoundedString
	wifiPassword       types.BoundedString
	credentialsPending bool

	lastSample time.Time
	now        func() time.Time
	sleep      func(time.Duration)
}

// NewScooterSystem wires the control loop. A nil publisher disables the
// Redis mirror.
func NewScooterSystem(opts Options, relay RelayClient, io HardwareIO, redis StatePublisher, source signals.Source, l *logger.Logger) *ScooterSystem {
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = defaultSampleInterval
	}
	if opts.HornPulse <= 0 {
		opts.HornPulse = defaultHornPulse
	}
	if opts.SignalMode == "" {
		opts.SignalMode = signals.ModeStream
	}
	if redis == nil {
		redis = nopPublisher{}
	}

	s := &ScooterSystem{
		opts:   opts,
		logger: l,
		relay:  relay,
		io:     io,
		redis:  redis,
		source: source,
		now:    time.Now,
		sleep:  time.Sleep,
	}
	s.lastSample = s.now()
	return s
}

// Start brings up local hardware, the power machine and the relay
// configuration, then switches the relay to continuous mode.
func (s *ScooterSystem) Start(ctx context.Context) error {
	s.logger.Infof("Starting notecard service")

	s.io.SetInitialValue("horn", false)
	if err := s.io.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}

	if err := s.redis.Connect(); err != nil {
		s.logger.Warnf("Redis mirror unavailable, continuing without it: %v", err)
		s.redis = nopPublisher{}
	}

	if err := s.initFSM(ctx); err != nil {
		return fmt.Errorf("failed to start power state machine: %w", err)
	}

	s.configureRelay(ctx)

	s.logger.Infof("Ignition ON")
	s.enterWake(ctx)

	// Sampling is measured from the end of startup.
	s.lastSample = s.now()
	return nil
}

// configureRelay applies the one-time relay setup. Failures are logged and
// startup continues.
func (s *ScooterSystem) configureRelay(ctx context.Context) {
	req := s.relay.NewRequest("hub.set")
	if s.opts.ProductUID != "" {
		req.SetString("product", s.opts.ProductUID)
	}
	req.SetString("sn", s.opts.SerialNumber)
	if err := s.relay.SendRequestWithRetry(ctx, req, hubSetRetryTimeout); err != nil {
		s.logger.Errorf("Failed to set product identity: %v", err)
	}

	req = s.relay.NewRequest("card.dfu").
		SetString("mode", "altdfu").
		SetString("name", "stm32").
		SetBool("on", true)
	if err := s.relay.SendRequest(ctx, req); err != nil {
		s.logger.Warnf("Failed to configure DFU: %v", err)
	}

	req = s.relay.NewRequest("card.motion.sync").
		SetBool("start", true).
		SetBool("sync", true)
	if err := s.relay.SendRequest(ctx, req); err != nil {
		s.logger.Warnf("Failed to configure motion sync: %v", err)
	}

	auxMode := "req"
	if s.opts.SignalMode == signals.ModeStream {
		auxMode = "notify,signals"
	}
	req = s.relay.NewRequest("card.aux.serial").SetString("mode", auxMode)
	if err := s.relay.SendRequest(ctx, req); err != nil {
		s.logger.Warnf("Failed to configure AUX serial: %v", err)
	}

	req = s.relay.NewRequest("note.template").SetObject("body", map[string]interface{}{
		"raw_battery_reading": 22,
		"battery_percentage":  12.1,
	})
	if err := s.relay.SendRequest(ctx, req); err != nil {
		s.logger.Warnf("Failed to set note template: %v", err)
	}
}

// Run executes the control loop until ctx is cancelled. Cancellation is
// checked between iterations.
func (s *ScooterSystem) Run(ctx context.Context) {
	s.logger.Infof("Control loop running (sample interval %v, signals %s)", s.opts.SampleInterval, s.opts.SignalMode)
	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Control loop stopped")
			return
		default:
		}
		s.step(ctx)
	}
}

func (s *ScooterSystem) step(ctx context.Context) {
	if s.now().Sub(s.lastSample) >= s.opts.SampleInterval {
		s.syncCredentials(ctx)

		reading := s.sampleSensors()
		if err := s.publishReading(ctx, reading); err != nil {
			s.logger.Warnf("%v", err)
		}

		if !s.isIgnitionOn(ctx) {
			s.logger.Infof("Ignition OFF")
			s.enterSleep(ctx)
		}
	}

	s.processSignals(ctx)

	if idle := s.source.Idle(); idle > 0 {
		s.sleep(idle)
	}
}

func (s *ScooterSystem) Shutdown() {
	s.logger.Infof("Shutting down")

	if err := s.io.WriteDigitalOutput("horn", false); err != nil {
		s.logger.Warnf("Failed to release horn: %v", err)
	}
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			s.logger.Warnf("Failed to close signal source: %v", err)
		}
	}
	if err := s.relay.Close(); err != nil {
		s.logger.Warnf("Failed to close relay: %v", err)
	}
	if err := s.redis.Close(); err != nil {
		s.logger.Warnf("Failed to close Redis: %v", err)
	}
	s.io.Cleanup()
}
