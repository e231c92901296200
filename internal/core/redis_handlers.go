package core

import "notecard-service/internal/types"

// nopPublisher is used when the Redis mirror is disabled.
type nopPublisher struct{}

func (nopPublisher) Connect() error                                  { return nil }
func (nopPublisher) Close() error                                    { return nil }
func (nopPublisher) PublishBatteryReading(types.SensorReading) error { return nil }
func (nopPublisher) PublishIgnitionState(bool) error                 { return nil }
func (nopPublisher) PublishPowerMode(types.PowerMode) error          { return nil }
func (nopPublisher) PublishSignal(string) error                      { return nil }

// mirrorReading, mirrorIgnition and mirrorSignal log publish failures and
// carry on; the mirror never affects the control loop.

func (s *ScooterSystem) mirrorReading(reading types.SensorReading) {
	if err := s.redis.PublishBatteryReading(reading); err != nil {
		s.logger.Warnf("Failed to mirror battery reading: %v", err)
	}
}

func (s *ScooterSystem) mirrorIgnition(on bool) {
	if err := s.redis.PublishIgnitionState(on); err != nil {
		s.logger.Warnf("Failed to mirror ignition state: %v", err)
	}
}

func (s *ScooterSystem) mirrorSignal(payload string) {
	if err := s.redis.PublishSignal(payload); err != nil {
		s.logger.Warnf("Failed to mirror signal: %v", err)
	}
}
