package core

import (
	"context"

	"notecard-service/internal/signals"
)

// processSignals runs one signal pass. Draining sources are read until
// empty; others are asked once.
func (s *ScooterSystem) processSignals(ctx context.Context) {
	if s.source == nil {
		return
	}
	if !s.source.Draining() {
		if ev, ok := s.source.Next(ctx); ok {
			s.dispatchSignal(ev)
		}
		return
	}
	for {
		ev, ok := s.source.Next(ctx)
		if !ok {
			return
		}
		s.dispatchSignal(ev)
	}
}

// dispatchSignal honks for any non-empty signal. The payload is logged, not
// interpreted.
func (s *ScooterSystem) dispatchSignal(ev signals.Event) {
	if ev.Empty() {
		return
	}
	s.logger.Infof("Received signal: %s", ev)
	s.mirrorSignal(ev.String())
	s.pulseHorn()
}

// pulseHorn drives the horn for the configured pulse. It blocks the loop.
func (s *ScooterSystem) pulseHorn() {
	if err := s.io.WriteDigitalOutput("horn", true); err != nil {
		s.logger.Errorf("Failed to activate horn: %v", err)
		return
	}
	s.sleep(s.opts.HornPulse)
	if err := s.io.WriteDigitalOutput("horn", false); err != nil {
		s.logger.Errorf("Failed to deactivate horn: %v", err)
	}
}
