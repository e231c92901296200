package core

import (
	"context"

	"notecard-service/internal/fsm"
)

// isIgnitionOn asks the relay for the level of AUX1. Any failure reads as
// ignition off.
func (s *ScooterSystem) isIgnitionOn(ctx context.Context) bool {
	req := s.relay.NewRequest("card.aux").
		SetString("mode", "gpio").
		SetStrings("usage", "input", "off", "off", "off")

	rsp, err := s.relay.RequestAndResponse(ctx, req)
	if err != nil {
		s.logger.Warnf("Failed to query ignition: %v", err)
		s.mirrorIgnition(false)
		return false
	}

	on := false
	if aux1, ok := rsp.ObjectAt("state", 0); ok {
		on, _ = aux1.Bool("high")
	}
	s.logger.Debugf("Ignition state: %v", on)
	s.mirrorIgnition(on)
	return on
}

// enterWake switches the relay to continuous, synced communication.
func (s *ScooterSystem) enterWake(ctx context.Context) {
	req := s.relay.NewRequest("hub.set").
		SetString("mode", "continuous").
		SetBool("sync", true)
	if err := s.relay.SendRequest(ctx, req); err != nil {
		s.logger.Warnf("Failed to enter continuous mode: %v", err)
	}

	s.sendPowerEvent(fsm.EvWake, fsm.StateSleep)
}

// enterSleep switches the relay to periodic mode, flushes queued notes and
// arms wake-on-ignition. The commands are sent on every call, whatever the
// current power mode.
func (s *ScooterSystem) enterSleep(ctx context.Context) {
	req := s.relay.NewRequest("hub.set").
		SetString("mode", "periodic").
		SetInt("outbound", 15).
		SetInt("inbound", 15)
	if err := s.relay.SendRequestWithRetry(ctx, req, hubSetRetryTimeout); err != nil {
		s.logger.Errorf("Failed to enter periodic mode: %v", err)
	}

	req = s.relay.NewRequest("hub.sync").SetBool("allow", true)
	if err := s.relay.SendRequest(ctx, req); err != nil {
		s.logger.Warnf("Failed to sync: %v", err)
	}

	cmd := s.relay.NewCommand("card.attn").SetString("mode", "rearm,auxgpio")
	if err := s.relay.SendRequest(ctx, cmd); err != nil {
		s.logger.Warnf("Failed to arm wake on ignition: %v", err)
	}

	s.sendPowerEvent(fsm.EvIgnitionOff, fsm.StateAwake)
}
