package core

import (
	"context"

	"github.com/librescoot/librefsm"

	"notecard-service/internal/fsm"
	"notecard-service/internal/types"
)

// Ensure ScooterSystem implements fsm.Actions
var _ fsm.Actions = (*ScooterSystem)(nil)

// powerMachine is the slice of the librefsm machine the control loop uses.
type powerMachine struct {
	send    func(librefsm.Event) error
	current func() librefsm.StateID
}

func stateIDToPowerMode(id librefsm.StateID) types.PowerMode {
	switch id {
	case fsm.StateAwake:
		return types.PowerModeAwake
	default:
		return types.PowerModeSleep
	}
}

// initFSM builds and starts the power mode machine
func (s *ScooterSystem) initFSM(ctx context.Context) error {
	def := fsm.NewDefinition(s)
	machine, err := def.Build()
	if err != nil {
		return err
	}

	// Never query the machine from this callback; it runs under the FSM lock.
	machine.OnStateChange(func(from, to librefsm.StateID) {
		s.logger.Infof("Power mode transition: %s -> %s", stateIDToPowerMode(from), stateIDToPowerMode(to))
	})

	if err := machine.Start(ctx); err != nil {
		return err
	}

	s.power = &powerMachine{
		send:    machine.SendSync,
		current: machine.CurrentState,
	}
	s.logger.Infof("Power mode state machine started")
	return nil
}

// sendPowerEvent fires ev when the machine is in from. Other states have no
// transition for ev and the event is skipped.
func (s *ScooterSystem) sendPowerEvent(ev librefsm.EventID, from librefsm.StateID) {
	if s.power == nil {
		return
	}
	if s.power.current() != from {
		return
	}
	if err := s.power.send(librefsm.Event{ID: ev}); err != nil {
		s.logger.Warnf("Power mode event %s failed: %v", ev, err)
	}
}

// PowerMode returns the current power mode.
func (s *ScooterSystem) PowerMode() types.PowerMode {
	if s.power == nil {
		return types.PowerModeSleep
	}
	return stateIDToPowerMode(s.power.current())
}

// === State Entry Actions ===

func (s *ScooterSystem) EnterSleep(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterSleep")
	if err := s.redis.PublishPowerMode(types.PowerModeSleep); err != nil {
		s.logger.Warnf("Failed to publish power mode: %v", err)
	}
	return nil
}

func (s *ScooterSystem) EnterAwake(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterAwake")
	if err := s.redis.PublishPowerMode(types.PowerModeAwake); err != nil {
		s.logger.Warnf("Failed to publish power mode: %v", err)
	}
	return nil
}
