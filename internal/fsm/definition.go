package fsm

import "github.com/librescoot/librefsm"

// NewDefinition creates the power mode FSM definition. The machine boots in
// sleep because the host is woken by the relay; startup moves it to awake.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateSleep,
			librefsm.WithOnEnter(actions.EnterSleep),
		).
		State(StateAwake,
			librefsm.WithOnEnter(actions.EnterAwake),
		).
		Transition(StateAwake, EvIgnitionOff, StateSleep).
		Transition(StateSleep, EvWake, StateAwake).
		Initial(StateSleep)
}
