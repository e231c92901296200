package fsm

import "github.com/librescoot/librefsm"

// Power mode states
const (
	StateSleep librefsm.StateID = "sleep"
	StateAwake librefsm.StateID = "awake"
)

// Power mode events
const (
	// Ignition read low on a sampling cycle
	EvIgnitionOff librefsm.EventID = "ignition-off"
	// Continuous mode requested (startup)
	EvWake librefsm.EventID = "wake"
)
