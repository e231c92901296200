package fsm

import "github.com/librescoot/librefsm"

// Actions defines the callbacks the power mode machine invokes on state
// entry. ScooterSystem implements this interface.
type Actions interface {
	EnterSleep(c *librefsm.Context) error
	EnterAwake(c *librefsm.Context) error
}
