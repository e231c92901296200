package types

import "errors"

type PowerMode string

const (
	PowerModeSleep PowerMode = "sleep"
	PowerModeAwake PowerMode = "awake"
)

// Battery ADC calibration. 500 is a dead pack (~3.75V), 800 is full (~6.40V).
const (
	BatteryRawEmpty = 500
	BatteryRawFull  = 800
)

// SensorReading is one battery sample. It is consumed once by the telemetry
// publisher and never stored.
type SensorReading struct {
	RawBatteryReading uint16
	BatteryPercentage float64
}

// MaxBoundedStringLen is the capacity of a BoundedString in bytes.
const MaxBoundedStringLen = 255

var ErrValueTooLong = errors.New("value exceeds 255 bytes")

// BoundedString holds a value of at most MaxBoundedStringLen bytes. The
// zero value is unset.
type BoundedString struct {
	value string
	set   bool
}

// Replace stores v if it differs from the current value. Oversized values are
// rejected and the previous value is kept.
func (b *BoundedString) Replace(v string) (bool, error) {
	if len(v) > MaxBoundedStringLen {
		return false, ErrValueTooLong
	}
	if b.set && b.value == v {
		return false, nil
	}
	b.value = v
	b.set = true
	return true, nil
}

func (b *BoundedString) String() string { return b.value }
