package hardware

const (
	ConsumerName = "notecard-service"

	IioDevicesDir = "/sys/bus/iio/devices"

	// AdcMax is the full-scale value of the 10-bit battery ADC.
	AdcMax = 1023
)

// OutputMapping locates a digital output on a gpiochip.
type OutputMapping struct {
	Chip int
	Line int
}

// AnalogMapping locates an ADC channel under IioDevicesDir.
type AnalogMapping struct {
	Device  string
	Channel int
}

// Default pin assignments for the scooter harness.
var DoMappings = map[string]OutputMapping{
	"horn": {2, 9},
}

var AiMappings = map[string]AnalogMapping{
	"battery": {"iio:device0", 0},
}
