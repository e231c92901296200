package hardware

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"notecard-service/internal/logger"
)

type LinuxHardwareIO struct {
	logger        *logger.Logger
	outputs       map[string]OutputMapping
	analogInputs  map[string]AnalogMapping
	iioRoot       string
	chips         map[int]*gpiocdev.Chip
	lines         map[string]*gpiocdev.Line
	initialValues map[string]bool
	mu            sync.RWMutex
}

func NewLinuxHardwareIO(l *logger.Logger, outputs map[string]OutputMapping, analogInputs map[string]AnalogMapping) *LinuxHardwareIO {
	if outputs == nil {
		outputs = DoMappings
	}
	if analogInputs == nil {
		analogInputs = AiMappings
	}
	return &LinuxHardwareIO{
		logger:        l,
		outputs:       outputs,
		analogInputs:  analogInputs,
		iioRoot:       IioDevicesDir,
		chips:         make(map[int]*gpiocdev.Chip),
		lines:         make(map[string]*gpiocdev.Line),
		initialValues: make(map[string]bool),
	}
}

func (io *LinuxHardwareIO) SetInitialValue(name string, value bool) {
	io.mu.Lock()
	defer io.mu.Unlock()
	io.initialValues[name] = value
}

func (io *LinuxHardwareIO) Initialize() error {
	io.logger.Infof("Initializing hardware IO")

	for name, mapping := range io.outputs {
		chip, ok := io.chips[mapping.Chip]
		if !ok {
			var err error
			chip, err = gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", mapping.Chip))
			if err != nil {
				return fmt.Errorf("failed to open GPIO chip %d: %w", mapping.Chip, err)
			}
			io.chips[mapping.Chip] = chip
		}

		io.mu.RLock()
		val := 0
		if value, exists := io.initialValues[name]; exists && value {
			val = 1
		}
		io.mu.RUnlock()

		line, err := chip.RequestLine(mapping.Line,
			gpiocdev.AsOutput(val),
			gpiocdev.WithConsumer(ConsumerName))
		if err != nil {
			return fmt.Errorf("failed to request GPIO line %d: %w", mapping.Line, err)
		}

		io.lines[name] = line
		io.logger.Infof("Configured DO %s: chip=%d, line=%d", name, mapping.Chip, mapping.Line)
	}

	for name, mapping := range io.analogInputs {
		io.logger.Infof("Configured AI %s: %s channel %d", name, mapping.Device, mapping.Channel)
	}

	return nil
}

func (io *LinuxHardwareIO) WriteDigitalOutput(channel string, value bool) error {
	io.mu.RLock()
	line, ok := io.lines[channel]
	io.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown digital output channel: %s", channel)
	}

	val := 0
	if value {
		val = 1
	}

	if err := line.SetValue(val); err != nil {
		return fmt.Errorf("failed to set DO %s=%v: %w", channel, value, err)
	}

	io.logger.Debugf("Set DO %s=%v", channel, value)
	return nil
}

// ReadAnalogInput returns the raw ADC count for a named analog channel.
func (io *LinuxHardwareIO) ReadAnalogInput(channel string) (int, error) {
	mapping, ok := io.analogInputs[channel]
	if !ok {
		return -1, fmt.Errorf("unknown analog input channel: %s", channel)
	}
	return ReadAdcValue(io.iioRoot, mapping.Device, mapping.Channel)
}

func (io *LinuxHardwareIO) Cleanup() {
	io.mu.Lock()
	defer io.mu.Unlock()

	io.logger.Infof("Cleaning up hardware resources")

	for name, line := range io.lines {
		line.Close()
		io.logger.Debugf("Closed GPIO line for %s", name)
	}
	io.lines = make(map[string]*gpiocdev.Line)

	for id, chip := range io.chips {
		chip.Close()
		io.logger.Debugf("Closed GPIO chip %d", id)
	}
	io.chips = make(map[int]*gpiocdev.Chip)

	io.logger.Infof("Hardware cleanup complete")
}
