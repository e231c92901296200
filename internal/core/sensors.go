package core

import (
	"context"
	"fmt"

	"notecard-service/internal/hardware"
	"notecard-service/internal/types"
)

// batteryPercentage clamps raw to the calibrated range and maps it linearly
// onto 0..100.
func batteryPercentage(raw int) (uint16, float64) {
	clamped := hardware.Clamp(raw, types.BatteryRawEmpty, types.BatteryRawFull)
	span := float64(types.BatteryRawFull - types.BatteryRawEmpty)
	return uint16(clamped), float64(clamped-types.BatteryRawEmpty) * 100 / span
}

// sampleSensors reads the battery ADC and records the sample time. It never
// fails; an unreadable or out-of-scale ADC counts as raw 0.
func (s *ScooterSystem) sampleSensors() types.SensorReading {
	raw, err := s.io.ReadAnalogInput("battery")
	if err != nil {
		s.logger.Warnf("Failed to read battery ADC: %v", err)
		raw = 0
	} else if !hardware.InRange(raw, 0, hardware.AdcMax) {
		s.logger.Warnf("Battery ADC value %d outside 0..%d", raw, hardware.AdcMax)
		raw = 0
	}

	clamped, percent := batteryPercentage(raw)
	s.lastSample = s.now()

	s.logger.Debugf("Battery sample: raw=%d clamped=%d charge=%.1f%%", raw, clamped, percent)
	return types.SensorReading{
		RawBatteryReading: clamped,
		BatteryPercentage: percent,
	}
}

// publishReading queues the reading as a note and mirrors it. The mirror is
// written even when the send fails; the note itself is not retried.
func (s *ScooterSystem) publishReading(ctx context.Context, reading types.SensorReading) error {
	req := s.relay.NewRequest("note.add").SetObject("body", map[string]interface{}{
		"raw_battery_reading": reading.RawBatteryReading,
		"battery_percentage":  reading.BatteryPercentage,
	})
	err := s.relay.SendRequest(ctx, req)
	s.mirrorReading(reading)
	if err != nil {
		return fmt.Errorf("failed to send sensor readings: %w", err)
	}
	return nil
}
