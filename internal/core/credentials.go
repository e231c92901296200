package core

import (
	"context"
	"errors"
	"strings"

	"notecard-service/internal/types"
)

const (
	envWifiSSID     = "wifi_ssid"
	envWifiPassword = "wifi_password"
)

var credentialVars = []string{envWifiSSID, envWifiPassword}

// OnVariableUpdate applies one remote environment variable. Recognized
// credentials are stored if they changed; the relay is updated later by
// commitCredentials.
func (s *ScooterSystem) OnVariableUpdate(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *types.BoundedString
	var label string
	switch name {
	case envWifiSSID:
		target, label = &s.wifiSSID, "Wi-Fi SSID"
	case envWifiPassword:
		target, label = &s.wifiPassword, "Wi-Fi password"
	default:
		s.logger.Infof("Ignoring unknown environment variable: %s", name)
		return
	}

	changed, err := target.Replace(value)
	if err != nil {
		if errors.Is(err, types.ErrValueTooLong) {
			s.logger.Errorf("%s is too long! (max: %d)", label, types.MaxBoundedStringLen)
		} else {
			s.logger.Errorf("Failed to update %s: %v", label, err)
		}
		return
	}
	if !changed {
		return
	}

	if name == envWifiPassword {
		s.logger.Infof("Updating %s to %s.", label, strings.Repeat("*", len(value)))
	} else {
		s.logger.Infof("Updating %s to %s.", label, value)
	}
	s.credentialsPending = true
}

// commitCredentials pushes both credentials to the relay in one request if
// either changed since the last commit.
func (s *ScooterSystem) commitCredentials(ctx context.Context) {
	s.mu.Lock()
	if !s.credentialsPending {
		s.mu.Unlock()
		return
	}
	s.credentialsPending = false
	ssid := s.wifiSSID.String()
	password := s.wifiPassword.String()
	s.mu.Unlock()

	req := s.relay.NewRequest("card.wifi").
		SetString("ssid", ssid).
		SetString("password", password)
	if err := s.relay.SendRequest(ctx, req); err != nil {
		s.logger.Warnf("Failed to update Wi-Fi credentials: %v", err)
	}
}

// syncCredentials fetches the credential variables and applies them in a
// fixed order before committing.
func (s *ScooterSystem) syncCredentials(ctx context.Context) {
	values, err := s.relay.FetchEnv(ctx, credentialVars)
	if err != nil {
		s.logger.Warnf("Failed to fetch environment variables: %v", err)
		return
	}

	for _, name := range credentialVars {
		if value, ok := values[name]; ok {
			s.OnVariableUpdate(name, value)
		}
	}

	s.commitCredentials(ctx)
}
