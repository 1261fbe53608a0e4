package store

import (
	"fmt"

	"github.com/benmeehan/knob-agent/internal/constants"
	"github.com/benmeehan/knob-agent/internal/models"
)

// LoadCredentials reads the three credential keys; absent keys read as empty strings.
func LoadCredentials(p Preferences) models.Credentials {
	return models.Credentials{
		SSID:          p.GetString(constants.KeySSID, ""),
		Password:      p.GetString(constants.KeyPassword, ""),
		BrokerAddress: p.GetString(constants.KeyBrokerAddress, ""),
	}
}

// SaveCredentials writes the three credential keys in order.
func SaveCredentials(p Preferences, c models.Credentials) error {
	entries := []struct {
		key   string
		value string
	}{
		{constants.KeySSID, c.SSID},
		{constants.KeyPassword, c.Password},
		{constants.KeyBrokerAddress, c.BrokerAddress},
	}
	for _, e := range entries {
		if err := p.PutString(e.key, e.value); err != nil {
			return fmt.Errorf("failed to save %s: %w", e.key, err)
		}
	}
	return nil
}
