package mqtt_test

import (
	"testing"

	"github.com/benmeehan/knob-agent/pkg/mqtt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{name: "bare host", address: "192.168.0.199", want: "tcp://192.168.0.199:1883"},
		{name: "host with port", address: "broker.local:8883", want: "tcp://broker.local:8883"},
		{name: "full url", address: "ssl://broker.example.com:8883", want: "ssl://broker.example.com:8883"},
		{name: "surrounding space", address: "  10.0.0.5 ", want: "tcp://10.0.0.5:1883"},
		{name: "bare ipv6", address: "fe80::1", want: "tcp://[fe80::1]:1883"},
		{name: "bracketed ipv6", address: "[fd00::10]", want: "tcp://[fd00::10]:1883"},
		{name: "ipv6 with port", address: "[fd00::10]:8883", want: "tcp://[fd00::10]:8883"},
		{name: "empty port", address: "broker.local:", want: "tcp://broker.local:1883"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mqtt.BrokerURL(tt.address, 1883)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBrokerURL_Empty(t *testing.T) {
	_, err := mqtt.BrokerURL("  ", 1883)
	assert.Error(t, err)

	_, err = mqtt.BrokerURL(":1883", 1883)
	assert.Error(t, err)
}

func TestMqttService_UninitialisedIsDisconnected(t *testing.T) {
	s := mqtt.NewMqttService()
	assert.False(t, s.IsConnected())
	s.Disconnect(0)
}
