package constants

import "time"

// Outbound control topics and payloads.
const (
	TopicIncrement = "increment/volume"
	TopicDecrement = "decrement/volume"
	TopicToggle    = "toggle/volume"

	PayloadIncrement = "+"
	PayloadDecrement = "-"
	PayloadToggle    = "toggle"
)

// Persisted keys in the credential store.
const (
	StoreNamespace   = "wifi-config"
	KeySSID          = "ssid"
	KeyPassword      = "password"
	KeyBrokerAddress = "mqtt_server"
)

const (
	// LongPressThreshold is how long the button must be held before a factory reset.
	LongPressThreshold = 5000 * time.Millisecond

	// ReconnectInterval is the minimum spacing between station reconnect attempts.
	ReconnectInterval = 10000 * time.Millisecond

	// RestartDelay lets the confirmation page reach the browser before restarting.
	RestartDelay = 1000 * time.Millisecond
)

// Status LED toggle periods.
const (
	BlinkProvisioning = 3000 * time.Millisecond
	BlinkWifiDown     = 1000 * time.Millisecond
	BlinkBrokerDown   = 500 * time.Millisecond
)

// MQTT session defaults.
const (
	DefaultMQTTPort       = 1883
	DefaultMQTTClientID   = "mqtt-client"
	DefaultSubscribeTopic = "#"
	DefaultConnectTimeout = 3 * time.Second
)

// Access point identity used while provisioning.
const (
	AccessPointSSID           = "SMART_TABLE"
	AccessPointAddress        = "192.168.4.100/24"
	AccessPointGateway        = "192.168.4.100"
	AccessPointConnectionName = "knob-agent-ap"
)
