package models

import "time"

// DeviceMode is the operating mode chosen once per boot session.
type DeviceMode int

const (
	// ModeProvisioning exposes the local setup page; no network activity is attempted.
	ModeProvisioning DeviceMode = iota
	// ModeOperational runs the connectivity, input and publish loop.
	ModeOperational
)

func (m DeviceMode) String() string {
	switch m {
	case ModeProvisioning:
		return "provisioning"
	case ModeOperational:
		return "operational"
	default:
		return "unknown"
	}
}

// LinkHealth is a snapshot of the station link and broker session state.
type LinkHealth struct {
	WifiUp   bool `json:"wifi_up"`
	BrokerUp bool `json:"broker_up"` // Always false while WifiUp is false
}

// Credentials holds the persisted network and broker settings.
type Credentials struct {
	SSID          string `json:"ssid" yaml:"ssid"`
	Password      string `json:"password" yaml:"password"`
	BrokerAddress string `json:"mqtt_server" yaml:"mqtt_server"`
}

// Complete reports whether the station credentials are usable.
// The broker address is not required to leave provisioning.
func (c Credentials) Complete() bool {
	return c.SSID != "" && c.Password != ""
}

// ButtonGesture is the logical result of sampling the reset button.
type ButtonGesture int

const (
	GestureNone ButtonGesture = iota
	GestureLongPress
)

func (g ButtonGesture) String() string {
	if g == GestureLongPress {
		return "long_press"
	}
	return "none"
}

// EncoderEvent is the semantic gesture produced by the rotary encoder.
type EncoderEvent int

const (
	EncoderNone EncoderEvent = iota
	EncoderRotateLeft
	EncoderRotateRight
	EncoderClick
)

func (e EncoderEvent) String() string {
	switch e {
	case EncoderRotateLeft:
		return "rotate_left"
	case EncoderRotateRight:
		return "rotate_right"
	case EncoderClick:
		return "click"
	default:
		return "none"
	}
}

// Command is an outbound control message.
type Command struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// BlinkPattern describes the status LED cadence.
// A steady pattern keeps the LED lit; otherwise the LED toggles every Period.
type BlinkPattern struct {
	Steady bool
	Period time.Duration
}
