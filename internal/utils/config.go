package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/knob-agent/internal/constants"
	"github.com/benmeehan/knob-agent/internal/portal"
	"github.com/benmeehan/knob-agent/pkg/file"
	"github.com/benmeehan/knob-agent/pkg/gpio"
	"github.com/benmeehan/knob-agent/pkg/wifi"
)

// Config represents the structure of the configuration file.
type Config struct {
	Logging struct {
		Level string `yaml:"level"` // zerolog level name
	} `yaml:"logging"`

	Store struct {
		Dir       string `yaml:"dir"`       // Directory holding the preferences files
		Namespace string `yaml:"namespace"` // Preferences namespace of the credentials
	} `yaml:"store"`

	WiFi struct {
		Interface         string        `yaml:"interface"`          // Wireless interface managed by NetworkManager
		ReconnectInterval time.Duration `yaml:"reconnect_interval"` // Minimum spacing between association attempts
		ConnectTimeout    time.Duration `yaml:"connect_timeout"`    // Upper bound of one association attempt
		AccessPoint       wifi.APConfig `yaml:"access_point"`       // Identity used while provisioning
	} `yaml:"wifi"`

	MQTT struct {
		Port           int           `yaml:"port"`            // Broker port when the stored address has none
		ClientID       string        `yaml:"client_id"`       // Client id prefix, a session suffix is appended
		SubscribeTopic string        `yaml:"subscribe_topic"` // Diagnostic subscription
		QOS            int           `yaml:"qos"`             // QoS of publishes and the subscription
		ConnectTimeout time.Duration `yaml:"connect_timeout"` // Upper bound of one broker connect
	} `yaml:"mqtt"`

	GPIO gpio.Config `yaml:"gpio"`

	Tasks struct {
		Encoder time.Duration `yaml:"encoder"` // Encoder poll period
		Button  time.Duration `yaml:"button"`  // Button poll period
		Network time.Duration `yaml:"network"` // Link maintenance period
		Status  time.Duration `yaml:"status"`  // LED refresh period
	} `yaml:"tasks"`

	Portal struct {
		portal.Config `yaml:",inline"`
		MDNS          struct {
			Enabled  bool   `yaml:"enabled"`  // Announce the setup page over mDNS
			Instance string `yaml:"instance"` // mDNS instance name
		} `yaml:"mdns"`
	} `yaml:"portal"`
}

// DefaultConfig returns the configuration used when the file leaves a setting out.
func DefaultConfig() *Config {
	var c Config

	c.Logging.Level = "info"

	c.Store.Dir = "/var/lib/knob-agent"
	c.Store.Namespace = constants.StoreNamespace

	c.WiFi.Interface = "wlan0"
	c.WiFi.ReconnectInterval = constants.ReconnectInterval
	c.WiFi.ConnectTimeout = 30 * time.Second
	c.WiFi.AccessPoint = wifi.APConfig{
		SSID:           constants.AccessPointSSID,
		Address:        constants.AccessPointAddress,
		Gateway:        constants.AccessPointGateway,
		ConnectionName: constants.AccessPointConnectionName,
	}

	c.MQTT.Port = constants.DefaultMQTTPort
	c.MQTT.ClientID = constants.DefaultMQTTClientID
	c.MQTT.SubscribeTopic = constants.DefaultSubscribeTopic
	c.MQTT.ConnectTimeout = constants.DefaultConnectTimeout

	c.GPIO = gpio.Config{
		Chip:             "gpiochip0",
		LEDPin:           2,
		EncoderCLK:       17,
		EncoderDT:        27,
		EncoderSW:        22,
		ButtonPin:        22,
		StepsPerDetent:   2,
		ClickWindow:      time.Second,
		SwitchDebounce:   20 * time.Millisecond,
		QuadratureFilter: time.Millisecond,
	}

	c.Tasks.Encoder = time.Millisecond
	c.Tasks.Button = 20 * time.Millisecond
	c.Tasks.Network = 500 * time.Millisecond
	c.Tasks.Status = 100 * time.Millisecond

	c.Portal.Listen = ":80"
	c.Portal.RestartDelay = constants.RestartDelay
	c.Portal.ShutdownTimeout = 5 * time.Second
	c.Portal.MDNS.Enabled = true
	c.Portal.MDNS.Instance = "knob-agent"

	return &c
}

// LoadConfig loads the YAML configuration from the specified file on top of DefaultConfig.
// It returns a pointer to the Config struct and an error if loading or validation fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	config := DefaultConfig()
	if err := fileClient.ReadYamlFile(filename, config); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return config, nil
}

// Validate rejects settings the agent cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Store.Dir == "" {
		errs = append(errs, errors.New("store.dir is empty"))
	}
	if c.Store.Namespace == "" {
		errs = append(errs, errors.New("store.namespace is empty"))
	}
	if c.WiFi.Interface == "" {
		errs = append(errs, errors.New("wifi.interface is empty"))
	}
	if err := c.WiFi.AccessPoint.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("wifi.access_point: %w", err))
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		errs = append(errs, fmt.Errorf("mqtt.port %d is out of range", c.MQTT.Port))
	}
	if c.MQTT.QOS < 0 || c.MQTT.QOS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos %d is not 0, 1 or 2", c.MQTT.QOS))
	}
	if c.GPIO.Chip == "" {
		errs = append(errs, errors.New("gpio.chip is empty"))
	}
	if c.GPIO.StepsPerDetent <= 0 {
		errs = append(errs, errors.New("gpio.steps_per_detent must be positive"))
	}

	durations := map[string]time.Duration{
		"wifi.reconnect_interval": c.WiFi.ReconnectInterval,
		"wifi.connect_timeout":    c.WiFi.ConnectTimeout,
		"mqtt.connect_timeout":    c.MQTT.ConnectTimeout,
		"tasks.encoder":           c.Tasks.Encoder,
		"tasks.button":            c.Tasks.Button,
		"tasks.network":           c.Tasks.Network,
		"tasks.status":            c.Tasks.Status,
		"portal.restart_delay":    c.Portal.RestartDelay,
	}
	for _, name := range sortedKeys(durations) {
		if durations[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	return errors.Join(errs...)
}
