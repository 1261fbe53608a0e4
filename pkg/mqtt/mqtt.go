package mqtt

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTClient defines the interface for an MQTT client.
type MQTTClient interface {
	Connect() mqtt.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

// MqttService provides methods for MQTT operations.
type MqttService struct {
	client MQTTClient
}

// NewMqttService creates a new MqttService instance.
func NewMqttService() *MqttService {
	return &MqttService{}
}

// BrokerURL turns a stored broker address into a paho server URL.
// A bare host gets the tcp scheme and the default port; IPv6 literals are bracketed.
func BrokerURL(address string, port int) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", errors.New("broker address is empty")
	}
	if strings.Contains(address, "://") {
		return address, nil
	}

	if host, p, err := net.SplitHostPort(address); err == nil {
		if host == "" {
			return "", fmt.Errorf("broker address %q has no host", address)
		}
		if p == "" {
			p = strconv.Itoa(port)
		}
		return "tcp://" + net.JoinHostPort(host, p), nil
	}

	host := strings.TrimSuffix(strings.TrimPrefix(address, "["), "]")
	return "tcp://" + net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// Initialize configures the MQTT client without connecting.
// Automatic reconnection is disabled; callers decide when to retry.
func (s *MqttService) Initialize(brokerURL, clientID string, connectTimeout time.Duration, onLost func(err error)) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetCleanSession(true)
	if onLost != nil {
		opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			onLost(err)
		})
	}

	s.client = mqtt.NewClient(opts)
}

// Connect connects to the MQTT broker.
func (s *MqttService) Connect() mqtt.Token {
	return s.client.Connect()
}

// IsConnected reports whether the session is currently established.
func (s *MqttService) IsConnected() bool {
	return s.client != nil && s.client.IsConnected()
}

// Publish sends a message to the specified topic.
func (s *MqttService) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return s.client.Publish(topic, qos, retained, payload)
}

// Subscribe subscribes to the specified topic with a message handler.
func (s *MqttService) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return s.client.Subscribe(topic, qos, callback)
}

// Unsubscribe unsubscribes from the specified topics.
func (s *MqttService) Unsubscribe(topics ...string) mqtt.Token {
	return s.client.Unsubscribe(topics...)
}

// Disconnect closes the session, waiting at most quiesce milliseconds.
func (s *MqttService) Disconnect(quiesce uint) {
	if s.client == nil {
		return
	}
	s.client.Disconnect(quiesce)
}
