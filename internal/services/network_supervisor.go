package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benmeehan/knob-agent/internal/models"
	"github.com/benmeehan/knob-agent/pkg/mqtt"
	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Station is the Wi-Fi station link. Begin and Reconnect must return without
// waiting for association.
type Station interface {
	Begin(ssid, password string) error
	Reconnect() error
	Connected() bool
}

// SupervisorConfig holds the pacing and topic settings of the NetworkSupervisor.
type SupervisorConfig struct {
	ReconnectInterval time.Duration
	ConnectTimeout    time.Duration
	SubscribeTopic    string
	QOS               byte
}

// NetworkSupervisor owns the station link and the broker session of an operational session.
type NetworkSupervisor struct {
	creds   models.Credentials
	station Station
	client  mqtt.MQTTClient
	cfg     SupervisorConfig
	logger  zerolog.Logger

	mu          sync.Mutex
	lastAttempt time.Time
	attempted   bool
	attempts    int

	wifiUp     atomic.Bool
	brokerUp   atomic.Bool
	subscribed atomic.Bool
}

// NewNetworkSupervisor creates a supervisor for creds. The credentials are kept
// for the whole session; new settings take effect only after a restart.
func NewNetworkSupervisor(creds models.Credentials, station Station, client mqtt.MQTTClient, cfg SupervisorConfig, logger zerolog.Logger) *NetworkSupervisor {
	return &NetworkSupervisor{
		creds:   creds,
		station: station,
		client:  client,
		cfg:     cfg,
		logger:  logger.With().Str("component", "network").Logger(),
	}
}

// Begin issues the first association with the stored credentials.
// It counts as a reconnect attempt for rate limiting.
func (s *NetworkSupervisor) Begin(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info().Str("ssid", s.creds.SSID).Msg("Joining network")
	if s.creds.BrokerAddress == "" {
		s.logger.Warn().Msg("No broker address stored, commands will not be published")
	}
	if err := s.station.Begin(s.creds.SSID, s.creds.Password); err != nil {
		s.logger.Error().Err(err).Msg("Failed to start association")
	}
	s.recordAttempt(now)
}

// EnsureWifi samples the link and, when it is down, issues at most one
// reconnect per ReconnectInterval. It reports whether an attempt was issued.
func (s *NetworkSupervisor) EnsureWifi(now time.Time) bool {
	if s.station.Connected() {
		if !s.wifiUp.Swap(true) {
			s.logger.Info().Msg("Wi-Fi connected")
		}
		return false
	}

	s.brokerUp.Store(false)
	if s.wifiUp.Swap(false) {
		s.logger.Warn().Msg("Wi-Fi connection lost")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempted && now.Sub(s.lastAttempt) < s.cfg.ReconnectInterval {
		return false
	}

	s.logger.Warn().Int("attempt", s.attempts+1).Msg("Reconnecting Wi-Fi")
	if err := s.station.Reconnect(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to start reconnect")
	}
	s.recordAttempt(now)
	return true
}

func (s *NetworkSupervisor) recordAttempt(now time.Time) {
	s.lastAttempt = now
	s.attempted = true
	s.attempts++
}

// Attempts returns the number of association attempts issued so far.
func (s *NetworkSupervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// EnsureBroker connects the broker session when the link is up and the session is not.
// Without a stored broker address the session stays down.
// The connect is bounded by ConnectTimeout; a failure is left for the next call.
func (s *NetworkSupervisor) EnsureBroker() bool {
	if !s.wifiUp.Load() || s.creds.BrokerAddress == "" {
		s.brokerUp.Store(false)
		return false
	}
	if s.client.IsConnected() {
		// A connect that outlived its wait still needs the subscription.
		if !s.subscribed.Load() {
			s.subscribe()
		}
		s.brokerUp.Store(true)
		return true
	}
	s.brokerUp.Store(false)
	s.subscribed.Store(false)

	s.logger.Info().Str("broker", s.creds.BrokerAddress).Msg("Connecting to MQTT broker")
	token := s.client.Connect()
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		s.logger.Warn().Dur("timeout", s.cfg.ConnectTimeout).Msg("MQTT connect timed out, try again later")
		return false
	}
	if err := token.Error(); err != nil {
		s.logger.Warn().Err(err).Msg("MQTT connect failed, try again later")
		return false
	}

	s.subscribe()

	// The link may have dropped while connecting.
	s.brokerUp.Store(s.wifiUp.Load())
	s.logger.Info().Str("topic", s.cfg.SubscribeTopic).Msg("MQTT connected")
	return true
}

// subscribe (re-)subscribes the diagnostic topic. A failure is retried on the next EnsureBroker.
func (s *NetworkSupervisor) subscribe() {
	sub := s.client.Subscribe(s.cfg.SubscribeTopic, s.cfg.QOS, s.OnMessage)
	if !sub.WaitTimeout(s.cfg.ConnectTimeout) {
		s.logger.Warn().Str("topic", s.cfg.SubscribeTopic).Msg("MQTT subscribe timed out")
		return
	}
	if err := sub.Error(); err != nil {
		s.logger.Warn().Err(err).Str("topic", s.cfg.SubscribeTopic).Msg("MQTT subscribe failed")
		return
	}
	s.subscribed.Store(true)
}

// ConnectionLost marks the session down. It is installed as the client's connection-lost handler.
func (s *NetworkSupervisor) ConnectionLost(err error) {
	s.brokerUp.Store(false)
	s.subscribed.Store(false)
	s.logger.Warn().Err(err).Msg("MQTT connection lost")
}

// Health returns the current link snapshot. The broker is never reported up without Wi-Fi.
func (s *NetworkSupervisor) Health() models.LinkHealth {
	wifi := s.wifiUp.Load()
	return models.LinkHealth{
		WifiUp:   wifi,
		BrokerUp: wifi && s.brokerUp.Load(),
	}
}

// Publish sends cmd without waiting for delivery. It reports false when the
// session is down and the command was dropped.
func (s *NetworkSupervisor) Publish(cmd models.Command) bool {
	if !s.Health().BrokerUp {
		s.logger.Debug().Str("topic", cmd.Topic).Msg("Broker not connected, dropping command")
		return false
	}
	s.client.Publish(cmd.Topic, s.cfg.QOS, false, cmd.Payload)
	s.logger.Debug().Str("topic", cmd.Topic).Str("payload", cmd.Payload).Msg("Command published")
	return true
}

// OnMessage logs inbound messages. Nothing received is acted upon.
func (s *NetworkSupervisor) OnMessage(_ mqttLib.Client, msg mqttLib.Message) {
	s.logger.Info().
		Str("topic", msg.Topic()).
		Str("payload", string(msg.Payload())).
		Msg("Received MQTT message")
}

// Close drops the broker session immediately, without draining in-flight publishes.
// A connect still in flight is abandoned as well.
func (s *NetworkSupervisor) Close() {
	s.client.Disconnect(0)
	s.brokerUp.Store(false)
	s.subscribed.Store(false)
}
