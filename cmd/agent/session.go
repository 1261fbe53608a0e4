package main

import (
	"context"
	"fmt"
	"time"

	"github.com/benmeehan/knob-agent/internal/constants"
	"github.com/benmeehan/knob-agent/internal/models"
	"github.com/benmeehan/knob-agent/internal/portal"
	"github.com/benmeehan/knob-agent/internal/registry"
	"github.com/benmeehan/knob-agent/internal/services"
	"github.com/benmeehan/knob-agent/internal/utils"
	"github.com/benmeehan/knob-agent/pkg/gpio"
	"github.com/benmeehan/knob-agent/pkg/mqtt"
	"github.com/benmeehan/knob-agent/pkg/store"
	"github.com/benmeehan/knob-agent/pkg/wifi"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// hardware is opened once per process and shared by every session.
type hardware struct {
	device  *gpio.Device
	station *wifi.Station
}

func openHardware(config *utils.Config, logger zerolog.Logger) (*hardware, error) {
	device, err := gpio.Open(config.GPIO, logger.With().Str("component", "gpio").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w", err)
	}
	station := wifi.NewStation(config.WiFi.Interface, config.WiFi.ConnectTimeout, wifi.ExecRunner{}, wifi.SystemInterfaces, logger)
	return &hardware{device: device, station: station}, nil
}

func (h *hardware) Close() {
	h.station.Wait()
	h.device.Close()
}

// accessPoint binds the station to the configured provisioning identity.
type accessPoint struct {
	station *wifi.Station
	cfg     wifi.APConfig
}

func (a accessPoint) Start(ctx context.Context) error {
	return a.station.StartAccessPoint(ctx, a.cfg)
}

func (a accessPoint) Stop(ctx context.Context) error {
	return a.station.StopAccessPoint(ctx, a.cfg)
}

// newSession wires a fresh controller for one boot session.
func newSession(config *utils.Config, prefs store.Preferences, hw *hardware, logger zerolog.Logger) *services.ModeController {
	supervisorConfig := services.SupervisorConfig{
		ReconnectInterval: config.WiFi.ReconnectInterval,
		ConnectTimeout:    config.MQTT.ConnectTimeout,
		SubscribeTopic:    config.MQTT.SubscribeTopic,
		QOS:               byte(config.MQTT.QOS),
	}

	newSupervisor := func(creds models.Credentials) (*services.NetworkSupervisor, error) {
		client := mqtt.NewMqttService()
		supervisor := services.NewNetworkSupervisor(creds, hw.station, client, supervisorConfig, logger)
		if creds.BrokerAddress == "" {
			return supervisor, nil
		}

		brokerURL, err := mqtt.BrokerURL(creds.BrokerAddress, config.MQTT.Port)
		if err != nil {
			return nil, err
		}
		// Generate a unique MQTT Client ID by appending a UUID
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		logger.Info().Str("broker", brokerURL).Str("client_id", clientID).Msg("MQTT client configured")

		client.Initialize(brokerURL, clientID, config.MQTT.ConnectTimeout, supervisor.ConnectionLost)
		return supervisor, nil
	}

	newPortal := func(restarter services.Restarter) (registry.Service, error) {
		var advertiser portal.Advertiser
		if config.Portal.MDNS.Enabled {
			advertiser = portal.NewZeroconfAdvertiser(config.Portal.MDNS.Instance, "path=/", "ssid="+config.WiFi.AccessPoint.SSID)
		}
		return portal.New(config.Portal.Config, prefs, restarter, advertiser, logger), nil
	}

	return services.NewModeController(services.ControllerOptions{
		Preferences:   prefs,
		Input:         services.NewInputMonitor(hw.device.Button, hw.device.Encoder, constants.LongPressThreshold, logger),
		Indicator:     services.NewStatusIndicator(hw.device.LED, logger),
		AccessPoint:   accessPoint{station: hw.station, cfg: config.WiFi.AccessPoint},
		NewSupervisor: newSupervisor,
		NewPortal:     newPortal,
		Intervals: services.TaskIntervals{
			Encoder: config.Tasks.Encoder,
			Button:  config.Tasks.Button,
			Network: config.Tasks.Network,
			Status:  config.Tasks.Status,
		},
		Now:    time.Now,
		Logger: logger,
	})
}
