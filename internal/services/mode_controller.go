package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/knob-agent/internal/constants"
	"github.com/benmeehan/knob-agent/internal/models"
	"github.com/benmeehan/knob-agent/internal/registry"
	"github.com/benmeehan/knob-agent/internal/service_registry"
	"github.com/benmeehan/knob-agent/pkg/store"
	"github.com/rs/zerolog"
)

// ErrRestartRequested is returned by Run when the session ended in a restart.
var ErrRestartRequested = errors.New("restart requested")

// Restarter ends the current boot session.
type Restarter interface {
	Restart(reason string)
}

// AccessPoint brings the fixed provisioning network identity up and down.
type AccessPoint interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TaskIntervals are the tick periods of the session tasks.
type TaskIntervals struct {
	Encoder time.Duration
	Button  time.Duration
	Network time.Duration
	Status  time.Duration
}

// ControllerOptions wires the collaborators of a ModeController.
type ControllerOptions struct {
	Preferences   store.Preferences
	Input         *InputMonitor
	Indicator     *StatusIndicator
	AccessPoint   AccessPoint
	NewSupervisor func(creds models.Credentials) (*NetworkSupervisor, error)
	NewPortal     func(restarter Restarter) (registry.Service, error)
	Intervals     TaskIntervals
	Now           func() time.Time
	Logger        zerolog.Logger
}

// ModeController owns the state of one boot session: the mode chosen at boot,
// the session's components, and the restart signal.
type ModeController struct {
	opts   ControllerOptions
	logger zerolog.Logger

	mode       models.DeviceMode
	booted     bool
	supervisor *NetworkSupervisor

	restartOnce sync.Once
	restartCh   chan string
}

// NewModeController creates a controller for a single boot session.
func NewModeController(opts ControllerOptions) *ModeController {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ModeController{
		opts:      opts,
		logger:    opts.Logger.With().Str("component", "mode").Logger(),
		restartCh: make(chan string, 1),
	}
}

// Boot reads the stored credentials once and fixes the session mode.
func (c *ModeController) Boot() (models.DeviceMode, error) {
	if c.booted {
		return c.mode, nil
	}

	creds := store.LoadCredentials(c.opts.Preferences)
	if !creds.Complete() {
		c.mode = models.ModeProvisioning
		c.booted = true
		c.logger.Info().Msg("No stored credentials, entering provisioning mode")
		c.opts.Input.Arm(c.opts.Now())
		return c.mode, nil
	}

	supervisor, err := c.opts.NewSupervisor(creds)
	if err != nil {
		return c.mode, fmt.Errorf("failed to create network supervisor: %w", err)
	}
	c.supervisor = supervisor
	c.mode = models.ModeOperational
	c.booted = true
	c.logger.Info().Str("ssid", creds.SSID).Str("broker", creds.BrokerAddress).Msg("Credentials found, entering operational mode")

	now := c.opts.Now()
	c.opts.Input.Arm(now)
	c.supervisor.Begin(now)
	return c.mode, nil
}

// Mode returns the mode fixed at boot.
func (c *ModeController) Mode() models.DeviceMode {
	return c.mode
}

// Health returns the link snapshot; it is all-down while provisioning.
func (c *ModeController) Health() models.LinkHealth {
	if c.supervisor == nil {
		return models.LinkHealth{}
	}
	return c.supervisor.Health()
}

// Tick runs every step once, in the order a single polling loop would.
func (c *ModeController) Tick(now time.Time) {
	if c.mode == models.ModeOperational {
		c.NetworkStep(now)
		c.EncoderStep(now)
	}
	c.ButtonStep(now)
	c.StatusStep(now)
}

// NetworkStep maintains the station link, then the broker session.
func (c *ModeController) NetworkStep(now time.Time) {
	if c.supervisor == nil {
		return
	}
	c.supervisor.EnsureWifi(now)
	c.supervisor.EnsureBroker()
}

// EncoderStep polls the encoder and publishes the matching command while the broker is up.
func (c *ModeController) EncoderStep(_ time.Time) {
	ev := c.opts.Input.PollEncoder()
	if ev == models.EncoderNone || c.mode != models.ModeOperational {
		return
	}

	cmd, ok := CommandFor(ev)
	if !ok {
		return
	}
	c.logger.Debug().Str("event", ev.String()).Msg("Encoder gesture")
	c.supervisor.Publish(cmd)
}

// ButtonStep polls the button and performs a factory reset on a long press, in either mode.
func (c *ModeController) ButtonStep(now time.Time) {
	if c.opts.Input.PollButton(now) == models.GestureLongPress {
		c.FactoryReset()
	}
}

// StatusStep refreshes the status LED.
func (c *ModeController) StatusStep(now time.Time) {
	if err := c.opts.Indicator.Update(c.mode, c.Health(), now); err != nil {
		c.logger.Error().Err(err).Msg("Failed to update status LED")
	}
}

// FactoryReset clears every stored setting and restarts. There is no confirmation step.
func (c *ModeController) FactoryReset() {
	c.logger.Warn().Str("mode", c.mode.String()).Msg("Factory reset requested")
	if err := c.opts.Preferences.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear stored settings")
	}
	c.Restart("factory reset")
}

// Restart ends the session. Only the first request counts.
func (c *ModeController) Restart(reason string) {
	c.restartOnce.Do(func() {
		c.logger.Warn().Str("reason", reason).Msg("Restart requested")
		c.restartCh <- reason
	})
}

// Run boots the session, starts its tasks and blocks until a restart is
// requested or ctx is cancelled. It returns ErrRestartRequested for a restart
// and nil for a shutdown.
func (c *ModeController) Run(ctx context.Context) error {
	mode, err := c.Boot()
	if err != nil {
		return err
	}

	reg := service_registry.NewServiceRegistry(c.opts.Logger)
	if err := c.registerServices(ctx, reg, mode); err != nil {
		c.teardown(mode)
		return err
	}
	if err := reg.StartServices(); err != nil {
		c.teardown(mode)
		return err
	}
	c.logger.Info().Str("mode", mode.String()).Strs("services", reg.Names()).Msg("Session running")

	var restartReason string
	select {
	case <-ctx.Done():
	case restartReason = <-c.restartCh:
	}

	if err := reg.StopServices(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to stop session services")
	}
	c.teardown(mode)

	if restartReason != "" {
		return ErrRestartRequested
	}
	c.logger.Info().Msg("Session shut down")
	return nil
}

func (c *ModeController) registerServices(ctx context.Context, reg *service_registry.ServiceRegistry, mode models.DeviceMode) error {
	task := func(name string, interval time.Duration, step func(time.Time)) registry.Service {
		return NewPeriodicTask(name, interval, step, c.opts.Now, c.opts.Logger)
	}

	switch mode {
	case models.ModeProvisioning:
		if err := c.opts.AccessPoint.Start(ctx); err != nil {
			// The portal is still reachable on any other link.
			c.logger.Error().Err(err).Msg("Failed to start access point")
		}
		portal, err := c.opts.NewPortal(c)
		if err != nil {
			return fmt.Errorf("failed to create provisioning portal: %w", err)
		}
		reg.RegisterService("portal", portal)
	case models.ModeOperational:
		reg.RegisterService("network", task("network", c.opts.Intervals.Network, c.NetworkStep))
		reg.RegisterService("encoder", task("encoder", c.opts.Intervals.Encoder, c.EncoderStep))
	}

	reg.RegisterService("button", task("button", c.opts.Intervals.Button, c.ButtonStep))
	reg.RegisterService("status", task("status", c.opts.Intervals.Status, c.StatusStep))
	return nil
}

func (c *ModeController) teardown(mode models.DeviceMode) {
	if c.supervisor != nil {
		c.supervisor.Close()
	}
	if mode == models.ModeProvisioning {
		if err := c.opts.AccessPoint.Stop(context.Background()); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to stop access point")
		}
	}
}

// CommandFor maps an encoder gesture to its control message.
func CommandFor(ev models.EncoderEvent) (models.Command, bool) {
	switch ev {
	case models.EncoderRotateRight:
		return models.Command{Topic: constants.TopicIncrement, Payload: constants.PayloadIncrement}, true
	case models.EncoderRotateLeft:
		return models.Command{Topic: constants.TopicDecrement, Payload: constants.PayloadDecrement}, true
	case models.EncoderClick:
		return models.Command{Topic: constants.TopicToggle, Payload: constants.PayloadToggle}, true
	default:
		return models.Command{}, false
	}
}
