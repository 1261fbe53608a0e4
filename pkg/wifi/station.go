package wifi

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/net"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// InterfaceLister returns the host network interfaces.
type InterfaceLister func() ([]net.InterfaceStat, error)

// SystemInterfaces lists interfaces through gopsutil.
func SystemInterfaces() ([]net.InterfaceStat, error) {
	return net.Interfaces()
}

// APConfig is the fixed network identity used while provisioning.
type APConfig struct {
	SSID           string `yaml:"ssid"`
	Address        string `yaml:"address"` // CIDR, e.g. 192.168.4.100/24
	Gateway        string `yaml:"gateway"`
	ConnectionName string `yaml:"connection_name"`
}

// Validate checks that the access point identity is well formed.
func (c APConfig) Validate() error {
	if c.SSID == "" {
		return errors.New("access point ssid is empty")
	}
	prefix, err := netip.ParsePrefix(c.Address)
	if err != nil {
		return fmt.Errorf("invalid access point address %q: %w", c.Address, err)
	}
	gw, err := netip.ParseAddr(c.Gateway)
	if err != nil {
		return fmt.Errorf("invalid access point gateway %q: %w", c.Gateway, err)
	}
	if !prefix.Contains(gw) {
		return fmt.Errorf("gateway %s is outside %s", gw, prefix)
	}
	if c.ConnectionName == "" {
		return errors.New("access point connection name is empty")
	}
	return nil
}

// Station controls the Wi-Fi interface through NetworkManager.
// Connect attempts run in the background so callers never wait on association.
type Station struct {
	iface          string
	connectTimeout time.Duration
	runner         CommandRunner
	interfaces     InterfaceLister
	logger         zerolog.Logger

	mu       sync.Mutex
	ssid     string
	password string

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// NewStation creates a Station for iface.
func NewStation(iface string, connectTimeout time.Duration, runner CommandRunner, interfaces InterfaceLister, logger zerolog.Logger) *Station {
	return &Station{
		iface:          iface,
		connectTimeout: connectTimeout,
		runner:         runner,
		interfaces:     interfaces,
		logger:         logger.With().Str("component", "wifi").Str("interface", iface).Logger(),
	}
}

// Begin stores the credentials and starts a first association attempt.
func (s *Station) Begin(ssid, password string) error {
	if ssid == "" {
		return errors.New("ssid is empty")
	}
	s.mu.Lock()
	s.ssid = ssid
	s.password = password
	s.mu.Unlock()

	return s.Reconnect()
}

// Reconnect starts an association attempt with the stored credentials.
// It returns immediately; an attempt already in flight is not duplicated.
func (s *Station) Reconnect() error {
	s.mu.Lock()
	ssid, password := s.ssid, s.password
	s.mu.Unlock()

	if ssid == "" {
		return errors.New("station has no credentials")
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("Association attempt already in flight")
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), s.connectTimeout)
		defer cancel()

		args := []string{
			"--wait", strconv.Itoa(int(s.connectTimeout.Seconds())),
			"device", "wifi", "connect", ssid,
			"password", password,
			"ifname", s.iface,
		}
		out, err := s.runner.Run(ctx, "nmcli", args...)
		if err != nil {
			s.logger.Warn().Err(err).Str("ssid", ssid).Str("output", strings.TrimSpace(string(out))).Msg("Association attempt failed")
			return
		}
		s.logger.Info().Str("ssid", ssid).Msg("Association attempt completed")
	}()
	return nil
}

// Connected reports whether the interface is up and holds a routable IPv4 address.
func (s *Station) Connected() bool {
	stats, err := s.interfaces()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list network interfaces")
		return false
	}
	for _, st := range stats {
		if st.Name != s.iface {
			continue
		}
		if !hasFlag(st.Flags, "up") {
			return false
		}
		for _, a := range st.Addrs {
			prefix, err := netip.ParsePrefix(a.Addr)
			if err != nil {
				continue
			}
			addr := prefix.Addr()
			if addr.Is4() && !addr.IsLinkLocalUnicast() && !addr.IsLoopback() {
				return true
			}
		}
		return false
	}
	return false
}

// StartAccessPoint brings up the provisioning access point with a fixed address.
func (s *Station) StartAccessPoint(ctx context.Context, cfg APConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// A stale profile from an earlier session would make "add" fail.
	_, _ = s.runner.Run(ctx, "nmcli", "connection", "delete", cfg.ConnectionName)

	add := []string{
		"connection", "add",
		"type", "wifi",
		"ifname", s.iface,
		"con-name", cfg.ConnectionName,
		"autoconnect", "no",
		"ssid", cfg.SSID,
		"802-11-wireless.mode", "ap",
		"ipv4.method", "shared",
		"ipv4.addresses", cfg.Address,
		"ipv4.gateway", cfg.Gateway,
	}
	if out, err := s.runner.Run(ctx, "nmcli", add...); err != nil {
		return fmt.Errorf("failed to create access point profile: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if out, err := s.runner.Run(ctx, "nmcli", "connection", "up", cfg.ConnectionName); err != nil {
		return fmt.Errorf("failed to start access point: %w: %s", err, strings.TrimSpace(string(out)))
	}

	s.logger.Info().Str("ssid", cfg.SSID).Str("address", cfg.Address).Msg("Access point started")
	return nil
}

// StopAccessPoint tears down the provisioning access point profile.
func (s *Station) StopAccessPoint(ctx context.Context, cfg APConfig) error {
	if out, err := s.runner.Run(ctx, "nmcli", "connection", "delete", cfg.ConnectionName); err != nil {
		return fmt.Errorf("failed to remove access point profile: %w: %s", err, strings.TrimSpace(string(out)))
	}
	s.logger.Info().Str("ssid", cfg.SSID).Msg("Access point stopped")
	return nil
}

// Wait blocks until background association attempts have finished.
func (s *Station) Wait() {
	s.wg.Wait()
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
