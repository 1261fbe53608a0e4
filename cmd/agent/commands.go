package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/benmeehan/knob-agent/internal/services"
	"github.com/benmeehan/knob-agent/internal/utils"
	"github.com/benmeehan/knob-agent/pkg/file"
	"github.com/benmeehan/knob-agent/pkg/store"
	"github.com/benmeehan/knob-agent/pkg/wifi"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent",
	Long: `Run the agent until SIGINT or SIGTERM.

The mode is chosen from the stored settings at the start of every session.
Saving settings from the setup page or a factory reset ends the session and
starts a new one in the same process.`,
	RunE: runAgent,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, prefs, err := openStore()
		if err != nil {
			return err
		}
		creds := store.LoadCredentials(prefs)
		station := wifi.NewStation(config.WiFi.Interface, config.WiFi.ConnectTimeout, wifi.ExecRunner{}, wifi.SystemInterfaces, logger)
		logger.Debug().Str("path", prefs.Path()).Msg("Store opened")

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ssid:        %s\n", creds.SSID)
		fmt.Fprintf(out, "password:    %s\n", mask(creds.Password))
		fmt.Fprintf(out, "mqtt_server: %s\n", creds.BrokerAddress)
		if creds.Complete() {
			fmt.Fprintln(out, "mode:        operational")
		} else {
			fmt.Fprintln(out, "mode:        provisioning")
		}
		if station.Connected() {
			fmt.Fprintf(out, "wifi:        %s up\n", config.WiFi.Interface)
		} else {
			fmt.Fprintf(out, "wifi:        %s down\n", config.WiFi.Interface)
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the stored settings",
	Long:  "Clear the stored settings. The next session starts in provisioning mode.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, prefs, err := openStore()
		if err != nil {
			return err
		}
		if err := prefs.Clear(); err != nil {
			return fmt.Errorf("failed to clear settings: %w", err)
		}
		logger.Warn().Str("path", prefs.Path()).Msg("Stored settings cleared")
		fmt.Fprintln(cmd.OutOrStdout(), "settings cleared")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "agent %s\n", Version)
	},
}

func loadConfig() (*utils.Config, zerolog.Logger, error) {
	config, err := utils.LoadConfig(configPath, file.NewFileService())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return config, utils.NewLogger(config.Logging.Level, os.Stdout), nil
}

func openStore() (*utils.Config, zerolog.Logger, *store.FilePreferences, error) {
	config, logger, err := loadConfig()
	if err != nil {
		return nil, logger, nil, err
	}
	prefs, err := store.Open(config.Store.Dir, config.Store.Namespace, file.NewFileService(), logger)
	if err != nil {
		return nil, logger, nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	return config, logger, prefs, nil
}

func runAgent(cmd *cobra.Command, args []string) error {
	config, logger, prefs, err := openStore()
	if err != nil {
		return err
	}

	hw, err := openHardware(config, logger)
	if err != nil {
		return err
	}
	defer hw.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for session := 1; ; session++ {
		logger.Info().Int("session", session).Str("version", Version).Msg("Starting session")

		err := newSession(config, prefs, hw, logger).Run(ctx)
		switch {
		case errors.Is(err, services.ErrRestartRequested):
			continue
		case err != nil:
			return err
		}

		logger.Info().Msg("Shutting down gracefully...")
		return nil
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return strings.Repeat("*", len(secret))
}
