// Agent runs the rotary-knob controller: it joins the stored Wi-Fi network,
// keeps an MQTT session to the configured broker and publishes volume
// commands from the encoder. Without stored credentials it serves a setup
// page on a local access point instead.
//
// Usage:
//
//	agent run [--config configs/config.yaml]
//	agent show
//	agent reset
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Rotary knob MQTT controller",
	Long: `Rotary knob MQTT controller.

With stored Wi-Fi credentials the agent joins the network, connects to the MQTT
broker and publishes increment/decrement/toggle commands from the encoder.
Without them it starts the SMART_TABLE access point and serves a setup page.
Holding the button for five seconds clears the stored settings.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}
