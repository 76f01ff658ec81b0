// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseaugustine1/pcap-sip-vision/internal/config"
	"github.com/joseaugustine1/pcap-sip-vision/pkg/plugin"
	_ "github.com/joseaugustine1/pcap-sip-vision/plugins"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file (YAML, root key "sip-vision") without
running any analysis. Environment overrides (SIP_VISION_*) are applied.
The registered payload parsers are listed with the effective settings.

Examples:
  sip-vision validate -c config.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		if configFile == "" {
			exitWithError("--config is required", nil)
		}
		if err := runValidate(configFile, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
			os.Exit(1)
		}
	},
}

func runValidate(path string, w io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	a := cfg.Analysis
	fmt.Fprintf(w, "VALID: window=%s min_window_packets=%d trim_edges=%t correlation_window=%s clock_rate=%d workers=%d audio=%t output=%s parsers=%s\n",
		a.Window, a.MinWindowPackets, a.TrimEdges, a.CorrelationWindow, a.ClockRate, a.Workers,
		cfg.Audio.Enabled, cfg.Output.Format, strings.Join(plugin.ListParsers(), ","))
	return nil
}
