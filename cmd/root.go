// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseaugustine1/pcap-sip-vision/internal/config"
	"github.com/joseaugustine1/pcap-sip-vision/internal/log"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sip-vision",
	Short: "sip-vision - VoIP call quality analysis from pcap captures",
	Long: `sip-vision analyzes classic pcap captures of VoIP traffic.
It decodes Ethernet/IPv4/UDP frames, recognizes SIP signaling and RTP media,
correlates them into calls and reports loss, jitter, latency and MOS per call,
per direction and per 5-second interval. G.711 u-law media is reconstructed
into WAV files.

Commands:
  analyze   - analyze capture files as one job
  batch     - run several jobs from a manifest concurrently
  synth     - write a synthetic SIP + RTP capture
  validate  - validate a configuration file`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults and SIP_VISION_* environment when empty)")

	// Add subcommands
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig loads the configuration and initializes the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	log.Init(cfg.Log)
	return cfg, nil
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
