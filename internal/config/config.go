// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
	"github.com/joseaugustine1/pcap-sip-vision/internal/log"
)

// rootKey wraps every setting in YAML and prefixes every environment
// variable (SIP_VISION_...).
const rootKey = "sip-vision"

// Config is the complete configuration. Maps to the `sip-vision:` root key.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Audio    AudioConfig    `mapstructure:"audio" yaml:"audio"`
	Log      log.Config     `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// ─── Analysis ───

// AnalysisConfig tunes correlation, metrics and segmentation.
type AnalysisConfig struct {
	Window            time.Duration `mapstructure:"window" yaml:"window"`                         // Interval window size
	MinWindowPackets  int           `mapstructure:"min_window_packets" yaml:"min_window_packets"` // Windows need more packets than this
	TrimEdges         bool          `mapstructure:"trim_edges" yaml:"trim_edges"`
	CorrelationWindow time.Duration `mapstructure:"correlation_window" yaml:"correlation_window"` // Max INVITE to first packet distance
	ClockRate         uint32        `mapstructure:"clock_rate" yaml:"clock_rate"`                 // Fallback RTP clock, Hz
	Workers           int           `mapstructure:"workers" yaml:"workers"`                       // Concurrent jobs in batch mode, 0 = GOMAXPROCS
}

// ─── Audio ───

// AudioConfig controls audio reconstruction.
type AudioConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Output ───

// OutputConfig controls how the CLI writes reports.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // json / yaml
	Dir    string `mapstructure:"dir" yaml:"dir"`       // Report and WAV directory
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `sip-vision: ...`.
type configRoot struct {
	SIPVision Config `mapstructure:"sip-vision"`
}

// Load loads configuration from path, or from defaults and environment
// when path is empty. Env vars use the SIP_VISION_ prefix
// (e.g., SIP_VISION_ANALYSIS_WINDOW=10s).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Key "sip-vision.log.level" maps to env "SIP_VISION_LOG_LEVEL".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return unmarshal(v)
}

// Default returns the built-in configuration, ignoring files and environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := unmarshal(v)
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}
	return cfg
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.SIPVision

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "sip-vision." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	key := func(k string) string { return rootKey + "." + k }

	// Analysis defaults
	v.SetDefault(key("analysis.window"), "5s")
	v.SetDefault(key("analysis.min_window_packets"), 5)
	v.SetDefault(key("analysis.trim_edges"), true)
	v.SetDefault(key("analysis.correlation_window"), "10s")
	v.SetDefault(key("analysis.clock_rate"), core.DefaultClockRate)
	v.SetDefault(key("analysis.workers"), 0)

	// Audio defaults
	v.SetDefault(key("audio.enabled"), true)

	// Log defaults
	v.SetDefault(key("log.level"), log.DefaultLevel)
	v.SetDefault(key("log.pattern"), log.DefaultPattern)
	v.SetDefault(key("log.time"), log.DefaultTime)
	v.SetDefault(key("log.file.enabled"), false)
	v.SetDefault(key("log.file.filename"), "sip-vision.log")
	v.SetDefault(key("log.file.max_size"), 100)
	v.SetDefault(key("log.file.max_backups"), 5)
	v.SetDefault(key("log.file.max_age"), 30)
	v.SetDefault(key("log.file.compress"), true)

	// Metrics defaults
	v.SetDefault(key("metrics.enabled"), false)
	v.SetDefault(key("metrics.listen"), ":9091")
	v.SetDefault(key("metrics.path"), "/metrics")

	// Output defaults
	v.SetDefault(key("output.format"), "json")
	v.SetDefault(key("output.dir"), ".")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Analysis ──
	a := &cfg.Analysis
	if a.Window <= 0 {
		return invalid("analysis.window must be positive, got %s", a.Window)
	}
	if a.MinWindowPackets < 0 {
		return invalid("analysis.min_window_packets must not be negative, got %d", a.MinWindowPackets)
	}
	if a.CorrelationWindow <= 0 {
		return invalid("analysis.correlation_window must be positive, got %s", a.CorrelationWindow)
	}
	if a.ClockRate == 0 {
		return invalid("analysis.clock_rate must be positive")
	}
	if a.Workers < 0 {
		return invalid("analysis.workers must not be negative, got %d", a.Workers)
	}
	if a.Workers == 0 {
		a.Workers = runtime.GOMAXPROCS(0)
	}

	// ── Log ──
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return invalid("invalid log level: %s", cfg.Log.Level)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Filename == "" {
		return invalid("log.file.filename is required when log.file.enabled=true")
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return invalid("metrics.listen is required when metrics.enabled=true")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// ── Output ──
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if cfg.Output.Format != "json" && cfg.Output.Format != "yaml" {
		return invalid("invalid output format: %s (must be json/yaml)", cfg.Output.Format)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), core.ErrConfigInvalid)
}
