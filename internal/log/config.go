package log

// Config configures the global logger.
type Config struct {
	Level   string          `mapstructure:"level" yaml:"level"`
	Pattern string          `mapstructure:"pattern" yaml:"pattern"`
	Time    string          `mapstructure:"time" yaml:"time"`
	File    FileAppenderOpt `mapstructure:"file" yaml:"file"`
}

// Defaults used when a Config field is left empty.
const (
	DefaultLevel   = "info"
	DefaultPattern = "%time [%level] %field %msg\n"
	DefaultTime    = "2006-01-02 15:04:05.000"
)

func (c Config) withDefaults() Config {
	if c.Level == "" {
		c.Level = DefaultLevel
	}
	if c.Pattern == "" {
		c.Pattern = DefaultPattern
	}
	if c.Time == "" {
		c.Time = DefaultTime
	}
	return c
}
