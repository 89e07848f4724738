package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/axemon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel         = "info"
	defaultInterval         = 30
	defaultFetchTimeout     = 5
	defaultMaxBackoff       = 300
	defaultOfflineThreshold = 3
	defaultDatabase         = "/var/lib/axemon/metrics.db"
)

// Device identifies one monitored unit. Devices are fixed for the
// process lifetime; there is no runtime add or remove.
type Device struct {
	Name    string `mapstructure:"name"`
	IP      string `mapstructure:"ip"`
	Enabled bool   `mapstructure:"enabled"`
}

type Config struct {
	Interval         int      `mapstructure:"interval"`
	FetchTimeout     int      `mapstructure:"fetch_timeout"`
	MaxBackoff       int      `mapstructure:"max_backoff"`
	OfflineThreshold int      `mapstructure:"offline_threshold"`
	Database         string   `mapstructure:"database"`
	LogLevel         string   `mapstructure:"log_level"`
	Debug            bool     `mapstructure:"debug"`
	Verbose          bool     `mapstructure:"verbose"`
	Devices          []Device `mapstructure:"devices"`
}

// Load reads configuration from flags, the AXEMON_CONFIG file (TOML)
// and built-in defaults, in that order of precedence.
func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("axemon", pflag.ContinueOnError)
	configPath := flags.String("config", "", "Path to configuration file")
	flags.Int("interval", defaultInterval, "Seconds between polls")
	flags.String("database", defaultDatabase, "Path to the metrics database")
	flags.String("log-level", DefaultLogLevel, "Logging level (debug, info, warning, error)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.ParseErrorsWhitelist.UnknownFlags = true
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	v := viper.New()
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("fetch_timeout", defaultFetchTimeout)
	v.SetDefault("max_backoff", defaultMaxBackoff)
	v.SetDefault("offline_threshold", defaultOfflineThreshold)
	v.SetDefault("database", defaultDatabase)
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetConfigType("toml")
	if path := resolveConfigPath(*configPath); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file: "+err.Error())
		}
	} else {
		v.SetConfigName("axemon")
		v.AddConfigPath("/etc/axemon")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file: "+err.Error())
			}
		}
	}

	bindFlags(v, flags)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// resolveConfigPath prefers the --config flag, then AXEMON_CONFIG.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}

	return os.Getenv("AXEMON_CONFIG")
}

// bindFlags overrides file values with explicitly set flags.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		v.Set(key, f.Value.String())
	})
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.New(errors.ErrInvalidInterval)
	}
	if c.FetchTimeout <= 0 || c.MaxBackoff <= 0 || c.OfflineThreshold <= 0 {
		return errFactory.New(errors.ErrInvalidConfig)
	}
	if c.Database == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "database path is required")
	}
	if !isValidLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	for _, d := range c.Devices {
		if d.Name == "" || d.IP == "" {
			return errFactory.WithData(errors.ErrInvalidConfig, d)
		}
	}

	return nil
}

// EnabledDevices returns the devices that should be polled.
func (c *Config) EnabledDevices() []Device {
	devices := make([]Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		if d.Enabled {
			devices = append(devices, d)
		}
	}

	return devices
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "error":
		return true
	default:
		return false
	}
}
