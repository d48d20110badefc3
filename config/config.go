package config

import (
	"log/slog"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ProbeConfig struct {
	URL      string `mapstructure:"url"`
	Interval string `mapstructure:"interval"`
	Timeout  string `mapstructure:"timeout"`
	Rise     int    `mapstructure:"rise"`
	Fall     int    `mapstructure:"fall"`
}

type AddressConfig struct {
	Prefix string `mapstructure:"prefix"`
	// ProbeURL overrides the global probe URL for this address. Empty
	// means the address shares the global target.
	ProbeURL string `mapstructure:"probe_url"`
}

type ShutdownConfig struct {
	GracePeriod string `mapstructure:"grace_period"`
}

type StatusConfig struct {
	// Address is the optional listen address of the local status
	// endpoint. Empty disables it.
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

type Config struct {
	Probe     ProbeConfig     `mapstructure:"probe"`
	Addresses []AddressConfig `mapstructure:"addresses"`
	Shutdown  ShutdownConfig  `mapstructure:"shutdown"`
	Status    StatusConfig    `mapstructure:"status"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

func Load() (*Config, error) {
	viper.SetDefault("probe.interval", "1s")
	viper.SetDefault("probe.timeout", "500ms")
	viper.SetDefault("probe.rise", 3)
	viper.SetDefault("probe.fall", 3)
	viper.SetDefault("shutdown.grace_period", "2s")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("logging.environment", EnvDev)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/healthbridge")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Probe,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProbeConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProbeConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.URL,
						validation.Required,
						validation.By(validateProbeURL),
					),
					validation.Field(&pc.Interval,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
					validation.Field(&pc.Timeout,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
					validation.Field(&pc.Rise,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&pc.Fall,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.Addresses,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateAddressConfig)),
		),
		validation.Field(&c.Shutdown,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ShutdownConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ShutdownConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.GracePeriod,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
				)
			}),
		),
		validation.Field(&c.Status,
			validation.By(func(value interface{}) error {
				sc, ok := value.(StatusConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a StatusConfig")
				}
				if sc.Address == "" {
					return nil
				}
				return validateHostPort(sc.Address)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
					validation.Field(&lc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
				)
			}),
		),
	)
}

// Interval returns the parsed poll interval. Validate must have passed.
func (c *Config) Interval() time.Duration {
	return mustDuration(c.Probe.Interval)
}

// Timeout returns the parsed per-probe timeout.
func (c *Config) Timeout() time.Duration {
	return mustDuration(c.Probe.Timeout)
}

// GracePeriod returns the parsed shutdown grace period.
func (c *Config) GracePeriod() time.Duration {
	return mustDuration(c.Shutdown.GracePeriod)
}

// Target returns the probe URL for this address, falling back to the
// global one when no override is set.
func (a AddressConfig) Target(globalURL string) string {
	if a.ProbeURL != "" {
		return a.ProbeURL
	}
	return globalURL
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		// Unreachable after Validate.
		panic(err)
	}
	return d
}

func validateProbeURL(value interface{}) error {
	probeURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if probeURL == "" {
		return validation.NewError("validation_empty_url", "probe URL cannot be empty")
	}

	parsedURL, err := url.Parse(probeURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateAddressConfig(value interface{}) error {
	addr, ok := value.(AddressConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an AddressConfig")
	}

	if addr.Prefix == "" {
		return validation.NewError("validation_empty_prefix", "address prefix cannot be empty")
	}

	if _, err := netip.ParsePrefix(addr.Prefix); err != nil {
		return validation.NewError("validation_invalid_prefix", "must be an IP prefix in address/masklen form")
	}

	if addr.ProbeURL != "" {
		if err := validateProbeURL(addr.ProbeURL); err != nil {
			return err
		}
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 500ms, 2s)")
	}

	if d <= 0 {
		return validation.NewError("validation_nonpositive_duration", "duration must be positive")
	}

	return nil
}

func validateHostPort(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}
