// Package config centralises runtime configuration for the synchronization
// engine and its demo tooling.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts values like "30s" or "1h".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// GatewaySettings configures the connection to the trading gateway.
type GatewaySettings struct {
	StreamURL     string   `yaml:"streamUrl"`
	ConfigURL     string   `yaml:"configUrl"`
	Token         string   `yaml:"token"`
	AccountID     string   `yaml:"accountId"`
	AccountType   string   `yaml:"accountType"`
	DescriptorTTL Duration `yaml:"descriptorTtl"`
}

// LoggingSettings configures structured log output.
type LoggingSettings struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// TelemetrySettings configures metric export.
type TelemetrySettings struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Settings is the configuration tree loaded from defaults, an optional YAML
// file and environment overrides.
type Settings struct {
	Gateway   GatewaySettings   `yaml:"gateway"`
	Logging   LoggingSettings   `yaml:"logging"`
	Telemetry TelemetrySettings `yaml:"telemetry"`
}

// Default returns the default configuration.
func Default() Settings {
	return Settings{
		Gateway: GatewaySettings{
			StreamURL:     "wss://gateway.quantrelay.io/stream",
			ConfigURL:     "https://gateway.quantrelay.io/client-config/hashing-ignored-fields",
			AccountType:   "cloud-g2",
			DescriptorTTL: Duration(time.Hour),
		},
		Logging: LoggingSettings{
			Level: "info",
		},
		Telemetry: TelemetrySettings{
			ServiceName: "termsync",
		},
	}
}

// FromFile loads settings from a YAML file on top of the defaults.
func FromFile(path string) (Settings, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// FromEnv applies environment variable overrides to cfg.
func FromEnv(cfg Settings) Settings {
	if v := strings.TrimSpace(os.Getenv("TERMSYNC_STREAM_URL")); v != "" {
		cfg.Gateway.StreamURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TERMSYNC_CONFIG_URL")); v != "" {
		cfg.Gateway.ConfigURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TERMSYNC_TOKEN")); v != "" {
		cfg.Gateway.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("TERMSYNC_ACCOUNT_ID")); v != "" {
		cfg.Gateway.AccountID = v
	}
	if v := strings.TrimSpace(os.Getenv("TERMSYNC_ACCOUNT_TYPE")); v != "" {
		cfg.Gateway.AccountType = v
	}
	if v := strings.TrimSpace(os.Getenv("TERMSYNC_DESCRIPTOR_TTL")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.Gateway.DescriptorTTL = Duration(dur)
		}
	}
	if v := strings.TrimSpace(os.Getenv("TERMSYNC_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("TERMSYNC_LOG_FILE")); v != "" {
		cfg.Logging.File = v
	}
	if v := strings.TrimSpace(os.Getenv("TERMSYNC_OTLP_ENDPOINT")); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	return cfg
}

// Validate checks that the settings are usable for connecting an account.
func (s Settings) Validate() error {
	if s.Gateway.StreamURL == "" {
		return fmt.Errorf("gateway stream URL is required")
	}
	if s.Gateway.AccountID == "" {
		return fmt.Errorf("gateway account ID is required")
	}
	if s.Gateway.Token == "" {
		return fmt.Errorf("gateway auth token is required")
	}
	if s.Gateway.DescriptorTTL <= 0 {
		return fmt.Errorf("descriptor TTL must be positive")
	}
	switch s.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", s.Logging.Level)
	}
	return nil
}
