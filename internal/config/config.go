// Package config loads daemon configuration from file, environment and
// defaults, in that order of increasing precedence for env overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Prashants23/Boundly/internal/detect"
)

// HostPackage is the identifier Boundly reports for itself. The host app is
// excluded from detection and can never be limited.
const HostPackage = "com.boundly.app"

// Config holds the complete daemon configuration.
type Config struct {
	DataDir             string        `mapstructure:"data_dir"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	IdleRecheckInterval time.Duration `mapstructure:"idle_recheck_interval"`
	HeartbeatInterval   time.Duration `mapstructure:"heartbeat_interval"`
	UsageMaxGap         time.Duration `mapstructure:"usage_max_gap"`
	DetectorMode        string        `mapstructure:"detector_mode"`
	BlockerCommand      string        `mapstructure:"blocker_command"`
	BlockerArgs         []string      `mapstructure:"blocker_args"`
	MetricsAddr         string        `mapstructure:"metrics_addr"`
	LogFile             string        `mapstructure:"log_file"`
}

// setDefaults registers default values on a viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("poll_interval", 2*time.Second)
	v.SetDefault("idle_recheck_interval", 30*time.Second)
	v.SetDefault("heartbeat_interval", 30*time.Second)
	v.SetDefault("usage_max_gap", 30*time.Second)
	v.SetDefault("detector_mode", "auto")
	v.SetDefault("blocker_command", "")
	v.SetDefault("blocker_args", []string{})
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_file", "")
}

// defaultDataDir places daemon state under the user's home directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".boundly"
	}
	return filepath.Join(home, ".boundly")
}

// Load reads configuration. path may be empty, in which case only defaults
// and BOUNDLY_* environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOUNDLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.IdleRecheckInterval <= 0 {
		return fmt.Errorf("idle_recheck_interval must be positive, got %s", c.IdleRecheckInterval)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %s", c.HeartbeatInterval)
	}
	if c.UsageMaxGap < c.PollInterval {
		return fmt.Errorf("usage_max_gap (%s) must be at least poll_interval (%s)", c.UsageMaxGap, c.PollInterval)
	}
	switch c.DetectorMode {
	case "auto", "poll":
	case "event":
		if !detect.HasEventBackend() {
			return fmt.Errorf("detector_mode %q requires an event backend, and none is built in; use auto or poll", c.DetectorMode)
		}
	default:
		return fmt.Errorf("detector_mode must be auto, poll or event, got %q", c.DetectorMode)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}
