// Package config provides configuration management for the signal engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/umair24171/scalp-agent/internal/engine"
	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/logging"
	"github.com/umair24171/scalp-agent/internal/trading"
)

// EnvPrefix prefixes environment overrides, e.g. SCALP_STRATEGY_REWARD_RISK.
const EnvPrefix = "SCALP"

// Config holds all application configuration.
type Config struct {
	Strategy StrategyConfig    `mapstructure:"strategy"`
	Session  SessionConfig     `mapstructure:"session"`
	Runner   RunnerConfig      `mapstructure:"runner"`
	Bridge   BridgeConfig      `mapstructure:"bridge"`
	Store    StoreConfig       `mapstructure:"store"`
	Logging  logging.LogConfig `mapstructure:"logging"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// StrategyConfig holds signal and trade management parameters.
type StrategyConfig struct {
	MinConfidence     float64       `mapstructure:"min_confidence"`
	RewardRisk        float64       `mapstructure:"reward_risk"`
	StopATRMultiplier float64       `mapstructure:"stop_atr_multiplier"`
	MaxHold           time.Duration `mapstructure:"max_hold"`
	ExpiredR          float64       `mapstructure:"expired_r"`
}

// SessionConfig holds the UTC trading window and signal spacing.
type SessionConfig struct {
	StartHour       int           `mapstructure:"start_hour"`
	EndHour         int           `mapstructure:"end_hour"`
	MondayStartHour int           `mapstructure:"monday_start_hour"`
	FridayEndHour   int           `mapstructure:"friday_end_hour"`
	Cooldown        time.Duration `mapstructure:"cooldown"`
}

// RunnerConfig holds scheduler configuration.
type RunnerConfig struct {
	Symbols      []string      `mapstructure:"symbols"`
	Schedule     string        `mapstructure:"schedule"` // cron spec with seconds
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// BridgeConfig holds execution bridge configuration.
type BridgeConfig struct {
	Dir    string `mapstructure:"dir"`
	Digits int32  `mapstructure:"digits"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/scalp-agent"
	}
	return filepath.Join(home, ".config", "scalp-agent")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is created from the template and the defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Dir = configDir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	eng := engine.DefaultConfig()
	logs := logging.DefaultLogConfig()

	v.SetDefault("strategy.min_confidence", eng.Setup.MinConfidence)
	v.SetDefault("strategy.reward_risk", eng.Setup.RewardRisk)
	v.SetDefault("strategy.stop_atr_multiplier", eng.Setup.StopATRMultiplier)
	v.SetDefault("strategy.max_hold", eng.Lifecycle.MaxHold)
	v.SetDefault("strategy.expired_r", eng.Lifecycle.ExpiredR)

	v.SetDefault("session.start_hour", eng.Session.StartHour)
	v.SetDefault("session.end_hour", eng.Session.EndHour)
	v.SetDefault("session.monday_start_hour", eng.Session.MondayStartHour)
	v.SetDefault("session.friday_end_hour", eng.Session.FridayEndHour)
	v.SetDefault("session.cooldown", eng.Session.Cooldown)

	v.SetDefault("runner.symbols", []string{"XAUUSD"})
	v.SetDefault("runner.schedule", "*/15 * * * * *")
	v.SetDefault("runner.fetch_timeout", 10*time.Second)

	v.SetDefault("bridge.dir", filepath.Join(configDir, "bridge"))
	v.SetDefault("bridge.digits", 2)

	v.SetDefault("store.path", filepath.Join(configDir, "scalp-agent.db"))

	v.SetDefault("logging.level", logs.Level)
	v.SetDefault("logging.console", logs.Console)
	v.SetDefault("logging.file", logs.File)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "scalp-agent.log"))
	v.SetDefault("logging.max_size", logs.MaxSize)
	v.SetDefault("logging.max_backups", logs.MaxBackups)
	v.SetDefault("logging.max_age", logs.MaxAge)
}

// Engine maps the configuration onto the engine's component settings.
func (c *Config) Engine() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Setup.MinConfidence = c.Strategy.MinConfidence
	cfg.Setup.RewardRisk = c.Strategy.RewardRisk
	cfg.Setup.StopATRMultiplier = c.Strategy.StopATRMultiplier
	cfg.Lifecycle = trading.LifecycleConfig{
		MaxHold:  c.Strategy.MaxHold,
		ExpiredR: c.Strategy.ExpiredR,
	}
	cfg.Session = trading.SessionConfig{
		StartHour:       c.Session.StartHour,
		EndHour:         c.Session.EndHour,
		MondayStartHour: c.Session.MondayStartHour,
		FridayEndHour:   c.Session.FridayEndHour,
		Cooldown:        c.Session.Cooldown,
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Engine().Validate(); err != nil {
		return err
	}

	if len(c.Runner.Symbols) == 0 {
		return errors.NewValidationError("runner.symbols", c.Runner.Symbols, "at least one symbol is required")
	}
	for _, s := range c.Runner.Symbols {
		if strings.TrimSpace(s) == "" {
			return errors.NewValidationError("runner.symbols", c.Runner.Symbols, "symbols must not be blank")
		}
	}
	if _, err := ScheduleParser().Parse(c.Runner.Schedule); err != nil {
		return errors.NewValidationError("runner.schedule", c.Runner.Schedule, err.Error())
	}
	if c.Runner.FetchTimeout <= 0 {
		return errors.NewValidationError("runner.fetch_timeout", c.Runner.FetchTimeout, "must be positive")
	}

	if c.Bridge.Digits < 0 || c.Bridge.Digits > 10 {
		return errors.NewValidationError("bridge.digits", c.Bridge.Digits, "must be between 0 and 10")
	}
	if c.Bridge.Dir == "" {
		return errors.NewValidationError("bridge.dir", c.Bridge.Dir, "must not be empty")
	}
	if c.Store.Path == "" {
		return errors.NewValidationError("store.path", c.Store.Path, "must not be empty")
	}

	return nil
}

// ScheduleParser parses six-field cron specs with a leading seconds field.
func ScheduleParser() cron.Parser {
	return cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}
