// Package config provides configuration management for the pricing and
// ranking kernel.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
	apperrors "momentum-options/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Pricing        PricingConfig        `mapstructure:"pricing"`
	Strikes        StrikesConfig        `mapstructure:"strikes"`
	Implied        ImpliedConfig        `mapstructure:"implied"`
	Volatility     VolatilityConfig     `mapstructure:"volatility"`
	Spread         SpreadConfig         `mapstructure:"spread"`
	Momentum       MomentumConfig       `mapstructure:"momentum"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Rules          RulesConfig          `mapstructure:"rules"`
	Store          StoreConfig          `mapstructure:"store"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// PricingConfig holds market assumptions.
type PricingConfig struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
	DTETarget    int     `mapstructure:"dte_target"`
}

// StrikesConfig tunes the delta-targeted strike bisection.
type StrikesConfig struct {
	MaxIterations int     `mapstructure:"max_iterations"`
	Tolerance     float64 `mapstructure:"tolerance"`
}

// ImpliedConfig tunes the implied-volatility solver.
type ImpliedConfig struct {
	InitialSigma  float64 `mapstructure:"initial_sigma"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

// VolatilityConfig holds historical volatility settings.
type VolatilityConfig struct {
	Window  int     `mapstructure:"window"`
	Default float64 `mapstructure:"default"`
}

// SpreadConfig holds the target leg deltas.
type SpreadConfig struct {
	DeltaLong  float64 `mapstructure:"delta_long"`
	DeltaShort float64 `mapstructure:"delta_short"`
	NakedDelta float64 `mapstructure:"naked_delta"`
}

// MomentumConfig holds ranking settings.
type MomentumConfig struct {
	NbTop    int    `mapstructure:"nb_top"`
	Strategy string `mapstructure:"strategy"` // long, short
	Workers  int    `mapstructure:"workers"`
}

// RecommendationConfig holds entry thresholds.
type RecommendationConfig struct {
	HardLookbackMax       float64 `mapstructure:"hard_lookback_max"`
	RecentMax             float64 `mapstructure:"recent_max"`
	IVRankMax             float64 `mapstructure:"iv_rank_max"`
	SpreadIVThreshold     float64 `mapstructure:"spread_iv_threshold"`
	SpreadRecentThreshold float64 `mapstructure:"spread_recent_threshold"`
	MinSoftScore          float64 `mapstructure:"min_soft_score"`
}

// RulesConfig holds the static rules attached to recommendations.
type RulesConfig struct {
	Entry EntryRulesConfig `mapstructure:"entry"`
	Exit  ExitRulesConfig  `mapstructure:"exit"`
}

// EntryRulesConfig holds entry filters.
type EntryRulesConfig struct {
	RSIMin         float64 `mapstructure:"rsi_min"`
	RSIMax         float64 `mapstructure:"rsi_max"`
	PullbackMaxPct float64 `mapstructure:"pullback_max_pct"`
	NoGapAbovePct  float64 `mapstructure:"no_gap_above_pct"`
}

// ExitRulesConfig holds exit rules.
type ExitRulesConfig struct {
	TakeProfitPct float64 `mapstructure:"take_profit_pct"`
	StopLossPct   float64 `mapstructure:"stop_loss_pct"`
	TimeStopDTE   int     `mapstructure:"time_stop_dte"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/momentum-options"
	}
	return filepath.Join(home, ".config", "momentum-options")
}

// Path returns the config file location inside configDir.
func Path(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config file is replaced by the commented template and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "momentum.db")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without touching disk.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults are plain scalars; decoding cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pricing.risk_free_rate", 0.05)
	v.SetDefault("pricing.dte_target", 45)

	v.SetDefault("strikes.max_iterations", 50)
	v.SetDefault("strikes.tolerance", 0.001)

	v.SetDefault("implied.initial_sigma", 0.30)
	v.SetDefault("implied.max_iterations", 100)

	v.SetDefault("volatility.window", 30)
	v.SetDefault("volatility.default", 0.30)

	v.SetDefault("spread.delta_long", -0.30)
	v.SetDefault("spread.delta_short", -0.10)
	v.SetDefault("spread.naked_delta", -0.30)

	v.SetDefault("momentum.nb_top", 5)
	v.SetDefault("momentum.strategy", "long")
	v.SetDefault("momentum.workers", 4)

	v.SetDefault("recommendation.hard_lookback_max", -15.0)
	v.SetDefault("recommendation.recent_max", 5.0)
	v.SetDefault("recommendation.iv_rank_max", 60.0)
	v.SetDefault("recommendation.spread_iv_threshold", 0.40)
	v.SetDefault("recommendation.spread_recent_threshold", -2.0)
	v.SetDefault("recommendation.min_soft_score", 0.66)

	v.SetDefault("rules.entry.rsi_min", 40.0)
	v.SetDefault("rules.entry.rsi_max", 55.0)
	v.SetDefault("rules.entry.pullback_max_pct", 50.0)
	v.SetDefault("rules.entry.no_gap_above_pct", 3.0)
	v.SetDefault("rules.exit.take_profit_pct", 80.0)
	v.SetDefault("rules.exit.stop_loss_pct", -50.0)
	v.SetDefault("rules.exit.time_stop_dte", 14)

	v.SetDefault("store.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size", 20)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MOMENTUM_RISK_FREE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pricing.RiskFreeRate = rate
		}
	}
	if v := os.Getenv("MOMENTUM_NB_TOP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Momentum.NbTop = n
		}
	}
	if v := os.Getenv("MOMENTUM_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Pricing.DTETarget <= 0 {
		return invalid("pricing.dte_target must be positive")
	}
	if c.Strikes.MaxIterations <= 0 || c.Strikes.Tolerance <= 0 {
		return invalid("strikes.max_iterations and strikes.tolerance must be positive")
	}
	if c.Implied.InitialSigma <= 0 || c.Implied.MaxIterations <= 0 {
		return invalid("implied.initial_sigma and implied.max_iterations must be positive")
	}
	if c.Volatility.Window < 2 {
		return invalid("volatility.window must be at least 2")
	}
	for name, d := range map[string]float64{
		"delta_long":  c.Spread.DeltaLong,
		"delta_short": c.Spread.DeltaShort,
		"naked_delta": c.Spread.NakedDelta,
	} {
		if d <= -1 || d >= 0 {
			return invalid(fmt.Sprintf("spread.%s must be in (-1, 0)", name))
		}
	}
	if c.Spread.DeltaLong >= c.Spread.DeltaShort {
		return invalid("spread.delta_long must be below spread.delta_short")
	}
	if c.Momentum.NbTop < 1 {
		return invalid("momentum.nb_top must be at least 1")
	}
	if c.Momentum.Strategy != "long" && c.Momentum.Strategy != "short" {
		return invalid(fmt.Sprintf("invalid momentum strategy: %s (must be 'long' or 'short')", c.Momentum.Strategy))
	}
	if c.Momentum.Workers < 1 {
		return invalid("momentum.workers must be at least 1")
	}
	if c.Recommendation.MinSoftScore < 0 || c.Recommendation.MinSoftScore > 1 {
		return invalid("recommendation.min_soft_score must be between 0 and 1")
	}
	if c.Rules.Entry.RSIMin > c.Rules.Entry.RSIMax {
		return invalid("rules.entry.rsi_min must not exceed rsi_max")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%s: %w", msg, apperrors.ErrConfigInvalid)
}
