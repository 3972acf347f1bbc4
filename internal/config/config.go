// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Gateway     GatewayConfig `mapstructure:"gateway"`
	Trading     TradingConfig `mapstructure:"trading"`
	Risk        RiskConfig    `mapstructure:"risk"`
	Session     SessionConfig `mapstructure:"session"`
	OpenAI      OpenAIConfig  `mapstructure:"openai"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Store       StoreConfig   `mapstructure:"store"`
	Credentials Credentials   `mapstructure:"-"` // Loaded separately
}

// GatewayConfig holds OpenD gateway connection settings.
type GatewayConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AccountID string `mapstructure:"account_id"`
}

// TradingConfig holds executor-level trading settings.
type TradingConfig struct {
	DryRun             bool    `mapstructure:"dry_run"`
	EnableShortSelling bool    `mapstructure:"enable_short_selling"`
	MaxOrderValue      float64 `mapstructure:"max_order_value"`
}

// RiskConfig holds the risk manager limits. Zero or negative values disable
// the corresponding check.
type RiskConfig struct {
	MaxPositionSize          float64 `mapstructure:"max_position_size"`
	MaxPortfolioValue        float64 `mapstructure:"max_portfolio_value"`
	MaxDailyLoss             float64 `mapstructure:"max_daily_loss"`
	MaxPositionConcentration float64 `mapstructure:"max_position_concentration"`
	MaxSectorConcentration   float64 `mapstructure:"max_sector_concentration"`
	MaxTradesPerDay          int     `mapstructure:"max_trades_per_day"`
	MinCashReserve           float64 `mapstructure:"min_cash_reserve"`
	MaxLeverage              float64 `mapstructure:"max_leverage"`
	MaxDrawdown              float64 `mapstructure:"max_drawdown"`
	WarningThreshold         float64 `mapstructure:"warning_threshold"`
}

// SessionConfig holds trading session settings.
type SessionConfig struct {
	Tickers        []string `mapstructure:"tickers"`
	Schedule       string   `mapstructure:"schedule"` // cron expression, empty = run once
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// OpenAIConfig holds decision engine settings (the key lives in credentials).
type OpenAIConfig struct {
	Model string `mapstructure:"model"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// StoreConfig holds journal database settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Credentials holds secrets loaded from credentials.toml.
type Credentials struct {
	Futu   FutuCredentials   `mapstructure:"futu"`
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// FutuCredentials holds the OpenD trade unlock password.
type FutuCredentials struct {
	TradePassword string `mapstructure:"trade_password"`
}

// OpenAICredentials holds the OpenAI API key.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/ai-hedge-fund"
	}
	return filepath.Join(home, ".config", "ai-hedge-fund")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(cfg)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.host", "127.0.0.1")
	v.SetDefault("gateway.port", 11111)
	v.SetDefault("gateway.account_id", "")

	v.SetDefault("trading.dry_run", true)
	v.SetDefault("trading.enable_short_selling", false)
	v.SetDefault("trading.max_order_value", 50000.0)

	v.SetDefault("risk.max_position_size", 100000.0)
	v.SetDefault("risk.max_portfolio_value", 1000000.0)
	v.SetDefault("risk.max_daily_loss", 10000.0)
	v.SetDefault("risk.max_position_concentration", 0.2)
	v.SetDefault("risk.max_sector_concentration", 0.25)
	v.SetDefault("risk.max_trades_per_day", 100)
	v.SetDefault("risk.min_cash_reserve", 10000.0)
	v.SetDefault("risk.max_leverage", 2.0)
	v.SetDefault("risk.max_drawdown", 0.10)
	v.SetDefault("risk.warning_threshold", 0.8)

	v.SetDefault("session.tickers", []string{})
	v.SetDefault("session.schedule", "")
	v.SetDefault("session.timeout_seconds", 30)

	v.SetDefault("openai.model", "gpt-5.2")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)

	v.SetDefault("store.path", "")
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	// Gateway connection
	if v := os.Getenv("FUTU_HOST"); v != "" {
		cfg.Gateway.Host = v
	}
	if v := os.Getenv("FUTU_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("FUTU_ACCOUNT_ID"); v != "" {
		cfg.Gateway.AccountID = v
	}
	if v := os.Getenv("FUTU_TRADE_PWD"); v != "" {
		cfg.Credentials.Futu.TradePassword = v
	}

	// Execution mode: live trading must be opted into explicitly
	if v := os.Getenv("ENABLE_LIVE_TRADING"); v != "" {
		cfg.Trading.DryRun = !strings.EqualFold(v, "true")
	}
	if v := os.Getenv("ENABLE_SHORT_SELLING"); v != "" {
		cfg.Trading.EnableShortSelling = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("MAX_POSITION_SIZE"); v != "" {
		if size, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.MaxPositionSize = size
		}
	}
	if v := os.Getenv("MAX_DAILY_TRADES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Risk.MaxTradesPerDay = n
		}
	}
	if v := os.Getenv("MAX_ORDER_VALUE"); v != "" {
		if value, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trading.MaxOrderValue = value
		}
	}

	// OpenAI credentials
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}

	// Logging
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway port must be between 1 and 65535, got %d", c.Gateway.Port)
	}
	if c.Risk.MaxPositionSize <= 0 {
		return fmt.Errorf("risk max_position_size must be positive, got %.2f", c.Risk.MaxPositionSize)
	}
	if c.Trading.MaxOrderValue <= 0 {
		return fmt.Errorf("trading max_order_value must be positive, got %.2f", c.Trading.MaxOrderValue)
	}
	if c.Risk.MaxTradesPerDay < 0 {
		return fmt.Errorf("risk max_trades_per_day must be non-negative, got %d", c.Risk.MaxTradesPerDay)
	}
	if c.Risk.WarningThreshold <= 0 || c.Risk.WarningThreshold >= 1 {
		return fmt.Errorf("risk warning_threshold must be between 0 and 1, got %.2f", c.Risk.WarningThreshold)
	}
	if c.Risk.MaxPositionConcentration > 1 {
		return fmt.Errorf("risk max_position_concentration must be at most 1, got %.2f", c.Risk.MaxPositionConcentration)
	}
	if c.Risk.MaxSectorConcentration > 1 {
		return fmt.Errorf("risk max_sector_concentration must be at most 1, got %.2f", c.Risk.MaxSectorConcentration)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if !c.Trading.DryRun && c.Gateway.AccountID == "" {
		return fmt.Errorf("live trading requires gateway account_id")
	}
	return nil
}

// IsDryRun returns true if simulated execution is enabled.
func (c *Config) IsDryRun() bool {
	return c.Trading.DryRun
}

// StorePath returns the journal database path, defaulting under the config dir.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(DefaultConfigDir(), "journal.db")
}
