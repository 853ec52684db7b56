// Package config provides configuration management for the spread trading engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading     TradingConfig   `mapstructure:"trading"`
	Scan        ScanConfig      `mapstructure:"scan"`
	Reconcile   ReconcileConfig `mapstructure:"reconcile"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Credentials Credentials     `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode           string        `mapstructure:"mode"` // "live", "paper"
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
	OrderTag       string        `mapstructure:"order_tag"`
}

// ScanConfig holds opportunity scanning configuration.
type ScanConfig struct {
	Symbols []string `mapstructure:"symbols"`
	// MinProfitPct filters which rows a scan returns. It does not affect
	// the profitability flag, which is fixed at the gross 0.05% threshold.
	MinProfitPct float64 `mapstructure:"min_profit_pct"`
	// LotSizes overrides venue-reported lot sizes per symbol.
	LotSizes map[string]int `mapstructure:"lot_sizes"`
}

// ReconcileConfig holds status polling configuration.
type ReconcileConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// QueryDelay is the fixed pause between consecutive order queries,
	// a backpressure measure for gateway throughput limits.
	QueryDelay time.Duration `mapstructure:"query_delay"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// Credentials holds API credentials.
type Credentials struct {
	Zerodha ZerodhaCredentials `mapstructure:"zerodha"`
}

// ZerodhaCredentials holds Zerodha API credentials.
type ZerodhaCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	UserID    string `mapstructure:"user_id"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/spread-trader"
	}
	return filepath.Join(home, ".config", "spread-trader")
}

// DefaultScanUniverse is the NSE large-cap universe scanned when the
// config file names no symbols.
var DefaultScanUniverse = []string{
	"RELIANCE", "TCS", "HDFCBANK", "ICICIBANK", "INFY", "SBIN",
	"BHARTIARTL", "ITC", "KOTAKBANK", "LT", "AXISBANK", "HINDUNILVR",
	"BAJFINANCE", "MARUTI", "SUNPHARMA", "TITAN", "TATAMOTORS",
	"TATASTEEL", "NTPC", "POWERGRID", "ULTRACEMCO", "ASIANPAINT",
	"JSWSTEEL", "ADANIENT", "ADANIPORTS", "COALINDIA", "WIPRO",
	"HCLTECH", "TECHM", "DRREDDY", "CIPLA", "DIVISLAB", "NESTLEIND",
	"BRITANNIA", "EICHERMOT", "HEROMOTOCO", "BAJAJ-AUTO", "ONGC",
	"BPCL", "GRASIM", "HINDALCO", "VEDL", "INDUSINDBK", "SBILIFE",
	"HDFCLIFE", "TATAPOWER", "DLF", "TRENT", "ZYDUSLIFE", "LUPIN",
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("trading.mode", "live")
	v.SetDefault("trading.gateway_timeout", 5*time.Second)
	v.SetDefault("trading.order_tag", "spread-trader")
	v.SetDefault("scan.min_profit_pct", 0.0)
	v.SetDefault("reconcile.poll_interval", 15*time.Second)
	v.SetDefault("reconcile.query_delay", 500*time.Millisecond)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZERODHA_API_KEY"); v != "" {
		cfg.Credentials.Zerodha.APIKey = v
	}
	if v := os.Getenv("ZERODHA_API_SECRET"); v != "" {
		cfg.Credentials.Zerodha.APISecret = v
	}
	if v := os.Getenv("ZERODHA_USER_ID"); v != "" {
		cfg.Credentials.Zerodha.UserID = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

func applyDefaults(cfg *Config) {
	if len(cfg.Scan.Symbols) == 0 {
		cfg.Scan.Symbols = DefaultScanUniverse
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = filepath.Join(DefaultConfigDir(), "spreads.db")
	}
	if cfg.Trading.GatewayTimeout <= 0 {
		cfg.Trading.GatewayTimeout = 5 * time.Second
	}
	if cfg.Reconcile.QueryDelay <= 0 {
		cfg.Reconcile.QueryDelay = 500 * time.Millisecond
	}
	if cfg.Reconcile.PollInterval <= 0 {
		cfg.Reconcile.PollInterval = 15 * time.Second
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}
	if c.Scan.MinProfitPct < 0 {
		return fmt.Errorf("min_profit_pct must be non-negative")
	}
	for symbol, lot := range c.Scan.LotSizes {
		if strings.TrimSpace(symbol) == "" {
			return fmt.Errorf("lot_sizes contains an empty symbol")
		}
		_ = lot // negative/zero lot sizes are clamped at resolution time
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode == "paper"
}
