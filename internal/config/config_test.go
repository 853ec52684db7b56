package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"empty config is valid", func(c *Config) {}, false},
		{"live mode", func(c *Config) { c.Trading.Mode = "live" }, false},
		{"paper mode", func(c *Config) { c.Trading.Mode = "paper" }, false},
		{"unknown mode", func(c *Config) { c.Trading.Mode = "dry-run" }, true},
		{"negative min profit", func(c *Config) { c.Scan.MinProfitPct = -0.1 }, true},
		{"empty lot size symbol", func(c *Config) { c.Scan.LotSizes = map[string]int{" ": 10} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Scan.Symbols) == 0 {
		t.Error("scan universe should default to the built-in list")
	}
	if cfg.Trading.GatewayTimeout <= 0 {
		t.Error("gateway timeout should default to a positive value")
	}
	if cfg.Reconcile.QueryDelay <= 0 {
		t.Error("query delay should default to a positive value")
	}
	if cfg.Reconcile.PollInterval <= 0 {
		t.Error("poll interval should default to a positive value")
	}
	if cfg.Storage.DBPath == "" {
		t.Error("db path should have a default")
	}
}

func TestLoadReadsTOML(t *testing.T) {
	dir := t.TempDir()

	configTOML := `
[trading]
mode = "paper"
order_tag = "mytag"

[scan]
symbols = ["RELIANCE", "TCS"]
min_profit_pct = 0.2

[scan.lot_sizes]
RELIANCE = 250

[reconcile]
poll_interval = "20s"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(configTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.IsPaperMode() {
		t.Error("mode should be paper")
	}
	if cfg.Trading.OrderTag != "mytag" {
		t.Errorf("order tag = %q", cfg.Trading.OrderTag)
	}
	if len(cfg.Scan.Symbols) != 2 || cfg.Scan.Symbols[0] != "RELIANCE" {
		t.Errorf("symbols = %v", cfg.Scan.Symbols)
	}
	if cfg.Scan.MinProfitPct != 0.2 {
		t.Errorf("min profit = %v", cfg.Scan.MinProfitPct)
	}
	if cfg.Scan.LotSizes["RELIANCE"] != 250 {
		t.Errorf("lot sizes = %v", cfg.Scan.LotSizes)
	}
	if cfg.Reconcile.PollInterval != 20*time.Second {
		t.Errorf("poll interval = %v", cfg.Reconcile.PollInterval)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ZERODHA_API_KEY", "env-key")
	t.Setenv("TRADING_MODE", "paper")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Credentials.Zerodha.APIKey != "env-key" {
		t.Errorf("api key = %q, want env override", cfg.Credentials.Zerodha.APIKey)
	}
	if !cfg.IsPaperMode() {
		t.Error("mode should be overridden to paper")
	}
}
