package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# AI Hedge Fund Trading Configuration

[gateway]
# OpenD gateway address
host = "127.0.0.1"
port = 11111
# Trading account ID (required for live trading)
account_id = ""

[trading]
# Simulated execution; set to false only for real-money trading
dry_run = true
# Allow SELL orders beyond the held long quantity
enable_short_selling = false
# Maximum single order value in USD
max_order_value = 50000.0

[risk]
# Limits enforced by the risk manager; 0 disables a check
max_position_size = 100000.0
max_portfolio_value = 1000000.0
max_daily_loss = 10000.0
max_position_concentration = 0.2
max_sector_concentration = 0.25
max_trades_per_day = 100
min_cash_reserve = 10000.0
max_leverage = 2.0
max_drawdown = 0.10
# Fraction of a limit at which warnings start
warning_threshold = 0.8

[session]
# Tickers traded in a session batch
tickers = ["AAPL", "MSFT", "NVDA"]
# Cron expression for scheduled sessions; empty runs once
schedule = ""
# Per-broker-call timeout in seconds
timeout_seconds = 30

[openai]
# Decision engine model
model = "gpt-5.2"

[logging]
level = "info"
console = true
file = true

[store]
# Journal database path; empty uses the config directory
path = ""
`

const credentialsTemplate = `# AI Hedge Fund Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[futu]
# OpenD trade unlock password
trade_password = ""

[openai]
api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return fmt.Errorf("credentials file not found, created template at %s", path)
}
