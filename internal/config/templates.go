package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Momentum Options Configuration

[pricing]
# Annual risk-free rate used by Black-Scholes
risk_free_rate = 0.05
# Days to expiry targeted by recommendations
dte_target = 45

[strikes]
# Bisection budget and delta tolerance for strike searches
max_iterations = 50
tolerance = 0.001

[implied]
# Newton-Raphson seed and budget
initial_sigma = 0.30
max_iterations = 100

[volatility]
# Daily returns used by historical volatility
window = 30
# Fallback when history is too short
default = 0.30

[spread]
# Target put deltas
delta_long = -0.30
delta_short = -0.10
naked_delta = -0.30

[momentum]
# Number of tickers receiving capital
nb_top = 5
# Ranking strategy: "long" (12-1) or "short" (63-5)
strategy = "long"
# Parallel tickers in batch runs
workers = 4

[recommendation]
# Hard condition: 63-5 lookback performance at or below this (percent)
hard_lookback_max = -15.0
# Soft conditions
recent_max = 5.0
iv_rank_max = 60.0
# Prefer the spread above this IV or when the 5-day move exceeds the threshold
spread_iv_threshold = 0.40
spread_recent_threshold = -2.0
min_soft_score = 0.66

[rules.entry]
rsi_min = 40.0
rsi_max = 55.0
pullback_max_pct = 50.0
no_gap_above_pct = 3.0

[rules.exit]
take_profit_pct = 80.0
stop_loss_pct = -50.0
time_stop_dte = 14

[store]
# SQLite database; empty means momentum.db next to this file
path = ""

[logging]
level = "info"
console = true
file = false
file_path = ""
max_size = 20
max_backups = 5
max_age = 30
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
