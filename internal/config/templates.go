package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# scalp-agent configuration
# Every key can be overridden from the environment, e.g.
# SCALP_STRATEGY_REWARD_RISK=2.0 or SCALP_SESSION_COOLDOWN=10m

[strategy]
# Minimum setup confidence (0-100) required to emit a signal
min_confidence = 65.0
# Take-profit distance as a multiple of the risk distance
reward_risk = 1.8
# Stop distance above entry as a multiple of 1-minute ATR
stop_atr_multiplier = 1.0
# Trades still open after this long are closed as expired
max_hold = "20m"
# R booked for an expired trade
expired_r = -0.15

[session]
# UTC hours; signals only between start_hour and end_hour
start_hour = 12
end_hour = 13
# Monday opens no earlier than this hour
monday_start_hour = 10
# Friday closes no later than this hour
friday_end_hour = 13
# Minimum spacing between signals on one symbol
cooldown = "5m"

[runner]
symbols = ["XAUUSD"]
# Cron spec with a leading seconds field
schedule = "*/15 * * * * *"
fetch_timeout = "10s"

[bridge]
# Orders are written to <dir>/outbox, reports read from <dir>/inbox
# dir = "~/.config/scalp-agent/bridge"
# Price precision of the instrument
digits = 2

[store]
# path = "~/.config/scalp-agent/scalp-agent.db"

[logging]
# debug, info, warn, error
level = "info"
console = true
file = true
max_size = 100
max_backups = 7
max_age = 30
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
