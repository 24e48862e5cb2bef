// Package daemon wires the agent together: config, storage, the ledger
// client, the reward session, the task list, the outbox, and the local API.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/adsbot-network/pointsd/internal/domain"
)

// Config is the agent configuration, loaded from ~/.pointsd/config.toml.
type Config struct {
	API      APIConfig      `toml:"api"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Telegram TelegramConfig `toml:"telegram"`
	Reward   RewardConfig   `toml:"reward"`
	Tasks    TasksConfig    `toml:"tasks"`
	Outbox   OutboxConfig   `toml:"outbox"`
	Storage  StorageConfig  `toml:"storage"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// APIConfig controls the local control API.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the listen address.
func (c APIConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// LedgerConfig points at the remote ledger backend.
type LedgerConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-request timeout.
func (c LedgerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TelegramConfig is the identity the agent logs in with and builds invite
// links from.
type TelegramConfig struct {
	TelegramID  string `toml:"telegram_id"`
	Username    string `toml:"username"`
	BotUsername string `toml:"bot_username"`
	AppName     string `toml:"app_name"`
}

// RewardConfig controls the earn flow.
type RewardConfig struct {
	CooldownSeconds int `toml:"cooldown_seconds"`
	AdSeconds       int `toml:"ad_seconds"`
	MainPoints      int `toml:"main_points"`
	SidePoints      int `toml:"side_points"`
	LowPoints       int `toml:"low_points"`
}

// Cooldown returns the gated-slot cooldown.
func (c RewardConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// AdDuration returns how long the simulated ad plays.
func (c RewardConfig) AdDuration() time.Duration {
	return time.Duration(c.AdSeconds) * time.Second
}

// Policies returns the slot policies built from the configured point values.
// Zero or negative values fall back to the production defaults.
func (c RewardConfig) Policies() map[domain.AdSlot]domain.SlotPolicy {
	policies := domain.DefaultSlotPolicies()
	if c.MainPoints > 0 {
		policies[domain.SlotMain] = domain.SlotPolicy{Points: int64(c.MainPoints), Cooldown: true}
	}
	if c.SidePoints > 0 {
		policies[domain.SlotSide] = domain.SlotPolicy{Points: int64(c.SidePoints), Cooldown: true}
	}
	if c.LowPoints > 0 {
		policies[domain.SlotLow] = domain.SlotPolicy{Points: int64(c.LowPoints), Cooldown: false}
	}
	return policies
}

// TasksConfig controls the task pending window and deadline sweeps.
type TasksConfig struct {
	PendingWindowMinutes int `toml:"pending_window_minutes"`
	SweepSeconds         int `toml:"sweep_seconds"`
}

// PendingWindow returns the submission → assumed-done window.
func (c TasksConfig) PendingWindow() time.Duration {
	return time.Duration(c.PendingWindowMinutes) * time.Minute
}

// SweepInterval returns the deadline check cadence.
func (c TasksConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepSeconds) * time.Second
}

// OutboxConfig controls outbox flushing.
type OutboxConfig struct {
	FlushSeconds int `toml:"flush_seconds"`
}

// FlushInterval returns the periodic flush cadence.
func (c OutboxConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushSeconds) * time.Second
}

// StorageConfig controls the durable local store.
type StorageConfig struct {
	Path string `toml:"path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns the default agent configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 11435,
		},
		Ledger: LedgerConfig{
			BaseURL:        "https://backend.adsbot.network/api",
			TimeoutSeconds: 10,
		},
		Telegram: TelegramConfig{
			BotUsername: "adsbot_rewards_bot",
			AppName:     "rewards",
		},
		Reward: RewardConfig{
			CooldownSeconds: 15,
			AdSeconds:       5,
			MainPoints:      4,
			SidePoints:      2,
			LowPoints:       1,
		},
		Tasks: TasksConfig{
			PendingWindowMinutes: 60,
			SweepSeconds:         15,
		},
		Outbox: OutboxConfig{
			FlushSeconds: 30,
		},
		Storage: StorageConfig{
			Path: filepath.Join(Home(), "pointsd.db"),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Home returns the agent's home directory (POINTSD_HOME or ~/.pointsd).
func Home() string {
	if env := os.Getenv("POINTSD_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pointsd")
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// Load reads the config at path, filling unset sections with defaults.
// A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
