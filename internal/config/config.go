package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	VaultPath         string `json:"vault_path"`
	VaultName         string `json:"vault_name"`
	EventsFolder      string `json:"events_folder"`
	EnableConsoleLog  bool   `json:"enable_console_log"`
	LogLevel          string `json:"log_level"`
	LogFile           string `json:"log_file"`
	Period            string `json:"period"`
	FlushThreshold    int    `json:"flush_threshold"`
	FlushIntervalSecs int    `json:"flush_interval_secs"`
	FlushSchedule     string `json:"flush_schedule"`
	RebuildSchedule   string `json:"rebuild_schedule"`
	RecentEvents      int    `json:"recent_events"`
	WatchDebounceMs   int    `json:"watch_debounce_ms"`
	Control           struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"control"`
	Telegram struct {
		Token  string `json:"token"`
		ChatID int64  `json:"chat_id"`
	} `json:"telegram"`
}

func defaults() *Config {
	cfg := &Config{
		EventsFolder:      "ObsidianObserver",
		EnableConsoleLog:  true,
		LogLevel:          "info",
		Period:            "daily",
		FlushThreshold:    25,
		FlushIntervalSecs: 60,
		FlushSchedule:     "*/30 * * * * *",
		RebuildSchedule:   "0 30 3 * * *",
		RecentEvents:      10,
		WatchDebounceMs:   500,
	}
	cfg.Control.Enabled = true
	cfg.Control.Listen = "127.0.0.1:7448"
	return cfg
}

// Load reads the config file at path, writing defaults first if it does not
// exist. Malformed settings fall back to their defaults rather than failing.
// Environment variables take highest precedence.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			// Malformed file: keep defaults, never fatal.
			cfg = defaults()
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if vault := os.Getenv("VAULTSCRIBE_VAULT"); vault != "" {
		cfg.VaultPath = vault
	}
	if folder := os.Getenv("VAULTSCRIBE_EVENTS_FOLDER"); folder != "" {
		cfg.EventsFolder = folder
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}

	cfg.normalize()
	return cfg, nil
}

// normalize repairs out-of-range values back to their defaults.
func (c *Config) normalize() {
	def := defaults()
	if c.EventsFolder == "" {
		c.EventsFolder = def.EventsFolder
	}
	if c.Period != "daily" && c.Period != "monthly" {
		c.Period = def.Period
	}
	if c.FlushThreshold <= 0 {
		c.FlushThreshold = def.FlushThreshold
	}
	if c.FlushIntervalSecs <= 0 {
		c.FlushIntervalSecs = def.FlushIntervalSecs
	}
	if c.RecentEvents <= 0 {
		c.RecentEvents = def.RecentEvents
	}
	if c.WatchDebounceMs <= 0 {
		c.WatchDebounceMs = def.WatchDebounceMs
	}
	if c.VaultName == "" && c.VaultPath != "" {
		c.VaultName = filepath.Base(filepath.Clean(c.VaultPath))
	}
}

// Save marshals the config with indentation and writes it atomically,
// creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts the config to a nested map via its JSON encoding.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns the config as a flat dot-keyed map, optionally masking
// secret values.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue loads the config file and returns the value at the dot-separated key.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue updates a single dot-separated key in the config file, preserving
// all other values. Values that parse as JSON (numbers, booleans) are stored
// typed; everything else is stored as a string.
func SetValue(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	flat := Flatten(m)
	var typed any
	if err := json.Unmarshal([]byte(value), &typed); err == nil {
		flat[key] = typed
	} else {
		flat[key] = value
	}

	nested := Unflatten(flat)
	out, err := json.MarshalIndent(nested, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	out = append(out, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, out, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
