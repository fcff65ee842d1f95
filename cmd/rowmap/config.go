package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds rowmap CLI configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath   string `json:"db_path"`
	LogLevel string `json:"log_level"`
	Workers  int    `json:"workers"`
}

func defaultConfig() Config {
	return Config{
		DBPath:   filepath.Join(rowmapDir(), "rowmap.db"),
		LogLevel: "info",
	}
}

func rowmapDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rowmap"
	}
	return filepath.Join(home, ".rowmap")
}

func settingsPath() string {
	return filepath.Join(rowmapDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("ROWMAP_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ROWMAP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ROWMAP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}

	return cfg
}
