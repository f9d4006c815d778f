// Package config loads the monitor configuration from YAML and the environment
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abelzeko/awlr-monitor/internal/entities"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type MonitorConfig struct {
	TickInterval time.Duration            `yaml:"tick_interval"`
	HistorySize  int                      `yaml:"history_size"`
	InitialLevel float64                  `yaml:"initial_level"`
	Seed         int64                    `yaml:"seed"` // 0 seeds from the clock
	Thresholds   entities.ThresholdConfig `yaml:"thresholds"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
}

type StationsConfig struct {
	SourceURL       string `yaml:"source_url"`
	RefreshSchedule string `yaml:"refresh_schedule"`
}

type Config struct {
	Monitor  MonitorConfig  `yaml:"monitor"`
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`
	Telegram TelegramConfig `yaml:"telegram"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Stations StationsConfig `yaml:"stations"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, then validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("Config file %s not found, continuing with defaults", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env   string
		field *string
	}{
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.Token},
		{"OPENAI_API_KEY", &c.OpenAI.APIKey},
		{"AWLR_DB_PATH", &c.Storage.DBPath},
		{"AWLR_HTTP_ADDR", &c.HTTP.Addr},
		{"AWLR_STATIONS_URL", &c.Stations.SourceURL},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.field = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Monitor.TickInterval == 0 {
		c.Monitor.TickInterval = 3 * time.Second
	}
	if c.Monitor.HistorySize == 0 {
		c.Monitor.HistorySize = 20
	}
	if c.Monitor.InitialLevel == 0 {
		c.Monitor.InitialLevel = 0.8
	}
	if c.Monitor.Thresholds == (entities.ThresholdConfig{}) {
		c.Monitor.Thresholds = entities.DefaultThresholds()
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "data/awlr.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Stations.RefreshSchedule == "" {
		c.Stations.RefreshSchedule = "0 * * * *"
	}
}

func (c *Config) validate() error {
	if c.Monitor.TickInterval < time.Second {
		return fmt.Errorf("monitor.tick_interval must be at least 1s, got %s", c.Monitor.TickInterval)
	}
	if c.Monitor.HistorySize < 1 {
		return fmt.Errorf("monitor.history_size must be positive")
	}
	if c.Monitor.InitialLevel < 0 {
		return fmt.Errorf("monitor.initial_level must not be negative")
	}
	if err := c.Monitor.Thresholds.Validate(); err != nil {
		return fmt.Errorf("monitor.thresholds: %w", err)
	}
	if _, err := cron.ParseStandard(c.Stations.RefreshSchedule); err != nil {
		return fmt.Errorf("stations.refresh_schedule: %v", err)
	}
	return nil
}
