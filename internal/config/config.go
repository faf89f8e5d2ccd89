// Package config loads gateway settings from an optional YAML file with
// environment variable overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigFile       = "HAGGLE_CONFIG_FILE"
	EnvHTTPAddr         = "HAGGLE_HTTP_ADDR"
	EnvDBDriver         = "HAGGLE_DB_DRIVER"
	EnvDBDSN            = "HAGGLE_DB_DSN"
	EnvHistoryQueueSize = "HAGGLE_HISTORY_QUEUE_SIZE"
	EnvWebhookURL       = "HAGGLE_WEBHOOK_URL"
	EnvDiscordBotToken  = "HAGGLE_DISCORD_BOT_TOKEN"
	EnvDiscordChannelID = "HAGGLE_DISCORD_CHANNEL_ID"

	defaultConfigFileName = "config.yaml"
)

const (
	DefaultHTTPAddr         = ":8080"
	DefaultDBDriver         = "sqlite"
	DefaultDBDSN            = "haggle.db"
	DefaultHistoryQueueSize = 256
)

type Config struct {
	HTTPAddr         string
	DBDriver         string
	DBDSN            string
	HistoryQueueSize int
	WebhookURL       string
	DiscordBotToken  string
	DiscordChannelID string
}

type fileConfig struct {
	HTTPAddr         string `yaml:"http_addr"`
	DBDriver         string `yaml:"db_driver"`
	DBDSN            string `yaml:"db_dsn"`
	HistoryQueueSize *int   `yaml:"history_queue_size"`
	WebhookURL       string `yaml:"webhook_url"`
	DiscordBotToken  string `yaml:"discord_bot_token"`
	DiscordChannelID string `yaml:"discord_channel_id"`
}

// Load builds the config from defaults, then the YAML file (if any), then
// environment variables.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:         DefaultHTTPAddr,
		DBDriver:         DefaultDBDriver,
		DBDSN:            DefaultDBDSN,
		HistoryQueueSize: DefaultHistoryQueueSize,
	}

	fileCfg, err := loadFileConfig()
	if err != nil {
		return Config{}, err
	}
	applyFile(&cfg, fileCfg)
	applyEnv(&cfg)
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	return cfg, nil
}

func applyFile(cfg *Config, file fileConfig) {
	if v := strings.TrimSpace(file.HTTPAddr); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(file.DBDriver); v != "" {
		cfg.DBDriver = v
	}
	if v := strings.TrimSpace(file.DBDSN); v != "" {
		cfg.DBDSN = v
	}
	if file.HistoryQueueSize != nil {
		cfg.HistoryQueueSize = *file.HistoryQueueSize
	}
	if v := strings.TrimSpace(file.WebhookURL); v != "" {
		cfg.WebhookURL = v
	}
	if v := strings.TrimSpace(file.DiscordBotToken); v != "" {
		cfg.DiscordBotToken = v
	}
	if v := strings.TrimSpace(file.DiscordChannelID); v != "" {
		cfg.DiscordChannelID = v
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvHTTPAddr)); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBDriver)); v != "" {
		cfg.DBDriver = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBDSN)); v != "" {
		cfg.DBDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryQueueSize)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HistoryQueueSize = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvWebhookURL)); v != "" {
		cfg.WebhookURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDiscordBotToken)); v != "" {
		cfg.DiscordBotToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDiscordChannelID)); v != "" {
		cfg.DiscordChannelID = v
	}
}

func loadFileConfig() (fileConfig, error) {
	path := strings.TrimSpace(os.Getenv(EnvConfigFile))
	explicit := path != ""
	if !explicit {
		path = defaultConfigFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%s must not be empty", EnvHTTPAddr)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%s must be sqlite or postgres", EnvDBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("%s must not be empty", EnvDBDSN)
	}
	if c.HistoryQueueSize <= 0 {
		return fmt.Errorf("%s must be > 0", EnvHistoryQueueSize)
	}
	hasToken := strings.TrimSpace(c.DiscordBotToken) != ""
	hasChannel := strings.TrimSpace(c.DiscordChannelID) != ""
	if hasToken != hasChannel {
		return fmt.Errorf("%s and %s must be set together", EnvDiscordBotToken, EnvDiscordChannelID)
	}
	return nil
}
