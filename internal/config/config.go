package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL            string `yaml:"url"`
		MigrationsPath string `yaml:"migrations_path"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret     string   `yaml:"jwt_secret"`
		WebhookSecret string   `yaml:"webhook_secret"`
		AdminEmails   []string `yaml:"admin_emails"`
		TokenTTLHours int      `yaml:"token_ttl_hours"`
	} `yaml:"auth"`
	RateLimit struct {
		WindowSeconds int `yaml:"window_seconds"`
		MaxRequests   int `yaml:"max_requests"`
	} `yaml:"rate_limit"`
	Classifier struct {
		Topics map[string][]string `yaml:"topics"`
	} `yaml:"classifier"`
	Moderation struct {
		NotifySeverity string `yaml:"notify_severity"`
	} `yaml:"moderation"`
	Aggregator struct {
		Schedule      string `yaml:"schedule"`
		WindowMinutes int    `yaml:"window_minutes"`
	} `yaml:"aggregator"`
	Alerting struct {
		Enabled          bool   `yaml:"enabled"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		ChatID           int64  `yaml:"chat_id"`
	} `yaml:"alerting"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the specified YAML file.
// Secrets can be overridden through environment variables so the config
// file itself never has to carry them.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.Database.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		config.Auth.WebhookSecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		config.Alerting.TelegramBotToken = v
	}

	config.applyDefaults()

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "file://migrations"
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = 5
	}
	if c.Moderation.NotifySeverity == "" {
		c.Moderation.NotifySeverity = "high"
	}
	if c.Aggregator.Schedule == "" {
		c.Aggregator.Schedule = "@every 15m"
	}
	if c.Aggregator.WindowMinutes <= 0 {
		c.Aggregator.WindowMinutes = 60
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
}
