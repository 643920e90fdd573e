package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HttpPort             int           `json:"http_port" env:"RELAY_HTTP_PORT"`
	DbConnString         string        `json:"db_conn_string" env:"RELAY_DB_CONN_STRING"`
	RedisAddr            string        `json:"redis_addr" env:"RELAY_REDIS_ADDR"`
	DriveCredentialsFile string        `json:"drive_credentials_file" env:"RELAY_DRIVE_CREDENTIALS_FILE"`
	DriveRootFolderID    string        `json:"drive_root_folder_id" env:"RELAY_DRIVE_ROOT_FOLDER_ID"`
	FolderCacheTTLStr    string        `json:"folder_cache_ttl" env:"RELAY_FOLDER_CACHE_TTL"`
	FolderCacheTTL       time.Duration `json:"-"`
	HttpTimeoutStr       string        `json:"http_timeout" env:"RELAY_HTTP_TIMEOUT"`
	HttpTimeout          time.Duration `json:"-"`
	DownloadMaxAttempts  int           `json:"download_max_attempts" env:"RELAY_DOWNLOAD_MAX_ATTEMPTS"`
	DefaultCompanyName   string        `json:"default_company_name" env:"RELAY_DEFAULT_COMPANY_NAME"`
	AmqpURL              string        `json:"amqp_url" env:"RELAY_AMQP_URL"`
	AmqpExchange         string        `json:"amqp_exchange" env:"RELAY_AMQP_EXCHANGE"`
	ServiceName          string        `json:"service_name" env:"RELAY_SERVICE_NAME"`
	ServiceVersion       string        `json:"service_version" env:"RELAY_SERVICE_VERSION"`
	TwilioAPIBase        string        `json:"twilio_api_base" env:"RELAY_TWILIO_API_BASE"`
	TelegramAPIEndpoint  string        `json:"telegram_api_endpoint" env:"RELAY_TELEGRAM_API_ENDPOINT"`
	TelegramFileEndpoint string        `json:"telegram_file_endpoint" env:"RELAY_TELEGRAM_FILE_ENDPOINT"`
	Seed                 SeedConfig    `json:"seed"`
}

// SeedConfig lists the rows loaded into an empty database at startup
type SeedConfig struct {
	Sources   []SeedSource  `json:"sources"`
	Companies []SeedCompany `json:"companies"`
	Users     []SeedUser    `json:"users"`
}

type SeedSource struct {
	Name        string `json:"name"`
	APIKey      string `json:"api_key"`
	Active      *bool  `json:"is_active"`
	WebhookURL  string `json:"webhook_url"`
	Additional1 string `json:"additional1"`
	Additional2 string `json:"additional2"`
	Additional3 string `json:"additional3"`
	Additional4 string `json:"additional4"`
	Additional5 string `json:"additional5"`
}

type SeedCompany struct {
	Name          string `json:"name"`
	PhoneNumber   string `json:"phone_number"`
	DriveFolderID string `json:"drive_folder_id"`
}

type SeedUser struct {
	PhoneNumber string `json:"phone_number"`
	Company     string `json:"company"`
}

// ReadConfigJson reads json formatted configuration from the given file,
// then applies RELAY_* environment overrides and defaults
func ReadConfigJson(configFile string) (*Config, error) {
	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}

	cfg := new(Config)

	if err = json.Unmarshal(content, cfg); err != nil {
		return nil, err
	}

	if err = env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()

	cfg.HttpTimeout, err = time.ParseDuration(cfg.HttpTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid http_timeout: %w", err)
	}

	cfg.FolderCacheTTL, err = time.ParseDuration(cfg.FolderCacheTTLStr)
	if err != nil {
		return nil, fmt.Errorf("invalid folder_cache_ttl: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HttpPort == 0 {
		c.HttpPort = 8000
	}
	if c.HttpTimeoutStr == "" {
		c.HttpTimeoutStr = "30s"
	}
	if c.FolderCacheTTLStr == "" {
		c.FolderCacheTTLStr = "0s"
	}
	if c.DownloadMaxAttempts < 1 {
		c.DownloadMaxAttempts = 1
	}
	if c.DefaultCompanyName == "" {
		c.DefaultCompanyName = "Default Company"
	}
	if c.AmqpExchange == "" {
		c.AmqpExchange = "file-relay"
	}
	if c.ServiceName == "" {
		c.ServiceName = "Drive Agent API"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "1.0.0"
	}
}
