package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the scan engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	HubSpot  HubSpotConfig  `yaml:"hubspot"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
	Unlock   UnlockConfig   `yaml:"unlock"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// HubSpotConfig configures access to the HubSpot CRM API.
type HubSpotConfig struct {
	BaseURL            string        `yaml:"baseURL"`
	Timeout            time.Duration `yaml:"timeout"`
	SampleLimit        int           `yaml:"sampleLimit"`
	PageSize           int           `yaml:"pageSize"`
	AssociationWorkers int           `yaml:"associationWorkers"`
	OAuth              OAuthConfig   `yaml:"oauth"`
}

// OAuthConfig holds the app credentials used for the install flow and
// token refresh.
type OAuthConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	RedirectURI  string `yaml:"redirectURI"`
	Scopes       string `yaml:"scopes"`
}

// DatabaseConfig configures the MySQL connection for portals, history and
// unlock tokens. An empty DSN disables persistence-backed features.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls caching of scan results per portal.
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // "memory", "redis", "none"
	Addr          string        `yaml:"addr"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	ReadTimeout   time.Duration `yaml:"readTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	ScanResultTTL time.Duration `yaml:"scanResultTTL"`
}

// UnlockConfig controls paid unlock of full exports.
type UnlockConfig struct {
	TokenTTL      time.Duration `yaml:"tokenTTL"`
	WebhookSecret string        `yaml:"webhookSecret"`
}

// Load initialises Config from a YAML file plus environment overrides.
// A .env file next to the process is honoured when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CRMSCAN_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.HubSpot.SampleLimit <= 0 {
		cfg.HubSpot.SampleLimit = 500
	}
	if cfg.HubSpot.PageSize <= 0 || cfg.HubSpot.PageSize > 100 {
		cfg.HubSpot.PageSize = 100
	}
	if cfg.HubSpot.AssociationWorkers <= 0 {
		cfg.HubSpot.AssociationWorkers = 5
	}

	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		HubSpot: HubSpotConfig{
			BaseURL:            "https://api.hubapi.com",
			Timeout:            8 * time.Second,
			SampleLimit:        500,
			PageSize:           100,
			AssociationWorkers: 5,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Backend:       "memory",
			ScanResultTTL: time.Minute,
			DialTimeout:   2 * time.Second,
			ReadTimeout:   500 * time.Millisecond,
			WriteTimeout:  500 * time.Millisecond,
		},
		Unlock: UnlockConfig{TokenTTL: 30 * 24 * time.Hour},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CRMSCAN_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CRMSCAN_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("CRMSCAN_HUBSPOT_BASE_URL"); v != "" {
		cfg.HubSpot.BaseURL = v
	}
	if v := os.Getenv("CRMSCAN_HUBSPOT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HubSpot.Timeout = d
		}
	}
	if v := os.Getenv("CRMSCAN_HUBSPOT_SAMPLE_LIMIT"); v != "" {
		cfg.HubSpot.SampleLimit = cast.ToInt(v)
	}
	if v := os.Getenv("CRMSCAN_HUBSPOT_ASSOC_WORKERS"); v != "" {
		cfg.HubSpot.AssociationWorkers = cast.ToInt(v)
	}
	if v := os.Getenv("HUBSPOT_CLIENT_ID"); v != "" {
		cfg.HubSpot.OAuth.ClientID = v
	}
	if v := os.Getenv("HUBSPOT_CLIENT_SECRET"); v != "" {
		cfg.HubSpot.OAuth.ClientSecret = v
	}
	if v := os.Getenv("HUBSPOT_REDIRECT_URI"); v != "" {
		cfg.HubSpot.OAuth.RedirectURI = v
	}
	if v := os.Getenv("HUBSPOT_SCOPES"); v != "" {
		cfg.HubSpot.OAuth.Scopes = v
	}
	if v := os.Getenv("CRMSCAN_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CRMSCAN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CRMSCAN_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("CRMSCAN_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("CRMSCAN_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("CRMSCAN_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("CRMSCAN_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("CRMSCAN_CACHE_DB"); v != "" {
		cfg.Cache.DB = cast.ToInt(v)
	}
	if v := os.Getenv("CRMSCAN_CACHE_SCAN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ScanResultTTL = d
		}
	}
	if v := os.Getenv("CRMSCAN_UNLOCK_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Unlock.TokenTTL = d
		}
	}
	if v := os.Getenv("CRMSCAN_UNLOCK_WEBHOOK_SECRET"); v != "" {
		cfg.Unlock.WebhookSecret = v
	}
}
