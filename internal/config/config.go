package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
)

// Config holds all application configuration.
type Config struct {
	Broker struct {
		BaseURL           string  `yaml:"base_url"`
		Username          string  `yaml:"username"`
		Password          string  `yaml:"password"`
		MFASecret         string  `yaml:"mfa_secret"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"broker"`
	Store struct {
		Backend string `yaml:"backend"`
		// FirestoreKey is the base64-encoded service-account JSON.
		FirestoreKey  string `yaml:"firestore_key"`
		SQLitePath    string `yaml:"sqlite_path"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
	} `yaml:"store"`
	Chain struct {
		AlpacaKey     string `yaml:"alpaca_key"`
		AlpacaSecret  string `yaml:"alpaca_secret"`
		LookaheadDays int    `yaml:"lookahead_days"`
	} `yaml:"chain"`
	Screener struct {
		URL             string `yaml:"url"`
		MinMarketCap    string `yaml:"min_market_cap"`
		PremarketFilter string `yaml:"premarket_filter"`
	} `yaml:"screener"`
	Selector struct {
		SkipSymbols     []string      `yaml:"skip_symbols"`
		MaxDaysToExpiry int           `yaml:"max_days_to_expiry"`
		CreatedAtOffset time.Duration `yaml:"created_at_offset"`
	} `yaml:"selector"`
	Tracker struct {
		PollInterval time.Duration `yaml:"poll_interval"`
		Budget       time.Duration `yaml:"budget"`
	} `yaml:"tracker"`
	Schedule struct {
		OpenCron string `yaml:"open_cron"`
		Timezone string `yaml:"timezone"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
		Retries  int    `yaml:"retries"`
	} `yaml:"telegram"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load starts from Default, then applies the YAML file and environment
// variable overrides. .env is loaded first. A missing file is not an error.
// Keys present in the file replace defaults even when set to zero.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Broker.Username, "ROBIN_USERNAME", "BROKER_USERNAME")
	setString(&c.Broker.Password, "ROBIN_PASSWORD", "BROKER_PASSWORD")
	setString(&c.Broker.MFASecret, "ROBIN_MFA", "BROKER_MFA_SECRET")
	setString(&c.Store.FirestoreKey, "FIREBASE_SERVICE_ACCOUNT_KEY")
	setString(&c.Store.Backend, "STORE_BACKEND")
	setString(&c.Store.SQLitePath, "SQLITE_PATH")
	setString(&c.Store.RedisAddr, "REDIS_ADDR")
	setString(&c.Store.RedisPassword, "REDIS_PASSWORD")
	setString(&c.Chain.AlpacaKey, "ALPACA_API_KEY")
	setString(&c.Chain.AlpacaSecret, "ALPACA_SECRET_KEY")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Proxy, "HTTPS_PROXY")

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	if err := setDuration(&c.Tracker.PollInterval, "POLL_INTERVAL"); err != nil {
		return err
	}
	return setDuration(&c.Tracker.Budget, "POLL_BUDGET")
}

// Default returns the configuration used for every key absent from the file
// and the environment.
func Default() *Config {
	c := &Config{}
	c.Broker.RequestsPerSecond = 5
	c.Store.Backend = BackendFirestore
	c.Store.SQLitePath = "data/options_sentinel.db"
	c.Store.RedisAddr = "localhost:6379"
	c.Chain.LookaheadDays = 14
	c.Screener.MinMarketCap = "2B"
	c.Screener.PremarketFilter = "8"
	c.Selector.SkipSymbols = []string{"AS"}
	c.Selector.MaxDaysToExpiry = 6
	c.Selector.CreatedAtOffset = -7 * time.Hour
	c.Tracker.PollInterval = 10 * time.Second
	c.Tracker.Budget = 3*time.Hour + 30*time.Minute
	c.Schedule.Timezone = "America/New_York"
	c.Telegram.Retries = 3
	c.Log.Level = "info"
	return c
}

// Validate checks that all required secrets are set and values are sane.
func (c *Config) Validate() error {
	if c.Broker.Username == "" {
		return fmt.Errorf("broker.username is required")
	}
	if c.Broker.Password == "" {
		return fmt.Errorf("broker.password is required")
	}
	if c.Broker.MFASecret == "" {
		return fmt.Errorf("broker.mfa_secret is required")
	}
	switch c.Store.Backend {
	case BackendFirestore:
		if c.Store.FirestoreKey == "" {
			return fmt.Errorf("store.firestore_key is required for the firestore backend")
		}
		if _, err := base64.StdEncoding.DecodeString(c.Store.FirestoreKey); err != nil {
			return fmt.Errorf("store.firestore_key is not valid base64: %w", err)
		}
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("store.backend %q is not one of firestore, sqlite, redis, memory", c.Store.Backend)
	}
	if c.Selector.MaxDaysToExpiry < 0 {
		return fmt.Errorf("selector.max_days_to_expiry must not be negative")
	}
	if c.Tracker.PollInterval <= 0 {
		return fmt.Errorf("tracker.poll_interval must be positive")
	}
	if c.Tracker.Budget <= 0 {
		return fmt.Errorf("tracker.budget must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Location resolves Schedule.Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// setString assigns the last non-empty variable among names.
func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

func setDuration(dst *time.Duration, name string) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
