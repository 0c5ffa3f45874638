package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverPebble   = "pebble"

	defaultRetentionCron    = "0 3 * * *"
	defaultRetentionHorizon = 30 * 24 * time.Hour
	maxRetentionBatch       = 500
)

type Config struct {
	ServerPort  string `yaml:"server_port"`
	StoreDriver string `yaml:"store_driver"`

	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	PebblePath string `yaml:"pebble_path"`
	RedisURL   string `yaml:"redis_url"`

	JWTSecret string `yaml:"jwt_secret"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	MediaDir     string `yaml:"media_dir"`
	MediaBaseURL string `yaml:"media_base_url"`

	OpenCommunityID string   `yaml:"open_community_id"`
	AdminUserIDs    []string `yaml:"admin_user_ids"`

	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`

	Retention RetentionConfig `yaml:"retention"`
}

type RetentionConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Cron      string   `yaml:"cron"`
	Horizon   Duration `yaml:"horizon"`
	Channels  []string `yaml:"channels"`
	BatchSize int      `yaml:"batch_size"`
}

// Duration accepts "720h" style strings in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	td, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration value: %q", node.Value)
	}
	*d = Duration(td)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func defaults() *Config {
	return &Config{
		ServerPort:         "8080",
		StoreDriver:        DriverPostgres,
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUser:             "hive",
		DBPassword:         "hive_dev_password",
		DBName:             "hive",
		PebblePath:         "data/hive",
		JWTSecret:          "",
		LogLevel:           "info",
		LogFormat:          "text",
		MediaDir:           "data/media",
		MediaBaseURL:       "/media",
		OpenCommunityID:    "lounge",
		RateLimitPerSecond: 5,
		RateLimitBurst:     20,
		Retention: RetentionConfig{
			Cron:      defaultRetentionCron,
			Horizon:   Duration(defaultRetentionHorizon),
			BatchSize: maxRetentionBatch,
		},
	}
}

// Load reads .env (if present), then the YAML file named by HIVE_CONFIG_FILE
// (if set), then environment variables, each layer overriding the previous.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := defaults()
	if path := os.Getenv("HIVE_CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.PebblePath = getEnv("PEBBLE_PATH", cfg.PebblePath)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.MediaDir = getEnv("MEDIA_DIR", cfg.MediaDir)
	cfg.MediaBaseURL = getEnv("MEDIA_BASE_URL", cfg.MediaBaseURL)
	cfg.OpenCommunityID = getEnv("OPEN_COMMUNITY_ID", cfg.OpenCommunityID)
	cfg.AdminUserIDs = getList("ADMIN_USER_IDS", cfg.AdminUserIDs)
	cfg.Retention.Cron = getEnv("RETENTION_CRON", cfg.Retention.Cron)
	cfg.Retention.Channels = getList("RETENTION_CHANNELS", cfg.Retention.Channels)

	var err error
	if cfg.RateLimitPerSecond, err = getFloat("RATE_LIMIT_PER_SECOND", cfg.RateLimitPerSecond); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.Retention.Enabled, err = getBool("RETENTION_ENABLED", cfg.Retention.Enabled); err != nil {
		return nil, err
	}
	if cfg.Retention.BatchSize, err = getInt("RETENTION_BATCH_SIZE", cfg.Retention.BatchSize); err != nil {
		return nil, err
	}
	if raw, ok := os.LookupEnv("RETENTION_HORIZON"); ok {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("RETENTION_HORIZON: %w", err)
		}
		cfg.Retention.Horizon = Duration(d)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverPostgres, DriverPebble:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.JWTSecret == "" && c.StoreDriver != DriverMemory {
		return errors.New("JWT_SECRET must be set")
	}
	if c.OpenCommunityID == "" {
		return errors.New("open community id must not be empty")
	}
	if c.RateLimitPerSecond <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("rate limit must be positive")
	}

	ret := c.Retention
	if !gronx.New().IsValid(ret.Cron) {
		return fmt.Errorf("invalid retention cron %q", ret.Cron)
	}
	if ret.Horizon.Duration() <= 0 {
		return errors.New("retention horizon must be positive")
	}
	if ret.BatchSize < 1 || ret.BatchSize > maxRetentionBatch {
		return fmt.Errorf("retention batch size must be between 1 and %d", maxRetentionBatch)
	}
	return nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// IsAdmin reports whether userID may trigger operator endpoints.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
