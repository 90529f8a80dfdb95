package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PlatformConfig points at the hosted backend (identity, tables, storage,
// functions). URL and AnonKey are required; starting without them is a
// configuration error, not a recoverable condition.
type PlatformConfig struct {
	URL         string
	AnonKey     string
	JWTSecret   string
	InitTimeout time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketAvatars string
	UseSSL        bool
	Region        string
	PublicBaseURL string
}

type SecurityConfig struct {
	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
	// SealKey encrypts refresh tokens at rest. 64 hex chars (32 bytes).
	SealKey string
}

type DemoConfig struct {
	Enabled       bool
	Email         string
	Password      string
	Days          int
	SettleDelay   time.Duration
	ResetInterval time.Duration
}

type AppConfig struct {
	Environment      string
	BaseURL          string
	HTTP             HTTPConfig
	Platform         PlatformConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Demo             DemoConfig
	AllowCORSOrigins []string
}

// Load reads configuration for the api gateway and validates everything the
// gateway needs.
func Load() (*AppConfig, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker reads the same configuration but validates only the sections
// the worker consumes; the worker has no cookies to seal and no demo
// session to drive.
func LoadWorker() (*AppConfig, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateWorker(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("STAGEDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate fails fast on settings the gateway cannot run without.
func (c *AppConfig) Validate() error {
	if c.Platform.URL == "" {
		return errors.New("platform.url is required")
	}
	if c.Platform.AnonKey == "" {
		return errors.New("platform.anonkey is required")
	}
	if c.Platform.JWTSecret == "" {
		return errors.New("platform.jwtsecret is required")
	}
	if c.Security.SealKey == "" {
		return errors.New("security.sealkey is required")
	}
	if c.Demo.Enabled {
		if c.Demo.Email == "" || c.Demo.Password == "" {
			return errors.New("demo.email and demo.password are required when demo mode is enabled")
		}
	}
	return nil
}

// ValidateWorker checks only what the worker binary touches: the platform
// functions endpoint and the task stream.
func (c *AppConfig) ValidateWorker() error {
	if c.Platform.URL == "" {
		return errors.New("platform.url is required")
	}
	if c.Platform.AnonKey == "" {
		return errors.New("platform.anonkey is required")
	}
	if c.Redis.Stream == "" || c.Redis.Group == "" || c.Redis.Consumer == "" {
		return errors.New("redis.stream, redis.group and redis.consumer are required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("baseurl", "http://localhost:8080")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	// Required keys get empty defaults so env-only deployments bind; Validate
	// rejects them when still empty.
	v.SetDefault("platform.url", "")
	v.SetDefault("platform.anonkey", "")
	v.SetDefault("platform.jwtsecret", "")
	v.SetDefault("platform.inittimeout", "10s")
	v.SetDefault("security.sealkey", "")

	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "demo:maintenance")
	v.SetDefault("redis.group", "stagedesk-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("storage.bucketavatars", "stagedesk-avatars")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.cookiename", "stagedesk_session")
	v.SetDefault("security.cookiesecure", false)
	v.SetDefault("security.sessionttl", "720h") // 30 days

	v.SetDefault("demo.enabled", false)
	v.SetDefault("demo.days", 14)
	v.SetDefault("demo.settledelay", "3s")
	v.SetDefault("demo.resetinterval", "24h")
}
