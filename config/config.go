package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server          ServerConfig          `yaml:"server"`
	Database        DatabaseConfig        `yaml:"database"`
	Redis           RedisConfig           `yaml:"redis"`
	Provider        ProviderConfig        `yaml:"provider"`
	JWT             JWTConfig             `yaml:"jwt"`
	Admin           AdminConfig           `yaml:"admin"`
	Sync            SyncConfig            `yaml:"sync"`
	Push            PushConfig            `yaml:"push"`
	WorkerPool      WorkerPoolConfig      `yaml:"worker_pool"`
	Log             LogConfig             `yaml:"log"`
	DependencyCheck DependencyCheckConfig `yaml:"dependency_check"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds the PostgreSQL connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds the Redis connection used for the token denylist.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProviderConfig describes the upstream DESCO API.
type ProviderConfig struct {
	BaseURL        string        `yaml:"base_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"` // Ignored by YAML parser
	Timezone       string        `yaml:"timezone"`
	UserAgent      string        `yaml:"user_agent"`
}

// JWTConfig holds token issuance settings.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	TTLMinutes int           `yaml:"ttl_minutes"`
	TTL        time.Duration `yaml:"-"`
}

// AdminConfig describes the initial administrator account seeded on first
// start. Leaving username empty disables seeding.
type AdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// SyncConfig bounds the trailing windows fetched per category.
type SyncConfig struct {
	DailyDays      int `yaml:"daily_days"`
	MonthlyMonths  int `yaml:"monthly_months"`
	RechargeMonths int `yaml:"recharge_months"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig configures the zap logger and file rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// DependencyCheckConfig configures the startup readiness gate.
type DependencyCheckConfig struct {
	Enabled        bool `yaml:"enabled"`
	MaxRetries     int  `yaml:"max_retries"`
	RetryDelayMS   int  `yaml:"retry_delay_ms"`
	CheckTimeoutMS int  `yaml:"check_timeout_ms"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://prepaid.desco.org.bd"
	}
	if cfg.Provider.TimeoutSeconds <= 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
	cfg.Provider.Timeout = time.Duration(cfg.Provider.TimeoutSeconds) * time.Second
	if cfg.Provider.Timezone == "" {
		cfg.Provider.Timezone = "Asia/Dhaka"
	}
	if cfg.Provider.UserAgent == "" {
		cfg.Provider.UserAgent = "desco-report-backend/1.0"
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret must be configured")
	}
	if cfg.JWT.TTLMinutes <= 0 {
		cfg.JWT.TTLMinutes = 60
	}
	cfg.JWT.TTL = time.Duration(cfg.JWT.TTLMinutes) * time.Minute

	if cfg.Sync.DailyDays <= 0 {
		cfg.Sync.DailyDays = 30
	}
	if cfg.Sync.MonthlyMonths <= 0 {
		cfg.Sync.MonthlyMonths = 12
	}
	if cfg.Sync.RechargeMonths <= 0 {
		cfg.Sync.RechargeMonths = 6
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Filename == "" {
		cfg.Log.Filename = "logs/desco-report.log"
	}
	if cfg.Log.MaxSize <= 0 {
		cfg.Log.MaxSize = 100
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAge <= 0 {
		cfg.Log.MaxAge = 28
	}

	if cfg.DependencyCheck.MaxRetries <= 0 {
		cfg.DependencyCheck.MaxRetries = 30
	}
	if cfg.DependencyCheck.RetryDelayMS <= 0 {
		cfg.DependencyCheck.RetryDelayMS = 2000
	}
	if cfg.DependencyCheck.CheckTimeoutMS <= 0 {
		cfg.DependencyCheck.CheckTimeoutMS = 5000
	}

	return &cfg, nil
}
