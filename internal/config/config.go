package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	devAccessSecret  = "dev-access-secret-change-me"
	devRefreshSecret = "dev-refresh-secret-change-me"

	defaultAccessTTLMinutes = 15
	defaultRefreshTTLDays   = 10
)

type Config struct {
	Port               string   `env:"APP_PORT" envDefault:"8080"`
	Env                string   `env:"APP_ENV" envDefault:"dev"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseDSN        string   `env:"DATABASE_DSN" envDefault:"host=localhost user=postgres password=postgres dbname=videohub port=5432 sslmode=disable TimeZone=UTC"`
	AccessTokenSecret  string   `env:"ACCESS_TOKEN_SECRET" envDefault:"dev-access-secret-change-me"`
	RefreshTokenSecret string   `env:"REFRESH_TOKEN_SECRET" envDefault:"dev-refresh-secret-change-me"`
	CookieSecure       bool     `env:"COOKIE_SECURE" envDefault:"true"`
	CookieDomain       string   `env:"COOKIE_DOMAIN"`
	CORSOrigins        []string `env:"CORS_ORIGINS" envSeparator:","`
	RateLimitRPS       float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
	OTLPEndpoint       string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Redis              Redis    `envPrefix:"REDIS_"`
	Media              Media    `envPrefix:"MEDIA_"`

	// TTL 单独解析，非法值回退到默认值。
	AccessTokenTTLMinutes int `env:"-"`
	RefreshTokenTTLDays   int `env:"-"`
}

// Redis 为空地址时使用进程内限速。
type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
}

// Media 描述 S3 兼容的媒体存储。
type Media struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"videohub-media"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
	PublicURL string `env:"PUBLIC_URL"`
}

type ttlVars struct {
	AccessMinutes string `env:"ACCESS_TOKEN_TTL_MINUTES"`
	RefreshDays   string `env:"REFRESH_TOKEN_TTL_DAYS"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	var ttl ttlVars
	if err := env.Parse(&ttl); err != nil {
		return Config{}, fmt.Errorf("parse token ttl: %w", err)
	}
	cfg.AccessTokenTTLMinutes = positiveOr(ttl.AccessMinutes, defaultAccessTTLMinutes)
	cfg.RefreshTokenTTLDays = positiveOr(ttl.RefreshDays, defaultRefreshTTLDays)
	return cfg, nil
}

func positiveOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// AccessTokenTTL 返回 access token 有效期。
func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL 返回 refresh token 有效期。
func (c Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

// Validate 校验启动所需的配置，非 dev 环境禁止使用默认密钥。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("APP_PORT is required")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required")
	}
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if cfg.Env != "dev" && (cfg.AccessTokenSecret == devAccessSecret || cfg.RefreshTokenSecret == devRefreshSecret) {
		return fmt.Errorf("default token secret is not allowed in %s", cfg.Env)
	}
	return nil
}
