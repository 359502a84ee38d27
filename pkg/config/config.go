package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable consumed here.
const EnvPrefix = "OAKLINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	GatewayModeREST     = "rest"
	GatewayModePostgres = "postgres"
)

type Config struct {
	App       AppConfig
	Gateway   GatewayConfig
	DB        DBConfig
	Redis     RedisConfig
	Session   SessionConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Gateway.validate(); err != nil {
		return nil, err
	}
	if cfg.Gateway.IsPostgres() {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"OAKLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"OAKLINE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"OAKLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OAKLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// GatewayConfig selects and tunes the remote store gateway implementation.
type GatewayConfig struct {
	Mode string `envconfig:"OAKLINE_GATEWAY_MODE" default:"rest"`

	BaseURL       string        `envconfig:"OAKLINE_GATEWAY_BASE_URL"`
	AnonKey       string        `envconfig:"OAKLINE_GATEWAY_ANON_KEY"`
	Timeout       time.Duration `envconfig:"OAKLINE_GATEWAY_TIMEOUT" default:"10s"`
	ReadRetries   uint64        `envconfig:"OAKLINE_GATEWAY_READ_RETRIES" default:"3"`
	RetryBackoff  time.Duration `envconfig:"OAKLINE_GATEWAY_RETRY_BACKOFF" default:"250ms"`
	JWTSecret     string        `envconfig:"OAKLINE_GATEWAY_JWT_SECRET"`
	SessionLeeway time.Duration `envconfig:"OAKLINE_GATEWAY_SESSION_LEEWAY" default:"30s"`
}

func (g GatewayConfig) IsREST() bool {
	return strings.EqualFold(g.Mode, GatewayModeREST)
}

func (g GatewayConfig) IsPostgres() bool {
	return strings.EqualFold(g.Mode, GatewayModePostgres)
}

// The auth service stays remote in both modes, so base url and secret are
// required regardless of which table surface is selected.
func (g GatewayConfig) validate() error {
	if !g.IsREST() && !g.IsPostgres() {
		return fmt.Errorf("unknown gateway mode %q", g.Mode)
	}
	if strings.TrimSpace(g.BaseURL) == "" {
		return fmt.Errorf("OAKLINE_GATEWAY_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(g.BaseURL); err != nil {
		return fmt.Errorf("invalid gateway base url: %w", err)
	}
	if strings.TrimSpace(g.JWTSecret) == "" {
		return fmt.Errorf("OAKLINE_GATEWAY_JWT_SECRET is required")
	}
	return nil
}

type DBConfig struct {
	DSN    string `envconfig:"OAKLINE_DB_DSN"`
	Driver string `envconfig:"OAKLINE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"OAKLINE_DB_HOST"`
	Port     int    `envconfig:"OAKLINE_DB_PORT" default:"5432"`
	User     string `envconfig:"OAKLINE_DB_USER"`
	Password string `envconfig:"OAKLINE_DB_PASSWORD"`
	Name     string `envconfig:"OAKLINE_DB_NAME"`
	SSLMode  string `envconfig:"OAKLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OAKLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OAKLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OAKLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OAKLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"OAKLINE_DB_AUTO_MIGRATE" default:"false"`
}

func (d DBConfig) IsSQLite() bool {
	return strings.EqualFold(d.Driver, "sqlite")
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.IsSQLite() {
		return fmt.Errorf("OAKLINE_DB_DSN is required for the sqlite driver")
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either OAKLINE_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"OAKLINE_REDIS_URL"`
	Address      string        `envconfig:"OAKLINE_REDIS_ADDR"`
	Password     string        `envconfig:"OAKLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"OAKLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OAKLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OAKLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OAKLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OAKLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OAKLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	TokenTTLMinutes int `envconfig:"OAKLINE_SESSION_TOKEN_TTL_MINUTES" default:"10080"`
}

// TokenTTL returns the browser-session token TTL configured in minutes.
func (s SessionConfig) TokenTTL() time.Duration {
	if s.TokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TokenTTLMinutes) * time.Minute
}

// RateLimitConfig throttles the sign-in surface. Zero limits disable it.
type RateLimitConfig struct {
	SignInWindow     time.Duration `envconfig:"OAKLINE_RATE_LIMIT_SIGNIN_WINDOW" default:"5m"`
	SignInIPLimit    int           `envconfig:"OAKLINE_RATE_LIMIT_SIGNIN_IP_LIMIT" default:"20"`
	SignInEmailLimit int           `envconfig:"OAKLINE_RATE_LIMIT_SIGNIN_EMAIL_LIMIT" default:"5"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"OAKLINE_CORS_ALLOWED_ORIGINS" default:"*"`
}
