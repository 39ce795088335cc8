package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const envDevelopment = "development"

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// SecretKey keys confirmation codes. JWTSecret signs access tokens and
	// falls back to SecretKey when unset.
	SecretKey string `env:"SECRET_KEY"`
	JWTSecret string `env:"JWT_SECRET"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	Mail  MailConfig
}

type AuthConfig struct {
	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL,      default=24h"`
	ConfirmationCodeTTL time.Duration `env:"CONFIRMATION_CODE_TTL, default=24h"`
	MaxCodeAttempts     int           `env:"MAX_CODE_ATTEMPTS,     default=5"`
	CodeAttemptWindow   time.Duration `env:"CODE_ATTEMPT_WINDOW,   default=15m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=yamdb"`
}

type RedisConfig struct {
	// Addr may be emptied to run without the confirmation attempt limiter.
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type MailConfig struct {
	Backend string        `env:"MAIL_BACKEND, default=log"`
	From    string        `env:"MAIL_FROM,    default=noreply@yamdb.local"`
	Timeout time.Duration `env:"MAIL_TIMEOUT, default=10s"`

	SMTP SMTPConfig
	AMQP AMQPConfig
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT, default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
}

type AMQPConfig struct {
	URL   string `env:"AMQP_URL"`
	Queue string `env:"AMQP_QUEUE, default=yamdb.mail"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through lookuper and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.SecretKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == envDevelopment
}

// Validate rejects settings the service cannot start with. A missing secret
// is tolerated in development only, where a fixed insecure one is used.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		if !c.IsDevelopment() {
			return errors.New("config: SECRET_KEY is required outside development")
		}
		c.SecretKey = "insecure-development-secret"
		if c.JWTSecret == "" {
			c.JWTSecret = c.SecretKey
		}
	}
	switch c.Mail.Backend {
	case "log":
	case "smtp":
		if c.Mail.SMTP.Host == "" {
			return errors.New("config: SMTP_HOST is required for MAIL_BACKEND=smtp")
		}
	case "amqp":
		if c.Mail.AMQP.URL == "" {
			return errors.New("config: AMQP_URL is required for MAIL_BACKEND=amqp")
		}
	default:
		return fmt.Errorf("config: unknown MAIL_BACKEND %q", c.Mail.Backend)
	}
	if c.Auth.MaxCodeAttempts <= 0 || c.Auth.CodeAttemptWindow <= 0 {
		return errors.New("config: MAX_CODE_ATTEMPTS and CODE_ATTEMPT_WINDOW must be positive")
	}
	return nil
}
