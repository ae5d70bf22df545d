package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Paystack     PaystackConfig
	Billing      BillingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COOPVEST_APP_ENV" required:"true"`
	Port         string `envconfig:"COOPVEST_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"COOPVEST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COOPVEST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"COOPVEST_DB_DSN"`

	Host     string `envconfig:"COOPVEST_DB_HOST"`
	Port     int    `envconfig:"COOPVEST_DB_PORT" default:"5432"`
	User     string `envconfig:"COOPVEST_DB_USER"`
	Password string `envconfig:"COOPVEST_DB_PASSWORD"`
	Name     string `envconfig:"COOPVEST_DB_NAME"`
	SSLMode  string `envconfig:"COOPVEST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COOPVEST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COOPVEST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COOPVEST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COOPVEST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN builds a DSN from the discrete fields when one is not provided.
func (d *DBConfig) ensureDSN() error {
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("db dsn or host/user/name are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"COOPVEST_REDIS_URL"`
	Address      string        `envconfig:"COOPVEST_REDIS_ADDR"`
	Password     string        `envconfig:"COOPVEST_REDIS_PASSWORD"`
	DB           int           `envconfig:"COOPVEST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COOPVEST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COOPVEST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COOPVEST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COOPVEST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COOPVEST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COOPVEST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COOPVEST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COOPVEST_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PaystackConfig struct {
	SecretKey      string        `envconfig:"COOPVEST_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL        string        `envconfig:"COOPVEST_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL    string        `envconfig:"COOPVEST_PAYSTACK_CALLBACK_URL"`
	HTTPTimeout    time.Duration `envconfig:"COOPVEST_PAYSTACK_HTTP_TIMEOUT" default:"15s"`
	WebhookIdemTTL time.Duration `envconfig:"COOPVEST_PAYSTACK_WEBHOOK_IDEM_TTL" default:"48h"`
}

type BillingConfig struct {
	FreePlanCode string `envconfig:"COOPVEST_BILLING_FREE_PLAN_CODE" default:"free"`
	Currency     string `envconfig:"COOPVEST_BILLING_CURRENCY" default:"NGN"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"COOPVEST_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	BillingTopic string `envconfig:"COOPVEST_PUBSUB_BILLING_TOPIC" default:"billing-events"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"COOPVEST_CRON_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"COOPVEST_CRON_LOCK_KEY" default:"billing-sweep"`
	LockTTL  time.Duration `envconfig:"COOPVEST_CRON_LOCK_TTL" default:"55m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COOPVEST_FEATURE_AUTO_MIGRATE" default:"false"`
}
