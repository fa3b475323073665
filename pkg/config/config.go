package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Settlement   SettlementConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	AttemptLimit AttemptLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RELAYMART_APP_ENV" required:"true"`
	Port         string `envconfig:"RELAYMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RELAYMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RELAYMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RELAYMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RELAYMART_DB_DSN"`
	Driver string `envconfig:"RELAYMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RELAYMART_DB_HOST"`
	LegacyPort     int    `envconfig:"RELAYMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RELAYMART_DB_USER"`
	LegacyPassword string `envconfig:"RELAYMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"RELAYMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"RELAYMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RELAYMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RELAYMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RELAYMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RELAYMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL            string        `envconfig:"RELAYMART_REDIS_URL" required:"true"`
	Address        string        `envconfig:"RELAYMART_REDIS_ADDR"`
	Password       string        `envconfig:"RELAYMART_REDIS_PASSWORD"`
	DB             int           `envconfig:"RELAYMART_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"RELAYMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"RELAYMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"RELAYMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"RELAYMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"RELAYMART_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"RELAYMART_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RELAYMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RELAYMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RELAYMART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RELAYMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RELAYMART_AUTO_MIGRATE" default:"false"`
}

// SettlementConfig holds the marketplace money rules. Rates are percentages
// (10 means 10%), amounts are paise.
type SettlementConfig struct {
	PlatformFeeRate        decimal.Decimal `envconfig:"RELAYMART_PLATFORM_FEE_RATE" default:"10"`
	GSTRate                decimal.Decimal `envconfig:"RELAYMART_PLATFORM_GST_RATE" default:"18"`
	TDSRate                decimal.Decimal `envconfig:"RELAYMART_TDS_RATE" default:"1"`
	PlatformState          string          `envconfig:"RELAYMART_PLATFORM_STATE" default:"KA"`
	DeliveryFeePaise       int64           `envconfig:"RELAYMART_DRIVER_DELIVERY_FEE_PAISE" default:"4000"`
	MinimumWithdrawalPaise int64           `envconfig:"RELAYMART_MIN_WITHDRAWAL_PAISE" default:"10000"`
}

func (s SettlementConfig) validate() error {
	for name, rate := range map[string]decimal.Decimal{
		EnvPlatformFeeRate: s.PlatformFeeRate,
		EnvPlatformGSTRate: s.GSTRate,
		EnvTDSRate:         s.TDSRate,
	} {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}
	if s.DeliveryFeePaise < 0 {
		return fmt.Errorf("%s must not be negative", EnvDeliveryFeePaise)
	}
	if s.MinimumWithdrawalPaise <= 0 {
		return fmt.Errorf("%s must be positive", EnvMinWithdrawalPaise)
	}
	return nil
}

type GCPConfig struct {
	ProjectID string `envconfig:"RELAYMART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrderEventsTopic  string `envconfig:"RELAYMART_PUBSUB_ORDER_EVENTS_TOPIC" default:"rm-order-events"`
	PayoutEventsTopic string `envconfig:"RELAYMART_PUBSUB_PAYOUT_EVENTS_TOPIC" default:"rm-payout-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RELAYMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RELAYMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RELAYMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"RELAYMART_OUTBOX_RETENTION_DAYS" default:"30"`
}

// AttemptLimitConfig caps failed guesses on guarded driver actions. A limit of
// zero turns the guard off.
type AttemptLimitConfig struct {
	VerifyCodeWindow time.Duration `envconfig:"RELAYMART_VERIFY_CODE_ATTEMPT_WINDOW" default:"15m"`
	VerifyCodeLimit  int           `envconfig:"RELAYMART_VERIFY_CODE_ATTEMPT_LIMIT" default:"5"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
