package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	PrintQuality PrintQualityConfig
	Wizard       WizardConfig
	Checkout     CheckoutConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"VISIONARI_APP_ENV" required:"true"`
	Port         string `envconfig:"VISIONARI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VISIONARI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VISIONARI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VISIONARI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VISIONARI_DB_DSN"`
	Driver string `envconfig:"VISIONARI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VISIONARI_DB_HOST"`
	LegacyPort     int    `envconfig:"VISIONARI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VISIONARI_DB_USER"`
	LegacyPassword string `envconfig:"VISIONARI_DB_PASSWORD"`
	LegacyName     string `envconfig:"VISIONARI_DB_NAME"`
	LegacySSLMode  string `envconfig:"VISIONARI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VISIONARI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VISIONARI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VISIONARI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VISIONARI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VISIONARI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VISIONARI_REDIS_ADDR"`
	Password     string        `envconfig:"VISIONARI_REDIS_PASSWORD"`
	DB           int           `envconfig:"VISIONARI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VISIONARI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VISIONARI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VISIONARI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VISIONARI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VISIONARI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VISIONARI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VISIONARI_AUTO_MIGRATE" default:"false"`
}

// PricingConfig carries the business constants of the pricing engine.
// Values are policy, not logic: changing them must never require a code
// change in internal/pricing.
type PricingConfig struct {
	GlossSurchargeCents int     `envconfig:"VISIONARI_PRICING_GLOSS_SURCHARGE_CENTS" default:"500"`
	DiscountRate        float64 `envconfig:"VISIONARI_PRICING_DISCOUNT_RATE" default:"0.30"`
	FlatShippingCents   int     `envconfig:"VISIONARI_PRICING_FLAT_SHIPPING_CENTS" default:"0"`
	RateTableJSON       string  `envconfig:"VISIONARI_PRICING_RATE_TABLE_JSON"`
}

// PrintQualityConfig holds the print resolution and the coverage-ratio
// thresholds separating the quality levels.
type PrintQualityConfig struct {
	DPI                 int     `envconfig:"VISIONARI_PRINT_DPI" default:"300"`
	ExcellentThreshold  float64 `envconfig:"VISIONARI_QUALITY_EXCELLENT_RATIO" default:"1.0"`
	GoodThreshold       float64 `envconfig:"VISIONARI_QUALITY_GOOD_RATIO" default:"0.8"`
	AcceptableThreshold float64 `envconfig:"VISIONARI_QUALITY_ACCEPTABLE_RATIO" default:"0.6"`
	PoorThreshold       float64 `envconfig:"VISIONARI_QUALITY_POOR_RATIO" default:"0.4"`
}

type WizardConfig struct {
	SubmitTimeout time.Duration `envconfig:"VISIONARI_WIZARD_SUBMIT_TIMEOUT" default:"15s"`
	SessionTTL    time.Duration `envconfig:"VISIONARI_WIZARD_SESSION_TTL" default:"30m"`
}

// CheckoutConfig points at the external checkout-session backend. An
// empty BackendURL is a supported state: the gateway then answers with
// its simulation sentinel instead of a redirect URL.
type CheckoutConfig struct {
	BackendURL     string        `envconfig:"VISIONARI_CHECKOUT_BACKEND_URL"`
	RequestTimeout time.Duration `envconfig:"VISIONARI_CHECKOUT_REQUEST_TIMEOUT" default:"10s"`
	WebhookSecret  string        `envconfig:"VISIONARI_CHECKOUT_WEBHOOK_SECRET"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VISIONARI_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"VISIONARI_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VISIONARI_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"VISIONARI_PUBSUB_ORDERS_TOPIC" default:"visionari-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VISIONARI_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VISIONARI_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VISIONARI_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
