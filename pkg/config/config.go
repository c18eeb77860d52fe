package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "MIDDLEMART"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv  = "MIDDLEMART_APP_ENV"
	EnvAppPort = "MIDDLEMART_APP_PORT"
	EnvDBDSN   = "MIDDLEMART_DB_DSN"
	EnvDBHost  = "MIDDLEMART_DB_HOST"
	EnvDBUser  = "MIDDLEMART_DB_USER"
	EnvDBName  = "MIDDLEMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Items        ItemConfig
	Scraper      ScraperConfig
	BTCPay       BTCPayConfig
	Centrifugo   CentrifugoConfig
	Cron         CronConfig
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
	Env          string `envconfig:"MIDDLEMART_APP_ENV" required:"true"`
	Port         string `envconfig:"MIDDLEMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MIDDLEMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MIDDLEMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MIDDLEMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MIDDLEMART_DB_DSN"`
	Driver string `envconfig:"MIDDLEMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MIDDLEMART_DB_HOST"`
	LegacyPort     int    `envconfig:"MIDDLEMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MIDDLEMART_DB_USER"`
	LegacyPassword string `envconfig:"MIDDLEMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"MIDDLEMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"MIDDLEMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MIDDLEMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MIDDLEMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MIDDLEMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MIDDLEMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MIDDLEMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MIDDLEMART_REDIS_ADDR"`
	Password     string        `envconfig:"MIDDLEMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"MIDDLEMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MIDDLEMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIDDLEMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MIDDLEMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MIDDLEMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MIDDLEMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MIDDLEMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MIDDLEMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MIDDLEMART_JWT_EXPIRATION_MINUTES" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MIDDLEMART_AUTO_MIGRATE" default:"false"`
}

// ItemConfig carries the keyed-hash secret binding scraped item payloads.
type ItemConfig struct {
	HashSecret string `envconfig:"MIDDLEMART_ITEM_HASH_SECRET" required:"true"`
}

type ScraperConfig struct {
	BaseURL string        `envconfig:"MIDDLEMART_SCRAPER_URL" default:"http://parser:3000"`
	Timeout time.Duration `envconfig:"MIDDLEMART_SCRAPER_TIMEOUT" default:"30s"`
}

type BTCPayConfig struct {
	BaseURL string        `envconfig:"MIDDLEMART_BTCPAY_URL" required:"true"`
	StoreID string        `envconfig:"MIDDLEMART_BTCPAY_STORE_ID" required:"true"`
	Token   string        `envconfig:"MIDDLEMART_BTCPAY_TOKEN" required:"true"`
	Timeout time.Duration `envconfig:"MIDDLEMART_BTCPAY_TIMEOUT" default:"15s"`
}

type CentrifugoConfig struct {
	APIURL  string        `envconfig:"MIDDLEMART_CENTRIFUGO_API_URL" default:"http://centrifugo:8000/api"`
	APIKey  string        `envconfig:"MIDDLEMART_CENTRIFUGO_API_KEY" required:"true"`
	Timeout time.Duration `envconfig:"MIDDLEMART_CENTRIFUGO_TIMEOUT" default:"5s"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"MIDDLEMART_CRON_INTERVAL" default:"1m"`
	SettlementWindow time.Duration `envconfig:"MIDDLEMART_CRON_SETTLEMENT_WINDOW" default:"24h"`
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
