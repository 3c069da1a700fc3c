package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "DIALADRINK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "DIALADRINK_DB_DSN"
	EnvDBHost = "DIALADRINK_DB_HOST"
	EnvDBUser = "DIALADRINK_DB_USER"
	EnvDBName = "DIALADRINK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Settlement   SettlementConfig
	FCM          FCMConfig
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
	Env          string `envconfig:"DIALADRINK_APP_ENV" required:"true"`
	Port         string `envconfig:"DIALADRINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DIALADRINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DIALADRINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DIALADRINK_DB_DSN"`
	Driver string `envconfig:"DIALADRINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DIALADRINK_DB_HOST"`
	LegacyPort     int    `envconfig:"DIALADRINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DIALADRINK_DB_USER"`
	LegacyPassword string `envconfig:"DIALADRINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"DIALADRINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"DIALADRINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DIALADRINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DIALADRINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DIALADRINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DIALADRINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DIALADRINK_REDIS_URL" required:"true"`
	Password     string        `envconfig:"DIALADRINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"DIALADRINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DIALADRINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DIALADRINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIALADRINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DIALADRINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DIALADRINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DIALADRINK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DIALADRINK_JWT_ISSUER" default:"dialadrink"`
	ExpirationMinutes int    `envconfig:"DIALADRINK_JWT_EXPIRATION_MINUTES" default:"720"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"DIALADRINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DIALADRINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DIALADRINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DIALADRINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DIALADRINK_ARGON_KEY_LEN" default:"32"`
}

// SettlementConfig carries the fallbacks used when no settings rows exist,
// plus the in-flight guard lock TTL.
type SettlementConfig struct {
	DriverPayPerDeliveryEnabled bool          `envconfig:"DIALADRINK_DRIVER_PAY_PER_DELIVERY_ENABLED" default:"false"`
	DriverPayPerDeliveryAmount  string        `envconfig:"DIALADRINK_DRIVER_PAY_PER_DELIVERY_AMOUNT" default:"0"`
	GuardLockTTL                time.Duration `envconfig:"DIALADRINK_SETTLEMENT_GUARD_TTL" default:"2m"`
}

// DriverPayAmount parses the configured flat per-delivery amount.
func (s SettlementConfig) DriverPayAmount() decimal.Decimal {
	amount, err := decimal.NewFromString(strings.TrimSpace(s.DriverPayPerDeliveryAmount))
	if err != nil {
		return decimal.Zero
	}
	return amount
}

type FCMConfig struct {
	CredentialsFile string `envconfig:"DIALADRINK_FCM_CREDENTIALS_FILE"`
	CredentialsJSON string `envconfig:"DIALADRINK_FCM_CREDENTIALS_JSON"`
}

// Enabled reports whether push delivery is configured at all.
func (f FCMConfig) Enabled() bool {
	return f.CredentialsFile != "" || f.CredentialsJSON != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DIALADRINK_AUTO_MIGRATE" default:"false"`
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
