package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	Federation FederationConfig
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
	Env          string `envconfig:"GATHERLY_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"GATHERLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GATHERLY_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"GATHERLY_APP_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GATHERLY_SERVICE_KIND" default:"federation-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"GATHERLY_DB_DSN"`
	Driver string `envconfig:"GATHERLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GATHERLY_DB_HOST"`
	LegacyPort     int    `envconfig:"GATHERLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GATHERLY_DB_USER"`
	LegacyPassword string `envconfig:"GATHERLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"GATHERLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"GATHERLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GATHERLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GATHERLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GATHERLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GATHERLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GATHERLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GATHERLY_REDIS_ADDR"`
	Password     string        `envconfig:"GATHERLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"GATHERLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GATHERLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GATHERLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GATHERLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GATHERLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GATHERLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// FederationConfig tunes the dispatcher/ingestor drain loops and the
// actor discovery client.
type FederationConfig struct {
	BatchSize        int           `envconfig:"GATHERLY_FEDERATION_BATCH_SIZE" default:"1000"`
	PollIntervalMS   int           `envconfig:"GATHERLY_FEDERATION_POLL_MS" default:"30000"`
	DeliveryTimeout  time.Duration `envconfig:"GATHERLY_FEDERATION_DELIVERY_TIMEOUT" default:"15s"`
	WebfingerTimeout time.Duration `envconfig:"GATHERLY_FEDERATION_WEBFINGER_TIMEOUT" default:"10s"`
	ActorCacheTTL    time.Duration `envconfig:"GATHERLY_FEDERATION_ACTOR_CACHE_TTL" default:"12h"`
	InstanceDomain   string        `envconfig:"GATHERLY_FEDERATION_INSTANCE_DOMAIN" required:"true"`
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
