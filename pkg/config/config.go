package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Backup        BackupConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = "file::memory:?cache=shared"
		}
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TOOLCRIB_APP_ENV" required:"true"`
	Port         string `envconfig:"TOOLCRIB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TOOLCRIB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOOLCRIB_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"TOOLCRIB_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TOOLCRIB_DB_DSN"`
	Driver string `envconfig:"TOOLCRIB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TOOLCRIB_DB_HOST"`
	LegacyPort     int    `envconfig:"TOOLCRIB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TOOLCRIB_DB_USER"`
	LegacyPassword string `envconfig:"TOOLCRIB_DB_PASSWORD"`
	LegacyName     string `envconfig:"TOOLCRIB_DB_NAME"`
	LegacySSLMode  string `envconfig:"TOOLCRIB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOOLCRIB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOOLCRIB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOOLCRIB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOOLCRIB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TOOLCRIB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TOOLCRIB_REDIS_ADDR"`
	Password     string        `envconfig:"TOOLCRIB_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOOLCRIB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOOLCRIB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOOLCRIB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOOLCRIB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOOLCRIB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOOLCRIB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TOOLCRIB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TOOLCRIB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TOOLCRIB_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"TOOLCRIB_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TOOLCRIB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TOOLCRIB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TOOLCRIB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TOOLCRIB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TOOLCRIB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"TOOLCRIB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"TOOLCRIB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"TOOLCRIB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TOOLCRIB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TOOLCRIB_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TOOLCRIB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TOOLCRIB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TOOLCRIB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	InventoryTopic string        `envconfig:"TOOLCRIB_PUBSUB_INVENTORY_TOPIC" default:"toolcrib-inventory-events"`
	PublishTimeout time.Duration `envconfig:"TOOLCRIB_PUBSUB_PUBLISH_TIMEOUT" default:"10s"`
}

type BackupConfig struct {
	Directory     string `envconfig:"TOOLCRIB_BACKUP_DIR" default:"./backups"`
	RetainedFiles int    `envconfig:"TOOLCRIB_BACKUP_RETAINED_FILES" default:"30"`
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
