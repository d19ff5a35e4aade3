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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Wizard        WizardConfig
	Signing       SigningConfig
	Outbox        OutboxConfig
	Worker        WorkerConfig
	Stats         StatsConfig
	Cron          CronConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.Wizard.validate(); err != nil {
		return nil, err
	}
	cfg.App.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.App.PublicBaseURL), "/")
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"CONTRACT_APP_ENV" required:"true"`
	Port          string `envconfig:"CONTRACT_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"CONTRACT_LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"CONTRACT_LOG_FORMAT" default:"json"`
	LogWarnStack  bool   `envconfig:"CONTRACT_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"CONTRACT_PUBLIC_BASE_URL" required:"true"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CONTRACT_SERVICE_KIND" default:"api"`
	// OpsAddr is where the worker, publisher and cron worker serve probes and /metrics.
	OpsAddr string `envconfig:"CONTRACT_OPS_ADDR" default:":9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"CONTRACT_DB_DSN"`
	Driver string `envconfig:"CONTRACT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CONTRACT_DB_HOST"`
	LegacyPort     int    `envconfig:"CONTRACT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CONTRACT_DB_USER"`
	LegacyPassword string `envconfig:"CONTRACT_DB_PASSWORD"`
	LegacyName     string `envconfig:"CONTRACT_DB_NAME"`
	LegacySSLMode  string `envconfig:"CONTRACT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"CONTRACT_SQLITE_PATH" default:"contract-dev.db"`

	MaxOpenConns    int           `envconfig:"CONTRACT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONTRACT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONTRACT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONTRACT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CONTRACT_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CONTRACT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CONTRACT_REDIS_ADDR"`
	Password     string        `envconfig:"CONTRACT_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONTRACT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONTRACT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONTRACT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONTRACT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONTRACT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONTRACT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CONTRACT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CONTRACT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CONTRACT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CONTRACT_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CONTRACT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CONTRACT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CONTRACT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CONTRACT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CONTRACT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"CONTRACT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"CONTRACT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"CONTRACT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CONTRACT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CONTRACT_AUTO_MIGRATE" default:"false"`
}

// WizardConfig drives the operator wizard session.
//
// PartnerMode selects how the partner price tier is chosen: "auto" derives it from
// main-plan selection, "manual" leaves it to an explicit toggle.
type WizardConfig struct {
	DraftTTL       time.Duration `envconfig:"CONTRACT_WIZARD_DRAFT_TTL" default:"72h"`
	PartnerMode    string        `envconfig:"CONTRACT_WIZARD_PARTNER_MODE" default:"auto"`
	DefaultCycle   string        `envconfig:"CONTRACT_WIZARD_DEFAULT_CYCLE" default:"yearly"`
	InjectFreePlan bool          `envconfig:"CONTRACT_WIZARD_INJECT_FREE_PLAN" default:"false"`
	MaxSavedDrafts int           `envconfig:"CONTRACT_WIZARD_MAX_SAVED_DRAFTS" default:"20"`
}

func (w WizardConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(w.PartnerMode)) {
	case PartnerModeAuto, PartnerModeManual:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvWizardPartnerMode, PartnerModeAuto, PartnerModeManual)
	}
	switch strings.ToLower(strings.TrimSpace(w.DefaultCycle)) {
	case "monthly", "yearly":
	default:
		return fmt.Errorf("%s must be monthly or yearly", EnvWizardDefaultCycle)
	}
	return nil
}

type SigningConfig struct {
	SessionTTL        time.Duration `envconfig:"CONTRACT_SIGNING_SESSION_TTL" default:"24h"`
	PublicRateLimit   int           `envconfig:"CONTRACT_SIGNING_PUBLIC_RATE_LIMIT" default:"60"`
	MaxSignatureBytes int           `envconfig:"CONTRACT_SIGNING_MAX_SIGNATURE_BYTES" default:"524288"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CONTRACT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CONTRACT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CONTRACT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) PollInterval() time.Duration {
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type WorkerConfig struct {
	Concurrency int           `envconfig:"CONTRACT_WORKER_CONCURRENCY" default:"5"`
	Queue       string        `envconfig:"CONTRACT_WORKER_QUEUE" default:"dispatch"`
	MaxRetry    int           `envconfig:"CONTRACT_WORKER_MAX_RETRY" default:"5"`
	DedupeTTL   time.Duration `envconfig:"CONTRACT_WORKER_DEDUPE_TTL" default:"168h"`
}

type StatsConfig struct {
	CacheTTL      time.Duration `envconfig:"CONTRACT_STATS_CACHE_TTL" default:"5m"`
	DefaultMonths int           `envconfig:"CONTRACT_STATS_DEFAULT_MONTHS" default:"6"`
}

// CronConfig drives the housekeeping jobs run by cmd/cron-worker.
type CronConfig struct {
	Schedule            string        `envconfig:"CONTRACT_CRON_SCHEDULE" default:"0 4 * * *"`
	Timezone            string        `envconfig:"CONTRACT_CRON_TZ" default:"Asia/Seoul"`
	LeaseTTL            time.Duration `envconfig:"CONTRACT_CRON_LEASE_TTL" default:"1h"`
	OutboxRetentionDays int           `envconfig:"CONTRACT_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	DraftRetentionDays  int           `envconfig:"CONTRACT_CRON_DRAFT_RETENTION_DAYS" default:"90"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CONTRACT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
