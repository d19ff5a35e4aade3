package config

const (
	EnvPrefix = "CONTRACT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	PartnerModeAuto   = "auto"
	PartnerModeManual = "manual"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv        = "CONTRACT_APP_ENV"
	EnvPort          = "CONTRACT_APP_PORT"
	EnvPublicBaseURL = "CONTRACT_PUBLIC_BASE_URL"

	EnvDBDSN  = "CONTRACT_DB_DSN"
	EnvDBHost = "CONTRACT_DB_HOST"
	EnvDBUser = "CONTRACT_DB_USER"
	EnvDBName = "CONTRACT_DB_NAME"

	EnvRedisURL = "CONTRACT_REDIS_URL"

	EnvJWTSecret              = "CONTRACT_JWT_SECRET"
	EnvJWTIssuer              = "CONTRACT_JWT_ISSUER"
	EnvJWTExpMins             = "CONTRACT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CONTRACT_REFRESH_TOKEN_TTL_MINUTES"

	EnvUseSQLite = "CONTRACT_USE_SQLITE"

	EnvWizardPartnerMode  = "CONTRACT_WIZARD_PARTNER_MODE"
	EnvWizardDefaultCycle = "CONTRACT_WIZARD_DEFAULT_CYCLE"
	EnvWizardDraftTTL     = "CONTRACT_WIZARD_DRAFT_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
