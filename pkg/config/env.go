package config

const (
	EnvPrefix = "GATHERLY"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv = "GATHERLY_APP_ENV"

	EnvDBDSN  = "GATHERLY_DB_DSN"
	EnvDBHost = "GATHERLY_DB_HOST"
	EnvDBUser = "GATHERLY_DB_USER"
	EnvDBName = "GATHERLY_DB_NAME"

	EnvRedisURL = "GATHERLY_REDIS_URL"

	EnvInstanceDomain = "GATHERLY_FEDERATION_INSTANCE_DOMAIN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
