package config

// EnvPrefix scopes every environment variable consumed by the service.
const EnvPrefix = "VISIONARI"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "VISIONARI_DB_DSN"
	EnvDBHost = "VISIONARI_DB_HOST"
	EnvDBUser = "VISIONARI_DB_USER"
	EnvDBName = "VISIONARI_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
