package config

const (
	EnvPrefix = "POSEDGE"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv        = "POSEDGE_APP_ENV"
	EnvPort          = "POSEDGE_APP_PORT"
	EnvStorePath     = "POSEDGE_STORE_PATH"
	EnvRemoteBaseURL = "POSEDGE_REMOTE_BASE_URL"
	EnvRedisURL      = "POSEDGE_REDIS_URL"
)
