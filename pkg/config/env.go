package config

const (
	EnvPrefix = "RELAYMART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "RELAYMART_APP_ENV"
	EnvPort     = "RELAYMART_APP_PORT"
	EnvLogLevel = "RELAYMART_LOG_LEVEL"

	EnvDBDSN  = "RELAYMART_DB_DSN"
	EnvDBHost = "RELAYMART_DB_HOST"
	EnvDBUser = "RELAYMART_DB_USER"
	EnvDBName = "RELAYMART_DB_NAME"

	EnvRedisURL = "RELAYMART_REDIS_URL"

	EnvJWTSecret  = "RELAYMART_JWT_SECRET"
	EnvJWTIssuer  = "RELAYMART_JWT_ISSUER"
	EnvJWTExpMins = "RELAYMART_JWT_EXPIRATION_MINUTES"

	EnvPlatformFeeRate    = "RELAYMART_PLATFORM_FEE_RATE"
	EnvPlatformGSTRate    = "RELAYMART_PLATFORM_GST_RATE"
	EnvTDSRate            = "RELAYMART_TDS_RATE"
	EnvPlatformState      = "RELAYMART_PLATFORM_STATE"
	EnvDeliveryFeePaise   = "RELAYMART_DRIVER_DELIVERY_FEE_PAISE"
	EnvMinWithdrawalPaise = "RELAYMART_MIN_WITHDRAWAL_PAISE"

	EnvGCPProjectID      = "RELAYMART_GCP_PROJECT_ID"
	EnvOrderEventsTopic  = "RELAYMART_PUBSUB_ORDER_EVENTS_TOPIC"
	EnvPayoutEventsTopic = "RELAYMART_PUBSUB_PAYOUT_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
