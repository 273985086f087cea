// Package config loads TartalaCRM configuration from environment variables.
//
// A .env file in the working directory is loaded first; variables already
// set in the environment win over it.
//
// # Configuration Structure
//
// Auth settings:
//
//	TARTALA_JWT_SECRET="change-me"  # required
//	TARTALA_TOKEN_TTL="24h"
//	TARTALA_BCRYPT_COST="10"
//
// Server settings:
//
//	TARTALA_HOST="0.0.0.0"
//	TARTALA_PORT="8000"
//	TARTALA_READ_TIMEOUT="15s"
//	TARTALA_WRITE_TIMEOUT="15s"
//	TARTALA_LOGIN_RATE_LIMIT="10"  # attempts per minute and address, 0 disables
//
// Storage settings:
//
//	TARTALA_DATABASE_URL="sqlite://tartalacrm.db"  # or postgres://...
//	TARTALA_DB_MAX_CONNS="20"
//	TARTALA_REDIS_URL="redis://localhost:6379"    # optional, shares the login limiter
//
// Observability settings:
//
//	TARTALA_LOG_LEVEL="info"  # debug, info, warn, error
//	TARTALA_METRICS_ENABLED="true"
//	TARTALA_AUDIT_DB="false"
//
// CLI settings:
//
//	TARTALA_SESSION_FILE=".tartalacrm_config"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Listening on %s\n", cfg.Addr())
package config
