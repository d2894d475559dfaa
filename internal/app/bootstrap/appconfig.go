// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, log level and other framework settings; everything specific
// to TeamHub lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI            string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase       string // Database name within MongoDB
	MongoMaxPoolSize    uint64
	RequireTransactions bool // fail multi-document writes when the server cannot run transactions

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: teamhub-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Membership notifications. Blank NATSURL logs events instead.
	NATSURL           string
	NATSSubjectPrefix string

	// Rate limits
	JoinRateLimit   int // join requests per user per window; 0 disables
	JoinRateWindow  time.Duration
	LoginRateLimit  int // login attempts per IP per window; 0 disables
	LoginRateWindow time.Duration

	// Database timeouts; zero keeps the defaults in system/timeouts
	DBTimeoutShort  time.Duration
	DBTimeoutMedium time.Duration
	DBTimeoutLong   time.Duration

	// Audit logging: all (db+log), db, log, or off
	AuditLogAuth       string
	AuditLogMembership string

	// Admin bootstrap
	AdminEmail    string // promoted or created as admin on startup
	AdminPassword string // used only when the admin account is created
}
