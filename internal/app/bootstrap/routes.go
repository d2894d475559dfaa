// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	errorsfeature "github.com/dalemusser/teamhub/internal/app/features/errors"
	functionsfeature "github.com/dalemusser/teamhub/internal/app/features/functions"
	healthfeature "github.com/dalemusser/teamhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/teamhub/internal/app/features/login"
	teamsfeature "github.com/dalemusser/teamhub/internal/app/features/teams"
	"github.com/dalemusser/teamhub/internal/app/membership"
	"github.com/dalemusser/teamhub/internal/app/store/audit"
	userstore "github.com/dalemusser/teamhub/internal/app/store/users"
	"github.com/dalemusser/teamhub/internal/app/system/auditlog"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/ratelimit"
	"github.com/dalemusser/teamhub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. TeamHub applies session middleware and
// mounts the JSON features: health, auth, teams, invites and the named
// server functions.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser fetches fresh user data on each request so coach
	// promotions and disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	auditLogger := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:       appCfg.AuditLogAuth,
		Membership: appCfg.AuditLogMembership,
	})

	var joinLimiter, loginLimiter *ratelimit.Limiter
	if appCfg.JoinRateLimit > 0 {
		joinLimiter = ratelimit.New(appCfg.JoinRateLimit, appCfg.JoinRateWindow)
	}
	if appCfg.LoginRateLimit > 0 {
		loginLimiter = ratelimit.New(appCfg.LoginRateLimit, appCfg.LoginRateWindow)
	}

	svc := membership.New(deps.MongoDatabase, membership.Options{
		Txn:         txn.New(deps.MongoDatabase, logger, appCfg.RequireTransactions),
		Audit:       auditLogger,
		Events:      deps.Events,
		JoinLimiter: joinLimiter,
		Log:         logger,
	})

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	var broker healthfeature.BrokerStatus
	if deps.NATS != nil {
		broker = deps.NATS
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, broker, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, sessionMgr, errLog, auditLogger, loginLimiter, logger)
	r.Mount("/auth", loginfeature.Routes(loginHandler))

	// Teams, join requests and invite links
	teamsHandler := teamsfeature.NewHandler(svc, errLog, logger)
	r.Mount("/teams", teamsfeature.Routes(teamsHandler, sessionMgr))
	r.Mount("/invite", teamsfeature.InviteRoutes(teamsHandler, sessionMgr))

	// Named server functions
	functionsHandler := functionsfeature.NewHandler(svc, errLog, logger)
	r.Mount("/functions", functionsfeature.Routes(functionsHandler))

	logger.Info("routes mounted", zap.Strings("functions", functionsHandler.Names()))
	return r, nil
}
