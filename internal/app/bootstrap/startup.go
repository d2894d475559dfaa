// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/dalemusser/teamhub/internal/app/store/users"
	"github.com/dalemusser/teamhub/internal/app/system/normalize"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.DBTimeoutShort,
		Medium: appCfg.DBTimeoutMedium,
		Long:   appCfg.DBTimeoutLong,
	})
	cur := timeouts.Current()
	logger.Info("database timeouts",
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("long", cur.Long))

	return ensureAdmin(ctx, deps, appCfg.AdminEmail, appCfg.AdminPassword, logger)
}

// ensureAdmin makes sure the configured admin account exists and holds the
// admin role. An existing account keeps its password; password is only used
// when the account is created.
func ensureAdmin(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	email = normalize.Email(email)
	if email == "" {
		return nil
	}
	users := userstore.New(deps.MongoDatabase)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role == models.RoleAdmin {
			return nil
		}
		if err := users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		logger.Info("promoted existing user to admin", zap.String("email", email), zap.String("previous_role", u.Role))
		return nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("look up admin: %w", err)
	}

	var hash string
	if password != "" {
		if hash, err = userstore.HashPassword(password); err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
	} else {
		logger.Warn("admin created without a password; set admin_password to allow sign in", zap.String("email", email))
	}

	if _, err := users.Create(ctx, models.User{
		DisplayName:  "Administrator",
		Email:        email,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	}); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("created admin user", zap.String("email", email))
	return nil
}
