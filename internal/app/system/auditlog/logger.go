// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/teamhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for sign-in, sign-up and sign-out events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Membership controls logging for team membership and role changes.
	// Same values as Auth.
	Membership string
}

// Logger records audit events to MongoDB (via audit.Store) and zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// ClientIP returns the caller address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.TeamID != nil {
		fields = append(fields, zap.String("team_id", event.TeamID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so tests and optional wiring can pass nil.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryMembership:
		setting = l.config.Membership
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginFailed logs a rejected login. userID is nil when no account matched.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: eventType,
		Details:       map[string]string{"email": email},
	})
}

// Logout logs a user logout. userIDStr comes from the session.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// SignedUp logs self-service account creation.
func (l *Logger) SignedUp(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventUserSignedUp,
		UserID:    &userID,
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"role": role},
	})
}

// PasswordChanged logs a self-service password change.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordChanged,
		UserID:    &userID,
		ActorID:   &userID,
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Membership Events ---

// Membership logs a successful team membership change. target may be nil
// for team-wide changes such as invite rotation.
func (l *Logger) Membership(ctx context.Context, eventType string, actorID, teamID primitive.ObjectID, target *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: eventType,
		TeamID:    &teamID,
		ActorID:   &actorID,
		UserID:    target,
		Success:   true,
		Details:   details,
	})
}

// JoinRequestDecided logs an approval or decline.
func (l *Logger) JoinRequestDecided(ctx context.Context, actorID, teamID, userID primitive.ObjectID, requestID, status, userRole string) {
	l.Membership(ctx, audit.EventJoinRequestDecided, actorID, teamID, &userID, map[string]string{
		"request_id": requestID,
		"status":     status,
		"user_role":  userRole,
	})
}

// RoleChanged logs a global role rewrite caused by coach promotion or demotion.
// from may be empty when the previous role was not read.
func (l *Logger) RoleChanged(ctx context.Context, actorID, teamID, userID primitive.ObjectID, from, to string) {
	details := map[string]string{"to": to}
	if from != "" {
		details["from"] = from
	}
	l.Membership(ctx, audit.EventRoleChanged, actorID, teamID, &userID, details)
}

// ParentsReconciled logs a team-level parent list repair.
func (l *Logger) ParentsReconciled(ctx context.Context, actorID, teamID primitive.ObjectID, added, removed int) {
	l.Membership(ctx, audit.EventParentsReconciled, actorID, teamID, nil, map[string]string{
		"added":   strconv.Itoa(added),
		"removed": strconv.Itoa(removed),
	})
}
