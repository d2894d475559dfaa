// internal/app/features/login/handler.go
package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	errorsfeature "github.com/dalemusser/teamhub/internal/app/features/errors"
	"github.com/dalemusser/teamhub/internal/app/store/audit"
	userstore "github.com/dalemusser/teamhub/internal/app/store/users"
	"github.com/dalemusser/teamhub/internal/app/system/auditlog"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/limits"
	"github.com/dalemusser/teamhub/internal/app/system/normalize"
	"github.com/dalemusser/teamhub/internal/app/system/ratelimit"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MinPasswordLength is the shortest accepted password, in runes.
const MinPasswordLength = 8

// Handler serves the /auth endpoints.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	ErrLog     *errorsfeature.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	// Limiter bounds login attempts per client IP. Nil disables it.
	Limiter *ratelimit.Limiter
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	audit *auditlog.Logger,
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   audit,
		Limiter:    limiter,
		Log:        logger,
	}
}

type userView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func viewOf(u *models.User) userView {
	return userView{ID: u.ID.Hex(), Name: u.DisplayName, Email: u.Email, Role: u.Role}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Sign up                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// signupRole reports roles open to self sign-up. Admins and league managers
// are provisioned out of band.
func signupRole(r string) bool {
	return r == models.RolePlayer || r == models.RoleParent || r == models.RoleCoach
}

// HandleSignup handles POST /auth/signup and signs the new user in.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxAuthBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorsfeature.Fail(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	req.Role = normalize.Role(req.Role)
	if req.Role == "" {
		req.Role = models.RolePlayer
	}

	switch {
	case normalize.Name(req.Name) == "":
		errorsfeature.Fail(w, http.StatusBadRequest, "name is required")
		return
	case normalize.Email(req.Email) == "":
		errorsfeature.Fail(w, http.StatusBadRequest, "email is required")
		return
	case utf8.RuneCountInString(req.Password) < MinPasswordLength:
		errorsfeature.Fail(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	case !signupRole(req.Role):
		errorsfeature.Fail(w, http.StatusBadRequest, "role must be player, parent or coach")
		return
	}

	hash, err := userstore.HashPassword(req.Password)
	if err != nil {
		h.ErrLog.Write(w, r, "signup", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "signup")
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		DisplayName:  req.Name,
		Email:        req.Email,
		Role:         req.Role,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			errorsfeature.Fail(w, http.StatusConflict, "an account with that email already exists")
			return
		}
		h.ErrLog.Write(w, r, "signup", err)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.ErrLog.Write(w, r, "signup", err)
		return
	}
	h.AuditLog.SignedUp(ctx, r, u.ID, u.Role)

	errorsfeature.OK(w, map[string]any{"user": viewOf(&u)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /auth/login.
//
// Unknown emails and wrong passwords get the same 401 so the response does
// not reveal which accounts exist.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.Limiter.Allow(auditlog.ClientIP(r)) {
		errorsfeature.Fail(w, http.StatusTooManyRequests, "too many sign-in attempts, try again later")
		return
	}

	var req loginRequest
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxAuthBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorsfeature.Fail(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	email := normalize.Email(req.Email)
	if email == "" || req.Password == "" {
		errorsfeature.Fail(w, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, nil, email)
			h.invalidCredentials(w)
			return
		}
		h.ErrLog.Write(w, r, "login", err)
		return
	}

	/*── disabled users cannot log in ───────────────────────────────────────*/
	if u.Status == models.StatusDisabled {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, &u.ID, email)
		errorsfeature.Fail(w, http.StatusForbidden, "your account is disabled")
		return
	}

	if !userstore.CheckPassword(u, req.Password) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, &u.ID, email)
		h.invalidCredentials(w)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.ErrLog.Write(w, r, "login", err)
		return
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, email)

	errorsfeature.OK(w, map[string]any{"user": viewOf(u)})
}

func (h *Handler) invalidCredentials(w http.ResponseWriter) {
	errorsfeature.Fail(w, http.StatusUnauthorized, "invalid email or password")
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleChangePassword handles POST /auth/password for the signed-in user.
// Attempts share the login limiter since each one checks a password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Fail(w, http.StatusUnauthorized, "sign in required")
		return
	}
	if !h.Limiter.Allow(auditlog.ClientIP(r)) {
		errorsfeature.Fail(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	var req passwordRequest
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxAuthBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorsfeature.Fail(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	if utf8.RuneCountInString(req.NewPassword) < MinPasswordLength {
		errorsfeature.Fail(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	uid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		errorsfeature.Fail(w, http.StatusUnauthorized, "sign in required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "changePassword")
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, "changePassword", err)
		return
	}
	if !userstore.CheckPassword(u, req.CurrentPassword) {
		errorsfeature.Fail(w, http.StatusForbidden, "current password is incorrect")
		return
	}
	if err := h.Users.SetPassword(ctx, uid, req.NewPassword); err != nil {
		h.ErrLog.Write(w, r, "changePassword", err)
		return
	}
	h.AuditLog.PasswordChanged(ctx, r, uid)

	errorsfeature.OK(w, nil)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Logout and current user                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleLogout handles POST /auth/logout. Signed-out callers succeed too.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.AuditLog.Logout(context.WithoutCancel(r.Context()), r, u.ID)
	}
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("sign out failed", zap.Error(err))
	}
	errorsfeature.OK(w, nil)
}

// ServeMe handles GET /auth/me.
//
//	{ "success": true, "isAuthenticated": true, "user": {...} }
//	{ "success": true, "isAuthenticated": false }
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.OK(w, map[string]any{"isAuthenticated": false})
		return
	}
	errorsfeature.OK(w, map[string]any{
		"isAuthenticated": true,
		"user":            userView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
	})
}
