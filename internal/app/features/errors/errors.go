// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/teamhub/internal/app/membership"
	"go.uber.org/zap"
)

// Handler serves the JSON fallbacks mounted on the root router.
// No DB needed.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	Fail(w, http.StatusNotFound, "not found")
}

// MethodNotAllowed answers known routes hit with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Fail(w, http.StatusMethodNotAllowed, "method not allowed")
}

// WriteJSON writes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes {"success": true, ...payload} with status 200.
func OK(w http.ResponseWriter, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// Fail writes {"success": false, "message": msg}.
func Fail(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{"success": false, "message": msg})
}

// Classify maps a service error to an HTTP status and a client-safe message.
// Unknown errors map to 500 with a generic message.
func Classify(err error) (int, string) {
	switch {
	case stderrors.Is(err, membership.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case stderrors.Is(err, membership.ErrUnauthenticated):
		return http.StatusUnauthorized, "sign in required"
	case stderrors.Is(err, membership.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case stderrors.Is(err, membership.ErrNotFound), stderrors.Is(err, membership.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case stderrors.Is(err, membership.ErrJoinRequestDecided),
		stderrors.Is(err, membership.ErrDuplicateRequest),
		stderrors.Is(err, membership.ErrAlreadyMember),
		stderrors.Is(err, membership.ErrHeadCoach):
		return http.StatusConflict, err.Error()
	case stderrors.Is(err, membership.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()
	default:
		return http.StatusInternalServerError, "something went wrong, please try again"
	}
}

// ErrorLogger writes classified error responses and logs the unexpected ones.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Write classifies err, logs it when it is not a known domain error, and
// writes the failure envelope. op names the operation for the log.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := Classify(err)
	if status == http.StatusInternalServerError {
		e.Log.Error("request failed",
			zap.String("op", op),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	} else {
		e.Log.Debug("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.Error(err))
	}
	Fail(w, status, msg)
}
