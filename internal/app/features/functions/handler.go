// internal/app/features/functions/handler.go
package functions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	errorsfeature "github.com/dalemusser/teamhub/internal/app/features/errors"
	"github.com/dalemusser/teamhub/internal/app/membership"
	"github.com/dalemusser/teamhub/internal/app/system/authz"
	"github.com/dalemusser/teamhub/internal/app/system/limits"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fn runs one named server function against a decoded payload.
type fn func(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error)

// Handler dispatches POST /functions/{name} to the membership service.
type Handler struct {
	Svc    *membership.Service
	ErrLog *errorsfeature.ErrorLogger
	Log    *zap.Logger

	fns map[string]fn
}

// NewHandler constructs a functions Handler.
func NewHandler(svc *membership.Service, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	h := &Handler{Svc: svc, ErrLog: errLog, Log: logger}
	h.fns = map[string]fn{
		"handleJoinRequest":      h.handleJoinRequest,
		"submitJoinRequest":      h.submitJoinRequest,
		"toggleCoach":            h.toggleCoach,
		"removeCoachFromTeam":    h.removeCoachFromTeam,
		"assignParentToPlayer":   h.assignParentToPlayer,
		"unlinkParentFromPlayer": h.unlinkParentFromPlayer,
		"addPlayerToTeam":        h.addPlayerToTeam,
		"removePlayerFromTeam":   h.removePlayerFromTeam,
		"updatePlayerDetails":    h.updatePlayerDetails,
		"validateTeamInvite":     h.validateTeamInvite,
		"regenerateInvite":       h.regenerateInvite,
		"reconcileTeamParents":   h.reconcileTeamParents,
		"createTeam":             h.createTeam,
	}
	return h
}

// Names lists the registered function names, sorted.
func (h *Handler) Names() []string {
	out := make([]string, 0, len(h.fns))
	for name := range h.fns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Invoke handles POST /functions/{name}.
//
// The body is the function's JSON payload. Responses use the envelope
//
//	{ "success": true, ...payload }
//	{ "success": false, "message": "..." }
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f, ok := h.fns[name]
	if !ok {
		errorsfeature.Fail(w, http.StatusNotFound, fmt.Sprintf("unknown function %q", name))
		return
	}

	var body json.RawMessage
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFunctionBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errorsfeature.Fail(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, name)
	defer cancel()

	payload, err := f(ctx, authz.Actor(r), body)
	if err != nil {
		h.ErrLog.Write(w, r, name, err)
		return
	}
	errorsfeature.OK(w, payload)
}

// decode unmarshals body into v, reporting failures as invalid input.
func decode(body json.RawMessage, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", membership.ErrInvalid, err)
	}
	return nil
}

// oid parses a required hex ObjectID field.
func oid(field, hex string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, fmt.Errorf("%w: %s is required", membership.ErrInvalid, field)
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s is not a valid id", membership.ErrInvalid, field)
	}
	return id, nil
}
