// internal/app/features/teams/handler.go
package teams

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/teamhub/internal/app/features/errors"
	"github.com/dalemusser/teamhub/internal/app/membership"
	"github.com/dalemusser/teamhub/internal/app/system/authz"
	"github.com/dalemusser/teamhub/internal/app/system/limits"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves team reads, join requests and invite links.
type Handler struct {
	Svc    *membership.Service
	ErrLog *errorsfeature.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs a teams Handler.
func NewHandler(svc *membership.Service, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, ErrLog: errLog, Log: logger}
}

// teamID parses the {teamID} URL parameter.
func teamID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "teamID"))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: bad team id", membership.ErrInvalid)
	}
	return id, nil
}

// ServeList handles GET /teams.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "listTeams")
	defer cancel()

	teams, err := h.Svc.ListTeams(ctx, authz.Actor(r))
	if err != nil {
		h.ErrLog.Write(w, r, "listTeams", err)
		return
	}
	errorsfeature.OK(w, map[string]any{"teams": teams})
}

// ServeTeam handles GET /teams/{teamID}.
func (h *Handler) ServeTeam(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		h.ErrLog.Write(w, r, "getTeam", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "getTeam")
	defer cancel()

	view, err := h.Svc.GetTeam(ctx, authz.Actor(r), id)
	if err != nil {
		h.ErrLog.Write(w, r, "getTeam", err)
		return
	}
	errorsfeature.OK(w, map[string]any{"team": view.Team, "capabilities": view.Capabilities})
}

// ServeLeague handles GET /teams/league/{leagueID}.
func (h *Handler) ServeLeague(w http.ResponseWriter, r *http.Request) {
	leagueID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "leagueID"))
	if err != nil {
		h.ErrLog.Write(w, r, "listLeagueTeams", fmt.Errorf("%w: bad league id", membership.ErrInvalid))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "listLeagueTeams")
	defer cancel()

	teams, err := h.Svc.ListLeagueTeams(ctx, authz.Actor(r), leagueID)
	if err != nil {
		h.ErrLog.Write(w, r, "listLeagueTeams", err)
		return
	}
	errorsfeature.OK(w, map[string]any{"teams": teams})
}

// ServeActivity handles GET /teams/{teamID}/activity?limit=N.
func (h *Handler) ServeActivity(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		h.ErrLog.Write(w, r, "teamActivity", err)
		return
	}
	var limit int64
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.ParseInt(v, 10, 64); err != nil {
			h.ErrLog.Write(w, r, "teamActivity", fmt.Errorf("%w: bad limit", membership.ErrInvalid))
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "teamActivity")
	defer cancel()

	evs, err := h.Svc.TeamActivity(ctx, authz.Actor(r), id, limit)
	if err != nil {
		h.ErrLog.Write(w, r, "teamActivity", err)
		return
	}
	errorsfeature.OK(w, map[string]any{"events": evs})
}

type joinRequest struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

func decodeJoin(w http.ResponseWriter, r *http.Request) (joinRequest, error) {
	var req joinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJoinBody)).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: request body must be a JSON object", membership.ErrInvalid)
	}
	return req, nil
}

// HandleJoin handles POST /teams/{teamID}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		h.ErrLog.Write(w, r, "submitJoinRequest", err)
		return
	}
	req, err := decodeJoin(w, r)
	if err != nil {
		h.ErrLog.Write(w, r, "submitJoinRequest", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "submitJoinRequest")
	defer cancel()

	jr, err := h.Svc.SubmitJoinRequest(ctx, authz.Actor(r), id, req.Role, req.Message)
	if err != nil {
		h.ErrLog.Write(w, r, "submitJoinRequest", err)
		return
	}
	errorsfeature.OK(w, map[string]any{"request": jr})
}

// ServeInvite handles GET /invite/{teamID}/{inviteHash}. Signed-out callers
// may check a link; an invalid one is a 404 with valid=false.
func (h *Handler) ServeInvite(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		errorsfeature.WriteJSON(w, http.StatusNotFound, map[string]any{"success": false, "valid": false, "message": "invite link is invalid"})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "validateTeamInvite")
	defer cancel()

	check, err := h.Svc.ValidateTeamInvite(ctx, id, chi.URLParam(r, "inviteHash"))
	if err != nil {
		h.ErrLog.Write(w, r, "validateTeamInvite", err)
		return
	}
	if !check.Valid {
		errorsfeature.WriteJSON(w, http.StatusNotFound, map[string]any{"success": false, "valid": false, "message": "invite link is invalid or expired"})
		return
	}
	errorsfeature.OK(w, map[string]any{"valid": true, "team": check.Team})
}

// HandleInvite handles POST /invite/{teamID}/{inviteHash}, submitting a join
// request for the signed-in user.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		h.ErrLog.Write(w, r, "redeemInvite", err)
		return
	}
	req, err := decodeJoin(w, r)
	if err != nil {
		h.ErrLog.Write(w, r, "redeemInvite", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "redeemInvite")
	defer cancel()

	jr, err := h.Svc.RedeemInvite(ctx, authz.Actor(r), id, chi.URLParam(r, "inviteHash"), req.Role, req.Message)
	if err != nil {
		h.ErrLog.Write(w, r, "redeemInvite", err)
		return
	}
	errorsfeature.OK(w, map[string]any{"request": jr})
}
