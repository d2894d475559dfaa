// internal/app/features/functions/functions.go
package functions

import (
	"context"
	"encoding/json"

	"github.com/dalemusser/teamhub/internal/app/membership"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type teamRef struct {
	TeamID string `json:"teamId"`
}

type playerRef struct {
	TeamID   string `json:"teamId"`
	PlayerID string `json:"playerId"`
}

func (p playerRef) ids() (teamID, playerID primitive.ObjectID, err error) {
	if teamID, err = oid("teamId", p.TeamID); err != nil {
		return
	}
	playerID, err = oid("playerId", p.PlayerID)
	return
}

func (h *Handler) handleJoinRequest(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in struct {
		TeamID    string `json:"teamId"`
		RequestID string `json:"requestId"`
		Status    string `json:"status"`
	}
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, err := oid("teamId", in.TeamID)
	if err != nil {
		return nil, err
	}
	team, err := h.Svc.HandleJoinRequest(ctx, actor, teamID, in.RequestID, in.Status)
	if err != nil {
		return nil, err
	}
	return map[string]any{"team": team}, nil
}

func (h *Handler) submitJoinRequest(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in struct {
		TeamID  string `json:"teamId"`
		Role    string `json:"role"`
		Message string `json:"message"`
	}
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, err := oid("teamId", in.TeamID)
	if err != nil {
		return nil, err
	}
	jr, err := h.Svc.SubmitJoinRequest(ctx, actor, teamID, in.Role, in.Message)
	if err != nil {
		return nil, err
	}
	return map[string]any{"request": jr}, nil
}

func (h *Handler) toggleCoach(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in playerRef
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, playerID, err := in.ids()
	if err != nil {
		return nil, err
	}
	res, err := h.Svc.ToggleCoach(ctx, actor, teamID, playerID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"team": res.Team, "isCoach": res.IsCoach}, nil
}

func (h *Handler) removeCoachFromTeam(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in struct {
		TeamID  string `json:"teamId"`
		CoachID string `json:"coachId"`
	}
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, err := oid("teamId", in.TeamID)
	if err != nil {
		return nil, err
	}
	coachID, err := oid("coachId", in.CoachID)
	if err != nil {
		return nil, err
	}
	team, err := h.Svc.RemoveCoachFromTeam(ctx, actor, teamID, coachID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"team": team}, nil
}

func (h *Handler) assignParentToPlayer(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in struct {
		playerRef
		ParentID   string `json:"parentId"`
		ParentName string `json:"parentName"`
	}
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, playerID, err := in.ids()
	if err != nil {
		return nil, err
	}
	parentID, err := oid("parentId", in.ParentID)
	if err != nil {
		return nil, err
	}
	team, err := h.Svc.AssignParentToPlayer(ctx, actor, teamID, playerID, parentID, in.ParentName)
	if err != nil {
		return nil, err
	}
	return map[string]any{"team": team}, nil
}

func (h *Handler) unlinkParentFromPlayer(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in struct {
		playerRef
		ParentID string `json:"parentId"`
	}
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, playerID, err := in.ids()
	if err != nil {
		return nil, err
	}
	parentID, err := oid("parentId", in.ParentID)
	if err != nil {
		return nil, err
	}
	team, err := h.Svc.UnlinkParentFromPlayer(ctx, actor, teamID, playerID, parentID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"team": team}, nil
}

func (h *Handler) addPlayerToTeam(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in struct {
		TeamID string `json:"teamId"`
		membership.PlayerInput
	}
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, err := oid("teamId", in.TeamID)
	if err != nil {
		return nil, err
	}
	team, player, err := h.Svc.AddPlayerToTeam(ctx, actor, teamID, in.PlayerInput)
	if err != nil {
		return nil, err
	}
	return map[string]any{"team": team, "player": player}, nil
}

func (h *Handler) removePlayerFromTeam(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in playerRef
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, playerID, err := in.ids()
	if err != nil {
		return nil, err
	}
	team, err := h.Svc.RemovePlayerFromTeam(ctx, actor, teamID, playerID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"team": team}, nil
}

func (h *Handler) updatePlayerDetails(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in struct {
		playerRef
		Updates membership.PlayerPatch `json:"updates"`
	}
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, playerID, err := in.ids()
	if err != nil {
		return nil, err
	}
	team, err := h.Svc.UpdatePlayerDetails(ctx, actor, teamID, playerID, in.Updates)
	if err != nil {
		return nil, err
	}
	return map[string]any{"team": team}, nil
}

// validateTeamInvite needs no session; invite links are opened signed out.
func (h *Handler) validateTeamInvite(ctx context.Context, _ membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in struct {
		TeamID     string `json:"teamId"`
		InviteHash string `json:"inviteHash"`
	}
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, err := oid("teamId", in.TeamID)
	if err != nil {
		return nil, err
	}
	check, err := h.Svc.ValidateTeamInvite(ctx, teamID, in.InviteHash)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"valid": check.Valid}
	if check.Team != nil {
		out["team"] = check.Team
	}
	return out, nil
}

func (h *Handler) regenerateInvite(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in teamRef
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, err := oid("teamId", in.TeamID)
	if err != nil {
		return nil, err
	}
	hash, err := h.Svc.RegenerateInvite(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"inviteHash": hash}, nil
}

func (h *Handler) reconcileTeamParents(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in struct {
		TeamID string `json:"teamId"`
		Prune  bool   `json:"prune"`
	}
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	teamID, err := oid("teamId", in.TeamID)
	if err != nil {
		return nil, err
	}
	res, err := h.Svc.ReconcileTeamParents(ctx, actor, teamID, in.Prune)
	if err != nil {
		return nil, err
	}
	return map[string]any{"team": res.Team, "added": res.Added, "removed": res.Removed}, nil
}

func (h *Handler) createTeam(ctx context.Context, actor membership.Actor, body json.RawMessage) (map[string]any, error) {
	var in membership.TeamInput
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	team, err := h.Svc.CreateTeam(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	return map[string]any{"team": team}, nil
}
