// internal/app/membership/invites.go
package membership

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dalemusser/teamhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/teamhub/internal/app/store/audit"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeamSummary is the public view of a team shown on an invite landing page.
type TeamSummary struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Location    string             `json:"location"`
	AgeDivision string             `json:"ageDivision"`
	Type        string             `json:"type"`
}

// InviteCheck is the result of ValidateTeamInvite. Team is set only when valid.
type InviteCheck struct {
	Valid bool         `json:"valid"`
	Team  *TeamSummary `json:"team,omitempty"`
}

// NewInviteHash returns a fresh invite token.
func NewInviteHash() string {
	return uuid.NewString()
}

// ValidateTeamInvite checks hash against the team's invite token. Unknown
// teams and teams without a token are reported as invalid, not as errors.
func (s *Service) ValidateTeamInvite(ctx context.Context, teamID primitive.ObjectID, hash string) (InviteCheck, error) {
	if hash == "" {
		return InviteCheck{}, nil
	}
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return InviteCheck{}, nil
		}
		return InviteCheck{}, err
	}
	if team.InviteHash == "" || subtle.ConstantTimeCompare([]byte(team.InviteHash), []byte(hash)) != 1 {
		return InviteCheck{}, nil
	}
	return InviteCheck{Valid: true, Team: summarize(team)}, nil
}

// RedeemInvite submits a join request for actor when hash is valid.
func (s *Service) RedeemInvite(ctx context.Context, actor Actor, teamID primitive.ObjectID, hash, role, message string) (models.JoinRequest, error) {
	if actor.ID.IsZero() {
		return models.JoinRequest{}, ErrUnauthenticated
	}
	check, err := s.ValidateTeamInvite(ctx, teamID, hash)
	if err != nil {
		return models.JoinRequest{}, err
	}
	if !check.Valid {
		return models.JoinRequest{}, fmt.Errorf("%w: invite link is invalid or expired", ErrNotFound)
	}
	return s.SubmitJoinRequest(ctx, actor, teamID, role, message)
}

// RegenerateInvite rotates the team's invite token, invalidating the old link.
func (s *Service) RegenerateInvite(ctx context.Context, actor Actor, teamID primitive.ObjectID) (string, error) {
	if _, err := s.authorize(ctx, actor, teamID, teampolicy.ManageRoster); err != nil {
		return "", err
	}
	hash := NewInviteHash()
	if err := s.Teams.SetInviteHash(ctx, teamID, hash); err != nil {
		return "", fmt.Errorf("set invite hash: %w", err)
	}
	s.audit(ctx, audit.EventInviteRegenerated, actor, teamID, nil, nil)
	return hash, nil
}

func summarize(t *models.Team) *TeamSummary {
	return &TeamSummary{
		ID:          t.ID,
		Name:        t.Name,
		Location:    t.Location,
		AgeDivision: t.AgeDivision,
		Type:        t.Type,
	}
}
