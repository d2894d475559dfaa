// internal/app/membership/roster.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/teamhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/teamhub/internal/app/store/audit"
	teamstore "github.com/dalemusser/teamhub/internal/app/store/teams"
	"github.com/dalemusser/teamhub/internal/app/system/events"
	"github.com/dalemusser/teamhub/internal/app/system/normalize"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Roster field limits.
const (
	MinJersey = 0
	MaxJersey = 99
	MinAge    = 3
	MaxAge    = 21
)

// PlayerInput describes a new roster entry. Jersey and Age are optional.
type PlayerInput struct {
	Name         string   `json:"name"`
	JerseyNumber *int     `json:"jerseyNumber,omitempty"`
	Age          *int     `json:"age,omitempty"`
	Positions    []string `json:"positions,omitempty"`
	Email        string   `json:"email,omitempty"`
}

func validateJersey(n *int) error {
	if n != nil && (*n < MinJersey || *n > MaxJersey) {
		return fmt.Errorf("%w: jersey number must be %d-%d", ErrInvalid, MinJersey, MaxJersey)
	}
	return nil
}

func validateAge(n *int) error {
	if n != nil && (*n < MinAge || *n > MaxAge) {
		return fmt.Errorf("%w: age must be %d-%d", ErrInvalid, MinAge, MaxAge)
	}
	return nil
}

// cleanPositions lowercases, validates and de-duplicates positions.
func cleanPositions(in []string) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := []string{}
	seen := map[string]bool{}
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if !models.IsPosition(p) {
			return nil, fmt.Errorf("%w: unknown position %q", ErrInvalid, p)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// AddPlayerToTeam adds a roster entry. When Email matches an account the
// player id is that user's id and the team is linked on the user.
func (s *Service) AddPlayerToTeam(ctx context.Context, actor Actor, teamID primitive.ObjectID, in PlayerInput) (*models.Team, models.Player, error) {
	name := normalize.Name(in.Name)
	email := normalize.Email(in.Email)
	if err := validateJersey(in.JerseyNumber); err != nil {
		return nil, models.Player{}, err
	}
	if err := validateAge(in.Age); err != nil {
		return nil, models.Player{}, err
	}
	positions, err := cleanPositions(in.Positions)
	if err != nil {
		return nil, models.Player{}, err
	}

	if _, err := s.authorize(ctx, actor, teamID, teampolicy.ManageRoster); err != nil {
		return nil, models.Player{}, err
	}

	p := models.Player{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Positions: positions,
		Parents:   []models.ParentRef{},
		Email:     email,
	}
	if in.JerseyNumber != nil {
		p.JerseyNumber = *in.JerseyNumber
	}
	if in.Age != nil {
		p.Age = *in.Age
	}

	linked := false
	if email != "" {
		u, err := s.Users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			p.ID = u.ID
			linked = true
			if p.Name == "" {
				p.Name = u.DisplayName
			}
		case !errors.Is(err, mongo.ErrNoDocuments):
			return nil, models.Player{}, fmt.Errorf("lookup player email: %w", err)
		}
	}
	if p.Name == "" {
		return nil, models.Player{}, fmt.Errorf("%w: player name is required", ErrInvalid)
	}

	err = s.Txn.Run(ctx, func(ctx context.Context) error {
		added, err := s.Teams.AddPlayer(ctx, teamID, p)
		if err != nil {
			return fmt.Errorf("add player: %w", err)
		}
		if !added {
			return ErrAlreadyMember
		}
		if linked {
			return s.linkUser(ctx, p.ID, teamID)
		}
		return nil
	})
	if err != nil {
		return nil, models.Player{}, err
	}

	s.audit(ctx, audit.EventPlayerAdded, actor, teamID, &p.ID, map[string]string{"name": p.Name})
	s.publish(ctx, events.TypeRosterChanged, teamID, p.ID, actor.ID, map[string]string{"change": "added"})

	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, models.Player{}, err
	}
	return team, p, nil
}

// RemovePlayerFromTeam removes a roster entry and any assistant coach entry
// for the same id. The team is unlinked from the user unless they remain a
// team-level parent.
func (s *Service) RemovePlayerFromTeam(ctx context.Context, actor Actor, teamID, playerID primitive.ObjectID) (*models.Team, error) {
	team, err := s.authorize(ctx, actor, teamID, teampolicy.ManageRoster)
	if err != nil {
		return nil, err
	}
	if team.IsHeadCoach(playerID) {
		return nil, ErrHeadCoach
	}
	if _, ok := team.Player(playerID); !ok {
		return nil, fmt.Errorf("player %s: %w", playerID.Hex(), ErrNotFound)
	}
	wasCoach := team.IsAssistantCoach(playerID)

	var demoted bool
	err = s.Txn.Run(ctx, func(ctx context.Context) error {
		demoted = false
		removed, err := s.Teams.RemovePlayer(ctx, teamID, playerID)
		if err != nil {
			return fmt.Errorf("remove player: %w", err)
		}
		if !removed {
			return fmt.Errorf("player %s: %w", playerID.Hex(), ErrNotFound)
		}
		if !team.HasParent(playerID) {
			if err := s.Users.RemoveTeam(ctx, playerID, teamID); err != nil {
				return fmt.Errorf("unlink user from team: %w", err)
			}
		}
		if wasCoach {
			demoted, err = s.demoteIfIdle(ctx, playerID, teamID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.EventPlayerRemoved, actor, teamID, &playerID, nil)
	if demoted {
		s.roleChanged(ctx, actor, teamID, playerID, models.RoleCoach, models.RolePlayer)
	}
	s.publish(ctx, events.TypeRosterChanged, teamID, playerID, actor.ID, map[string]string{"change": "removed"})

	return s.loadTeam(ctx, teamID)
}

// PlayerPatch is a partial roster update. Nil fields are left unchanged.
type PlayerPatch struct {
	Name         *string  `json:"name,omitempty"`
	JerseyNumber *int     `json:"jerseyNumber,omitempty"`
	Age          *int     `json:"age,omitempty"`
	Positions    []string `json:"positions,omitempty"`
	Email        *string  `json:"email,omitempty"`
}

// UpdatePlayerDetails applies patch to one roster entry.
func (s *Service) UpdatePlayerDetails(ctx context.Context, actor Actor, teamID, playerID primitive.ObjectID, patch PlayerPatch) (*models.Team, error) {
	upd := teamstore.PlayerUpdate{
		JerseyNumber: patch.JerseyNumber,
		Age:          patch.Age,
	}
	if patch.Name != nil {
		name := normalize.Name(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: player name cannot be empty", ErrInvalid)
		}
		upd.Name = &name
	}
	if patch.Email != nil {
		email := normalize.Email(*patch.Email)
		upd.Email = &email
	}
	if err := validateJersey(patch.JerseyNumber); err != nil {
		return nil, err
	}
	if err := validateAge(patch.Age); err != nil {
		return nil, err
	}
	positions, err := cleanPositions(patch.Positions)
	if err != nil {
		return nil, err
	}
	upd.Positions = positions
	if upd.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalid)
	}

	team, err := s.authorize(ctx, actor, teamID, teampolicy.ManageRoster)
	if err != nil {
		return nil, err
	}
	if _, ok := team.Player(playerID); !ok {
		return nil, fmt.Errorf("player %s: %w", playerID.Hex(), ErrNotFound)
	}

	matched, err := s.Teams.UpdatePlayer(ctx, teamID, playerID, upd)
	if err != nil {
		return nil, fmt.Errorf("update player: %w", err)
	}
	if !matched {
		return nil, fmt.Errorf("player %s: %w", playerID.Hex(), ErrNotFound)
	}

	s.audit(ctx, audit.EventPlayerUpdated, actor, teamID, &playerID, nil)
	s.publish(ctx, events.TypeRosterChanged, teamID, playerID, actor.ID, map[string]string{"change": "updated"})

	return s.loadTeam(ctx, teamID)
}
