// internal/app/membership/coaches.go
package membership

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dalemusser/teamhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/teamhub/internal/app/store/audit"
	"github.com/dalemusser/teamhub/internal/app/system/events"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToggleResult is returned by ToggleCoach.
type ToggleResult struct {
	Team    *models.Team `json:"team"`
	IsCoach bool         `json:"isCoach"`
}

// ToggleCoach flips a rostered player's assistant coach status. Promotion sets
// the user's role to coach; demotion reverts it to player once the user
// coaches no other team. The head coach is never toggled.
func (s *Service) ToggleCoach(ctx context.Context, actor Actor, teamID, playerID primitive.ObjectID) (ToggleResult, error) {
	team, err := s.authorize(ctx, actor, teamID, teampolicy.ManageCoaches)
	if err != nil {
		return ToggleResult{}, err
	}
	if team.IsHeadCoach(playerID) {
		return ToggleResult{}, ErrHeadCoach
	}
	if _, ok := team.Player(playerID); !ok {
		return ToggleResult{}, fmt.Errorf("player %s: %w", playerID.Hex(), ErrNotFound)
	}
	user, err := s.loadUser(ctx, playerID)
	if err != nil {
		return ToggleResult{}, err
	}

	var nowCoach, roleChanged bool
	err = s.Txn.Run(ctx, func(ctx context.Context) error {
		roleChanged = false

		// Re-read inside the transaction so the toggle direction follows the
		// committed state rather than the pre-check snapshot.
		cur, err := s.loadTeam(ctx, teamID)
		if err != nil {
			return err
		}

		if cur.IsAssistantCoach(playerID) {
			nowCoach = false
			if _, err := s.Teams.RemoveCoach(ctx, teamID, playerID); err != nil {
				return fmt.Errorf("remove coach: %w", err)
			}
			roleChanged, err = s.demoteIfIdle(ctx, playerID, teamID)
			return err
		}

		nowCoach = true
		if _, err := s.Teams.AddCoach(ctx, teamID, playerID); err != nil {
			return fmt.Errorf("add coach: %w", err)
		}
		if roleChanged, err = s.Users.PromoteToCoach(ctx, playerID); err != nil {
			return fmt.Errorf("promote coach: %w", err)
		}
		return s.linkUser(ctx, playerID, teamID)
	})
	if err != nil {
		return ToggleResult{}, err
	}

	eventType := audit.EventCoachDemoted
	if nowCoach {
		eventType = audit.EventCoachPromoted
	}
	s.audit(ctx, eventType, actor, teamID, &playerID, nil)
	if roleChanged {
		to := models.RolePlayer
		if nowCoach {
			to = models.RoleCoach
		}
		s.roleChanged(ctx, actor, teamID, playerID, user.Role, to)
	}
	s.publish(ctx, events.TypeCoachToggled, teamID, playerID, actor.ID, map[string]string{
		"is_coach": strconv.FormatBool(nowCoach),
	})

	updated, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Team: updated, IsCoach: nowCoach}, nil
}

// RemoveCoachFromTeam removes an assistant coach, with the same demotion rule
// as ToggleCoach. The coach need not be on the roster.
func (s *Service) RemoveCoachFromTeam(ctx context.Context, actor Actor, teamID, coachID primitive.ObjectID) (*models.Team, error) {
	team, err := s.authorize(ctx, actor, teamID, teampolicy.ManageCoaches)
	if err != nil {
		return nil, err
	}
	if team.IsHeadCoach(coachID) {
		return nil, ErrHeadCoach
	}
	if !team.IsAssistantCoach(coachID) {
		return nil, fmt.Errorf("coach %s: %w", coachID.Hex(), ErrNotFound)
	}

	var demoted bool
	err = s.Txn.Run(ctx, func(ctx context.Context) error {
		demoted = false
		removed, err := s.Teams.RemoveCoach(ctx, teamID, coachID)
		if err != nil {
			return fmt.Errorf("remove coach: %w", err)
		}
		if !removed {
			return fmt.Errorf("coach %s: %w", coachID.Hex(), ErrNotFound)
		}
		demoted, err = s.demoteIfIdle(ctx, coachID, teamID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.EventCoachDemoted, actor, teamID, &coachID, nil)
	if demoted {
		s.roleChanged(ctx, actor, teamID, coachID, models.RoleCoach, models.RolePlayer)
	}
	s.publish(ctx, events.TypeCoachToggled, teamID, coachID, actor.ID, map[string]string{"is_coach": "false"})

	return s.loadTeam(ctx, teamID)
}
