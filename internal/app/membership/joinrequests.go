// internal/app/membership/joinrequests.go
package membership

import (
	"context"
	"fmt"

	"github.com/dalemusser/teamhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/teamhub/internal/app/store/audit"
	"github.com/dalemusser/teamhub/internal/app/system/events"
	"github.com/dalemusser/teamhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// isJoinRole reports roles a join request may ask for.
func isJoinRole(r string) bool {
	return r == models.RolePlayer || r == models.RoleCoach || r == models.RoleParent
}

// SubmitJoinRequest records a pending request from actor to join teamID as role.
func (s *Service) SubmitJoinRequest(ctx context.Context, actor Actor, teamID primitive.ObjectID, role, message string) (models.JoinRequest, error) {
	if actor.ID.IsZero() {
		return models.JoinRequest{}, ErrUnauthenticated
	}
	if !isJoinRole(role) {
		return models.JoinRequest{}, fmt.Errorf("%w: role must be player, coach or parent", ErrInvalid)
	}
	if s.JoinLimiter != nil && !s.JoinLimiter.Allow(actor.ID.Hex()) {
		return models.JoinRequest{}, ErrRateLimited
	}

	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	if d := teampolicy.Evaluate(actor, team, teampolicy.SubmitJoinRequest); !d.Allowed {
		if team.IsMember(actor.ID) {
			return models.JoinRequest{}, ErrAlreadyMember
		}
		return models.JoinRequest{}, fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
	}

	user, err := s.loadUser(ctx, actor.ID)
	if err != nil {
		return models.JoinRequest{}, err
	}

	now := s.Clock.Now().UTC()
	jr := models.JoinRequest{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.DisplayName,
		UserRole:  role,
		Message:   htmlsanitize.Truncate(htmlsanitize.PlainText(message), MaxJoinMessage),
		Status:    models.JoinPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	applied, err := s.Teams.AddJoinRequest(ctx, teamID, jr)
	if err != nil {
		return models.JoinRequest{}, fmt.Errorf("add join request: %w", err)
	}
	if !applied {
		return models.JoinRequest{}, ErrDuplicateRequest
	}

	s.audit(ctx, audit.EventJoinRequestSubmitted, actor, teamID, &user.ID, map[string]string{
		"request_id": jr.ID,
		"user_role":  role,
	})
	s.publish(ctx, events.TypeJoinRequestSubmitted, teamID, user.ID, actor.ID, map[string]string{
		"request_id": jr.ID,
		"user_role":  role,
	})
	return jr, nil
}

// HandleJoinRequest approves or declines a pending request and, on approval,
// applies the membership it asked for. Returns the updated team.
func (s *Service) HandleJoinRequest(ctx context.Context, actor Actor, teamID primitive.ObjectID, requestID, status string) (*models.Team, error) {
	if status != models.JoinApproved && status != models.JoinDeclined {
		return nil, fmt.Errorf("%w: status must be approved or declined", ErrInvalid)
	}
	if requestID == "" {
		return nil, fmt.Errorf("%w: request id is required", ErrInvalid)
	}

	team, err := s.authorize(ctx, actor, teamID, teampolicy.DecideJoinRequests)
	if err != nil {
		return nil, err
	}
	jr, ok := team.JoinRequest(requestID)
	if !ok {
		return nil, fmt.Errorf("join request %s: %w", requestID, ErrNotFound)
	}
	if jr.Status != models.JoinPending {
		return nil, ErrJoinRequestDecided
	}

	var promoted bool
	err = s.Txn.Run(ctx, func(ctx context.Context) error {
		promoted = false

		applied, err := s.Teams.DecideJoinRequest(ctx, teamID, requestID, status)
		if err != nil {
			return fmt.Errorf("decide join request: %w", err)
		}
		if !applied {
			return ErrJoinRequestDecided
		}
		if status == models.JoinDeclined {
			return nil
		}

		promoted, err = s.applyApproval(ctx, team, jr)
		return err
	})
	if err != nil {
		return nil, err
	}

	if promoted {
		s.roleChanged(ctx, actor, teamID, jr.UserID, "", models.RoleCoach)
	}
	s.Audit.JoinRequestDecided(ctx, actor.ID, teamID, jr.UserID, requestID, status, jr.UserRole)
	s.publish(ctx, events.TypeJoinRequestDecided, teamID, jr.UserID, actor.ID, map[string]string{
		"request_id": requestID,
		"status":     status,
		"user_role":  jr.UserRole,
	})

	return s.loadTeam(ctx, teamID)
}

// applyApproval grants the membership jr asked for. Each write is
// idempotent, so a retried transaction converges on the same state.
// Reports whether the user's role was promoted to coach.
func (s *Service) applyApproval(ctx context.Context, team *models.Team, jr models.JoinRequest) (bool, error) {
	promoted := false

	switch jr.UserRole {
	case models.RolePlayer:
		if _, err := s.Teams.AddPlayer(ctx, team.ID, models.Player{ID: jr.UserID, Name: jr.UserName}); err != nil {
			return false, fmt.Errorf("add player: %w", err)
		}

	case models.RoleCoach:
		if !team.IsHeadCoach(jr.UserID) {
			if _, err := s.Teams.AddCoach(ctx, team.ID, jr.UserID); err != nil {
				return false, fmt.Errorf("add coach: %w", err)
			}
			var err error
			if promoted, err = s.Users.PromoteToCoach(ctx, jr.UserID); err != nil {
				return false, fmt.Errorf("promote coach: %w", err)
			}
		}

	case models.RoleParent:
		if _, err := s.Teams.AddTeamParent(ctx, team.ID, models.ParentRef{ID: jr.UserID, Name: jr.UserName}); err != nil {
			return false, fmt.Errorf("add parent: %w", err)
		}

	default:
		return false, fmt.Errorf("%w: join request has unknown role %q", ErrInvalid, jr.UserRole)
	}

	if err := s.linkUser(ctx, jr.UserID, team.ID); err != nil {
		return false, err
	}
	return promoted, nil
}
