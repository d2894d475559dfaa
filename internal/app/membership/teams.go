// internal/app/membership/teams.go
package membership

import (
	"context"
	"fmt"

	"github.com/dalemusser/teamhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/teamhub/internal/app/store/audit"
	"github.com/dalemusser/teamhub/internal/app/system/normalize"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxListed caps unscoped team listings for admins and league managers.
const maxListed = 500

// TeamInput describes a new team.
type TeamInput struct {
	Name        string              `json:"name"`
	Location    string              `json:"location"`
	AgeDivision string              `json:"ageDivision"`
	Type        string              `json:"type"`
	LeagueID    *primitive.ObjectID `json:"leagueId,omitempty"`
}

// CreateTeam creates a team owned by actor, who becomes its head coach.
func (s *Service) CreateTeam(ctx context.Context, actor Actor, in TeamInput) (*models.Team, error) {
	if actor.ID.IsZero() {
		return nil, ErrUnauthenticated
	}
	if !teampolicy.CanCreateTeam(actor.Role) {
		return nil, fmt.Errorf("%w: only coaches, league managers and admins can create teams", ErrForbidden)
	}
	name := normalize.Name(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrInvalid)
	}

	var created models.Team
	err := s.Txn.Run(ctx, func(ctx context.Context) error {
		t, err := s.Teams.Create(ctx, models.Team{
			ID:          primitive.NewObjectID(),
			Name:        name,
			Location:    normalize.Name(in.Location),
			AgeDivision: normalize.Name(in.AgeDivision),
			Type:        normalize.Name(in.Type),
			CoachID:     actor.ID,
			LeagueID:    in.LeagueID,
			InviteHash:  NewInviteHash(),
		})
		if err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		created = t
		return s.linkUser(ctx, actor.ID, t.ID)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.EventTeamCreated, actor, created.ID, nil, map[string]string{"name": created.Name})
	return &created, nil
}

// ListTeams returns the teams visible to actor: every team for admins and
// league managers, otherwise the teams actor belongs to.
func (s *Service) ListTeams(ctx context.Context, actor Actor) ([]models.Team, error) {
	if actor.ID.IsZero() {
		return nil, ErrUnauthenticated
	}
	var (
		teams []models.Team
		err   error
	)
	if models.IsPrivilegedRole(actor.Role) {
		teams, err = s.Teams.ListAll(ctx, maxListed)
	} else {
		teams, err = s.Teams.ListByMember(ctx, actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	for i := range teams {
		Redact(actor, &teams[i])
	}
	return teams, nil
}

// ListLeagueTeams returns the teams of one league. Only admins and league
// managers may list across teams.
func (s *Service) ListLeagueTeams(ctx context.Context, actor Actor, leagueID primitive.ObjectID) ([]models.Team, error) {
	if actor.ID.IsZero() {
		return nil, ErrUnauthenticated
	}
	if !models.IsPrivilegedRole(actor.Role) {
		return nil, fmt.Errorf("%w: league listings are limited to league managers", ErrForbidden)
	}
	teams, err := s.Teams.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list league teams: %w", err)
	}
	for i := range teams {
		Redact(actor, &teams[i])
	}
	return teams, nil
}

// TeamView is a team as seen by one actor, with the capabilities they hold.
type TeamView struct {
	Team         *models.Team            `json:"team"`
	Capabilities []teampolicy.Capability `json:"capabilities"`
}

// GetTeam returns the team if actor may view it.
func (s *Service) GetTeam(ctx context.Context, actor Actor, teamID primitive.ObjectID) (TeamView, error) {
	team, err := s.authorize(ctx, actor, teamID, teampolicy.ViewTeam)
	if err != nil {
		return TeamView{}, err
	}
	caps := teampolicy.Allowed(actor, team)
	Redact(actor, team)
	return TeamView{Team: team, Capabilities: caps}, nil
}

// maxActivity caps one page of the team activity feed.
const maxActivity = 200

// TeamActivity returns the most recent membership audit events for the team,
// newest first. Visible to those who manage the roster.
func (s *Service) TeamActivity(ctx context.Context, actor Actor, teamID primitive.ObjectID, limit int64) ([]audit.Event, error) {
	if _, err := s.authorize(ctx, actor, teamID, teampolicy.ManageRoster); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxActivity {
		limit = maxActivity
	}
	evs, err := s.AuditEvents.GetByTeam(ctx, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("team activity: %w", err)
	}
	return evs, nil
}

// Redact hides join requests and the invite token from actors who cannot
// act on them. Members still see their own requests.
func Redact(actor Actor, t *models.Team) {
	if teampolicy.Evaluate(actor, t, teampolicy.DecideJoinRequests).Allowed {
		return
	}
	t.InviteHash = ""
	own := []models.JoinRequest{}
	for _, jr := range t.JoinRequests {
		if jr.UserID == actor.ID {
			own = append(own, jr)
		}
	}
	t.JoinRequests = own
}
