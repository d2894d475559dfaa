// internal/app/membership/service.go
package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/teamhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/teamhub/internal/app/store/audit"
	teamstore "github.com/dalemusser/teamhub/internal/app/store/teams"
	userstore "github.com/dalemusser/teamhub/internal/app/store/users"
	"github.com/dalemusser/teamhub/internal/app/system/auditlog"
	"github.com/dalemusser/teamhub/internal/app/system/events"
	"github.com/dalemusser/teamhub/internal/app/system/ratelimit"
	"github.com/dalemusser/teamhub/internal/app/system/txn"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxJoinMessage is the longest join request message kept, in runes.
const MaxJoinMessage = 500

// Service implements the team membership and role workflows. Every entry
// point evaluates teampolicy before writing; writes touching more than one
// document run through Txn.
type Service struct {
	Teams       *teamstore.Store
	Users       *userstore.Store
	AuditEvents *audit.Store
	Txn         *txn.Runner
	Audit       *auditlog.Logger
	Events      events.Publisher
	Clock       clockwork.Clock
	Log         *zap.Logger

	// JoinLimiter bounds join request submissions per user. Nil disables it.
	JoinLimiter *ratelimit.Limiter
}

// Options carries the optional collaborators of New.
type Options struct {
	Txn         *txn.Runner
	Audit       *auditlog.Logger
	Events      events.Publisher
	Clock       clockwork.Clock
	JoinLimiter *ratelimit.Limiter
	Log         *zap.Logger
}

// New wires a Service over db. Missing options get working defaults:
// a non-strict txn runner, a log-only publisher and the real clock.
func New(db *mongo.Database, opts Options) *Service {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Txn == nil {
		opts.Txn = txn.New(db, opts.Log, false)
	}
	if opts.Events == nil {
		opts.Events = events.LogPublisher{Log: opts.Log}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Service{
		Teams:       teamstore.NewWithClock(db, opts.Clock),
		Users:       userstore.NewWithClock(db, opts.Clock),
		AuditEvents: audit.New(db),
		Txn:         opts.Txn,
		Audit:       opts.Audit,
		Events:      opts.Events,
		Clock:       opts.Clock,
		Log:         opts.Log,
		JoinLimiter: opts.JoinLimiter,
	}
}

// Actor identifies the caller.
type Actor = teampolicy.Actor

// loadTeam returns the team or a wrapped ErrNotFound.
func (s *Service) loadTeam(ctx context.Context, teamID primitive.ObjectID) (*models.Team, error) {
	t, err := s.Teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("team %s: %w", teamID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("load team: %w", err)
	}
	return t, nil
}

// authorize loads the team and checks cap for actor.
func (s *Service) authorize(ctx context.Context, actor Actor, teamID primitive.ObjectID, cap teampolicy.Capability) (*models.Team, error) {
	if actor.ID.IsZero() {
		return nil, ErrUnauthenticated
	}
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if d := teampolicy.Evaluate(actor, team, cap); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
	}
	return team, nil
}

// loadUser returns the user or a wrapped ErrUserNotFound.
func (s *Service) loadUser(ctx context.Context, uid primitive.ObjectID) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", uid.Hex(), ErrUserNotFound)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// linkUser adds teamID to the user's teams. A missing account is logged and
// skipped; roster entries may exist without one.
func (s *Service) linkUser(ctx context.Context, uid, teamID primitive.ObjectID) error {
	ok, err := s.Users.AddTeam(ctx, uid, teamID)
	if err != nil {
		return fmt.Errorf("link user to team: %w", err)
	}
	if !ok {
		s.Log.Debug("no user account to link", zap.String("user_id", uid.Hex()), zap.String("team_id", teamID.Hex()))
	}
	return nil
}

// demoteIfIdle reverts a coach to player once they coach no team other than
// teamID. Privileged roles are never touched. Reports whether the role changed.
func (s *Service) demoteIfIdle(ctx context.Context, uid, teamID primitive.ObjectID) (bool, error) {
	elsewhere, err := s.Teams.CoachesElsewhere(ctx, uid, teamID)
	if err != nil {
		return false, fmt.Errorf("check other coaching roles: %w", err)
	}
	if elsewhere {
		return false, nil
	}
	demoted, err := s.Users.DemoteCoach(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("demote coach: %w", err)
	}
	return demoted, nil
}

// publish sends a notification. Failures are logged; the change is already committed.
func (s *Service) publish(ctx context.Context, typ string, teamID, userID, actorID primitive.ObjectID, data map[string]string) {
	uid := ""
	if !userID.IsZero() {
		uid = userID.Hex()
	}
	ev := events.New(typ, teamID.Hex(), uid, actorID.Hex(), s.Clock.Now(), data)
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Log.Warn("publish team event failed",
			zap.String("event_type", typ),
			zap.String("team_id", teamID.Hex()),
			zap.Error(err))
	}
}

func (s *Service) audit(ctx context.Context, eventType string, actor Actor, teamID primitive.ObjectID, target *primitive.ObjectID, details map[string]string) {
	s.Audit.Membership(ctx, eventType, actor.ID, teamID, target, details)
}

// roleChanged records a global role rewrite.
func (s *Service) roleChanged(ctx context.Context, actor Actor, teamID, uid primitive.ObjectID, from, to string) {
	s.Audit.RoleChanged(ctx, actor.ID, teamID, uid, from, to)
}
