// internal/app/membership/parents.go
package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/teamhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/teamhub/internal/app/store/audit"
	"github.com/dalemusser/teamhub/internal/app/system/events"
	"github.com/dalemusser/teamhub/internal/app/system/normalize"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignParentToPlayer links a parent to a player and to the team-level
// parents list. Repeating the call with the same parentID changes nothing.
func (s *Service) AssignParentToPlayer(ctx context.Context, actor Actor, teamID, playerID, parentID primitive.ObjectID, parentName string) (*models.Team, error) {
	if parentID.IsZero() {
		return nil, fmt.Errorf("%w: parent id is required", ErrInvalid)
	}
	team, err := s.authorize(ctx, actor, teamID, teampolicy.ManageRoster)
	if err != nil {
		return nil, err
	}
	if _, ok := team.Player(playerID); !ok {
		return nil, fmt.Errorf("player %s: %w", playerID.Hex(), ErrNotFound)
	}

	name := normalize.Name(parentName)
	hasAccount := true
	if u, err := s.loadUser(ctx, parentID); err == nil {
		if name == "" {
			name = u.DisplayName
		}
	} else if errors.Is(err, ErrUserNotFound) {
		hasAccount = false
	} else {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: parent name is required", ErrInvalid)
	}
	ref := models.ParentRef{ID: parentID, Name: name}

	var linked bool
	err = s.Txn.Run(ctx, func(ctx context.Context) error {
		var err error
		if linked, err = s.Teams.LinkParentToPlayer(ctx, teamID, playerID, ref); err != nil {
			return fmt.Errorf("link parent to player: %w", err)
		}
		if _, err := s.Teams.AddTeamParent(ctx, teamID, ref); err != nil {
			return fmt.Errorf("add team parent: %w", err)
		}
		if hasAccount {
			return s.linkUser(ctx, parentID, teamID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if linked {
		s.audit(ctx, audit.EventParentAssigned, actor, teamID, &parentID, map[string]string{"player_id": playerID.Hex()})
		s.publish(ctx, events.TypeParentLinked, teamID, parentID, actor.ID, map[string]string{"player_id": playerID.Hex()})
	}
	return s.loadTeam(ctx, teamID)
}

// UnlinkParentFromPlayer removes the parent from one player's list. The
// team-level entry is kept; ReconcileTeamParents with prune removes it once
// no player references the parent.
func (s *Service) UnlinkParentFromPlayer(ctx context.Context, actor Actor, teamID, playerID, parentID primitive.ObjectID) (*models.Team, error) {
	team, err := s.authorize(ctx, actor, teamID, teampolicy.ManageRoster)
	if err != nil {
		return nil, err
	}
	if _, ok := team.Player(playerID); !ok {
		return nil, fmt.Errorf("player %s: %w", playerID.Hex(), ErrNotFound)
	}

	removed, err := s.Teams.UnlinkParentFromPlayer(ctx, teamID, playerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("unlink parent: %w", err)
	}
	if !removed {
		return nil, fmt.Errorf("parent %s on player %s: %w", parentID.Hex(), playerID.Hex(), ErrNotFound)
	}

	s.audit(ctx, audit.EventParentUnlinked, actor, teamID, &parentID, map[string]string{"player_id": playerID.Hex()})
	s.publish(ctx, events.TypeParentUnlinked, teamID, parentID, actor.ID, map[string]string{"player_id": playerID.Hex()})

	return s.loadTeam(ctx, teamID)
}

// ReconcileResult is returned by ReconcileTeamParents.
type ReconcileResult struct {
	Team    *models.Team `json:"team"`
	Added   int          `json:"added"`
	Removed int          `json:"removed"`
}

// ReconcileTeamParents adds every parent referenced by a player but missing
// from the team-level list. With prune it also drops team-level parents no
// player references.
func (s *Service) ReconcileTeamParents(ctx context.Context, actor Actor, teamID primitive.ObjectID, prune bool) (ReconcileResult, error) {
	if _, err := s.authorize(ctx, actor, teamID, teampolicy.ManageCoaches); err != nil {
		return ReconcileResult{}, err
	}

	var added, removed int
	err := s.Txn.Run(ctx, func(ctx context.Context) error {
		added, removed = 0, 0
		cur, err := s.loadTeam(ctx, teamID)
		if err != nil {
			return err
		}
		for _, ref := range cur.MissingParentRefs() {
			ok, err := s.Teams.AddTeamParent(ctx, teamID, ref)
			if err != nil {
				return fmt.Errorf("add team parent: %w", err)
			}
			if ok {
				added++
			}
		}
		if !prune {
			return nil
		}
		var ids []primitive.ObjectID
		for _, ref := range cur.UnlinkedParentRefs() {
			ids = append(ids, ref.ID)
		}
		removed, err = s.Teams.RemoveTeamParents(ctx, teamID, ids)
		if err != nil {
			return fmt.Errorf("prune team parents: %w", err)
		}
		return nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}

	if added > 0 || removed > 0 {
		s.Audit.ParentsReconciled(ctx, actor.ID, teamID, added, removed)
	}
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return ReconcileResult{}, err
	}
	return ReconcileResult{Team: team, Added: added, Removed: removed}, nil
}
