// internal/domain/models/team.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Join request statuses. A request leaves pending exactly once.
const (
	JoinPending  = "pending"
	JoinApproved = "approved"
	JoinDeclined = "declined"
)

// Player positions.
const (
	PositionGoalkeeper = "goalkeeper"
	PositionDefender   = "defender"
	PositionMidfielder = "midfielder"
	PositionForward    = "forward"
	PositionUtility    = "utility"
)

// IsPosition reports whether p is a known position value.
func IsPosition(p string) bool {
	switch p {
	case PositionGoalkeeper, PositionDefender, PositionMidfielder, PositionForward, PositionUtility:
		return true
	}
	return false
}

// Team is the root aggregate. Players and join requests are embedded and
// have no lifecycle outside the team document.
//
// NOTE:
//   - CoachID is the head coach and owner; it is never demoted.
//   - Coaches holds assistant coach user ids only.
//   - Parents is the team-level summary list; player.parents back-references
//     are expected to be a subset of it (see MissingParentRefs).
type Team struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Location    string             `bson:"location" json:"location"`
	AgeDivision string             `bson:"age_division" json:"ageDivision"`
	Type        string             `bson:"type" json:"type"`

	Players      []Player             `bson:"players" json:"players"`
	CoachID      primitive.ObjectID   `bson:"coach_id" json:"coachId"`
	Coaches      []primitive.ObjectID `bson:"coaches" json:"coaches"`
	Parents      []ParentRef          `bson:"parents" json:"parents"`
	JoinRequests []JoinRequest        `bson:"join_requests" json:"joinRequests"`

	InviteHash string              `bson:"invite_hash,omitempty" json:"inviteHash,omitempty"`
	LeagueID   *primitive.ObjectID `bson:"league_id,omitempty" json:"leagueId,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Player is a roster entry. ID equals the user id when the player has an account.
type Player struct {
	ID           primitive.ObjectID `bson:"id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	JerseyNumber int                `bson:"jersey_number" json:"jerseyNumber"`
	Age          int                `bson:"age" json:"age"`
	Positions    []string           `bson:"positions" json:"positions"`
	Parents      []ParentRef        `bson:"parents" json:"parents"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
}

// ParentRef is the denormalized {id, name} summary stored on both the team
// and each linked player.
type ParentRef struct {
	ID   primitive.ObjectID `bson:"id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// JoinRequest is a prospective member's request, embedded in the team.
type JoinRequest struct {
	ID        string             `bson:"id" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	UserName  string             `bson:"user_name" json:"userName"`
	UserRole  string             `bson:"user_role" json:"userRole"` // player | coach | parent
	Message   string             `bson:"message" json:"message"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Player returns the roster entry with the given id.
func (t *Team) Player(id primitive.ObjectID) (Player, bool) {
	for _, p := range t.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// JoinRequest returns the embedded request with the given id.
func (t *Team) JoinRequest(id string) (JoinRequest, bool) {
	for _, jr := range t.JoinRequests {
		if jr.ID == id {
			return jr, true
		}
	}
	return JoinRequest{}, false
}

// IsHeadCoach reports whether uid owns the team.
func (t *Team) IsHeadCoach(uid primitive.ObjectID) bool {
	return !uid.IsZero() && t.CoachID == uid
}

// IsAssistantCoach reports whether uid is in the coaches list.
func (t *Team) IsAssistantCoach(uid primitive.ObjectID) bool {
	for _, c := range t.Coaches {
		if c == uid {
			return true
		}
	}
	return false
}

// IsCoach reports head or assistant coaching status.
func (t *Team) IsCoach(uid primitive.ObjectID) bool {
	return t.IsHeadCoach(uid) || t.IsAssistantCoach(uid)
}

// HasParent reports whether uid appears in the team-level parents list.
func (t *Team) HasParent(uid primitive.ObjectID) bool {
	for _, p := range t.Parents {
		if p.ID == uid {
			return true
		}
	}
	return false
}

// IsMember reports whether uid holds any role on the team.
func (t *Team) IsMember(uid primitive.ObjectID) bool {
	if t.IsCoach(uid) || t.HasParent(uid) {
		return true
	}
	_, onRoster := t.Player(uid)
	return onRoster
}

// HasPendingRequest reports whether uid already has a pending join request.
func (t *Team) HasPendingRequest(uid primitive.ObjectID) bool {
	for _, jr := range t.JoinRequests {
		if jr.UserID == uid && jr.Status == JoinPending {
			return true
		}
	}
	return false
}

// MissingParentRefs returns parents referenced by some player but absent
// from the team-level list, deduplicated by id in roster order.
func (t *Team) MissingParentRefs() []ParentRef {
	seen := make(map[primitive.ObjectID]bool)
	var missing []ParentRef
	for _, p := range t.Players {
		for _, ref := range p.Parents {
			if seen[ref.ID] || t.HasParent(ref.ID) {
				continue
			}
			seen[ref.ID] = true
			missing = append(missing, ref)
		}
	}
	return missing
}

// UnlinkedParentRefs returns team-level parents that no player references.
func (t *Team) UnlinkedParentRefs() []ParentRef {
	linked := make(map[primitive.ObjectID]bool)
	for _, p := range t.Players {
		for _, ref := range p.Parents {
			linked[ref.ID] = true
		}
	}
	var out []ParentRef
	for _, ref := range t.Parents {
		if !linked[ref.ID] {
			out = append(out, ref)
		}
	}
	return out
}
