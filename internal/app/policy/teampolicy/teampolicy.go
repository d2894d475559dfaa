// internal/app/policy/teampolicy/teampolicy.go
package teampolicy

import (
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Capability names an action on a team.
type Capability string

const (
	ViewTeam           Capability = "view_team"
	ManageRoster       Capability = "manage_roster"
	ManageCoaches      Capability = "manage_coaches"
	DecideJoinRequests Capability = "decide_join_requests"
	SubmitJoinRequest  Capability = "submit_join_request"
)

// All lists every capability in display order.
var All = []Capability{ViewTeam, ManageRoster, ManageCoaches, DecideJoinRequests, SubmitJoinRequest}

// Actor is the principal a decision is made for.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

// Decision is the result of a capability check. Reason is set when denied.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Evaluate decides whether actor may perform cap on team.
//
//	view_team             admin, league_manager, any team member
//	manage_roster         admin, head coach, assistant coach
//	manage_coaches        admin, head coach
//	decide_join_requests  admin, head coach, assistant coach
//	submit_join_request   any signed-in user not already on the team
func Evaluate(actor Actor, team *models.Team, cap Capability) Decision {
	if actor.ID.IsZero() {
		return deny("sign in required")
	}
	if team == nil {
		return deny("team not found")
	}
	admin := actor.Role == models.RoleAdmin

	switch cap {
	case ViewTeam:
		if admin || actor.Role == models.RoleLeagueManager || team.IsMember(actor.ID) {
			return allow()
		}
		return deny("not a member of this team")

	case ManageRoster, DecideJoinRequests:
		if admin || team.IsCoach(actor.ID) {
			return allow()
		}
		return deny("only team coaches can do this")

	case ManageCoaches:
		if admin || team.IsHeadCoach(actor.ID) {
			return allow()
		}
		return deny("only the head coach can manage coaches")

	case SubmitJoinRequest:
		if team.IsMember(actor.ID) {
			return deny("already a member of this team")
		}
		return allow()
	}
	return deny("unknown capability")
}

// Allowed lists the capabilities actor holds on team.
func Allowed(actor Actor, team *models.Team) []Capability {
	out := []Capability{}
	for _, c := range All {
		if Evaluate(actor, team, c).Allowed {
			out = append(out, c)
		}
	}
	return out
}

// CanCreateTeam reports whether role may create teams.
func CanCreateTeam(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleLeagueManager, models.RoleCoach:
		return true
	}
	return false
}
