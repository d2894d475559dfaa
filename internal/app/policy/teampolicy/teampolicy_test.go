package teampolicy

import (
	"testing"

	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEvaluate(t *testing.T) {
	head := primitive.NewObjectID()
	asst := primitive.NewObjectID()
	player := primitive.NewObjectID()
	parent := primitive.NewObjectID()
	outsider := primitive.NewObjectID()

	team := &models.Team{
		CoachID: head,
		Coaches: []primitive.ObjectID{asst},
		Players: []models.Player{{ID: player}},
		Parents: []models.ParentRef{{ID: parent}},
	}

	actors := map[string]Actor{
		"head":     {ID: head, Role: models.RoleCoach},
		"asst":     {ID: asst, Role: models.RoleCoach},
		"player":   {ID: player, Role: models.RolePlayer},
		"parent":   {ID: parent, Role: models.RoleParent},
		"outsider": {ID: outsider, Role: models.RoleCoach},
		"admin":    {ID: primitive.NewObjectID(), Role: models.RoleAdmin},
		"league":   {ID: primitive.NewObjectID(), Role: models.RoleLeagueManager},
		"visitor":  {},
	}

	tests := []struct {
		actor string
		cap   Capability
		want  bool
	}{
		{"head", ManageCoaches, true},
		{"asst", ManageCoaches, false},
		{"admin", ManageCoaches, true},
		{"league", ManageCoaches, false},

		{"head", ManageRoster, true},
		{"asst", ManageRoster, true},
		{"parent", ManageRoster, false},
		{"outsider", ManageRoster, false},

		{"asst", DecideJoinRequests, true},
		{"player", DecideJoinRequests, false},
		{"admin", DecideJoinRequests, true},

		{"player", ViewTeam, true},
		{"parent", ViewTeam, true},
		{"league", ViewTeam, true},
		{"outsider", ViewTeam, false},

		{"outsider", SubmitJoinRequest, true},
		{"player", SubmitJoinRequest, false},
		{"head", SubmitJoinRequest, false},

		{"visitor", ViewTeam, false},
		{"visitor", SubmitJoinRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.actor+"/"+string(tt.cap), func(t *testing.T) {
			d := Evaluate(actors[tt.actor], team, tt.cap)
			if d.Allowed != tt.want {
				t.Errorf("Evaluate = %+v, want allowed=%v", d, tt.want)
			}
			if !d.Allowed && d.Reason == "" {
				t.Error("denied decision has no reason")
			}
		})
	}
}

func TestEvaluate_NilTeam(t *testing.T) {
	d := Evaluate(Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}, nil, ViewTeam)
	if d.Allowed {
		t.Error("nil team should never be allowed")
	}
}

func TestAllowed(t *testing.T) {
	head := primitive.NewObjectID()
	team := &models.Team{CoachID: head}
	got := Allowed(Actor{ID: head, Role: models.RoleCoach}, team)
	want := []Capability{ViewTeam, ManageRoster, ManageCoaches, DecideJoinRequests}
	if len(got) != len(want) {
		t.Fatalf("Allowed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Allowed[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCanCreateTeam(t *testing.T) {
	for role, want := range map[string]bool{
		models.RoleAdmin:         true,
		models.RoleLeagueManager: true,
		models.RoleCoach:         true,
		models.RolePlayer:        false,
		models.RoleParent:        false,
	} {
		if got := CanCreateTeam(role); got != want {
			t.Errorf("CanCreateTeam(%q) = %v, want %v", role, got, want)
		}
	}
}
