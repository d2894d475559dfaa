package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/teamhub/internal/app/store/users"
	"github.com/dalemusser/teamhub/internal/app/system/indexes"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/dalemusser/teamhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		DisplayName: "  Jordan   Lee ",
		Email:       "Jordan@Example.COM",
		Role:        "Parent",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.DisplayName != "Jordan Lee" || created.DisplayNameCI == "" {
		t.Errorf("name not normalized: %q / %q", created.DisplayName, created.DisplayNameCI)
	}
	if created.Email != "jordan@example.com" {
		t.Errorf("email = %q", created.Email)
	}
	if created.Role != models.RoleParent || created.Status != models.StatusActive {
		t.Errorf("role/status = %q/%q", created.Role, created.Status)
	}

	got, err := store.GetByEmail(ctx, "JORDAN@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Error("GetByEmail returned a different user")
	}
}

func TestStore_Create_Invalid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name string
		user models.User
	}{
		{"bad role", models.User{DisplayName: "X", Email: "x@example.com", Role: "superhero"}},
		{"no email", models.User{DisplayName: "X", Role: "player"}},
		{"bad status", models.User{DisplayName: "X", Email: "y@example.com", Role: "player", Status: "gone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.user); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	u := models.User{DisplayName: "A", Email: "dup@example.com", Role: "player"}
	if _, err := store.Create(ctx, u); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := store.Create(ctx, u); !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("second Create err = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_AddRemoveTeam(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Sam", "sam@example.com", models.RolePlayer)
	teamID := primitive.NewObjectID()

	for i := 0; i < 2; i++ {
		ok, err := store.AddTeam(ctx, u.ID, teamID)
		if err != nil || !ok {
			t.Fatalf("AddTeam: ok=%v err=%v", ok, err)
		}
	}
	if got := fx.User(ctx, u.ID); len(got.Teams) != 1 {
		t.Errorf("teams = %v, want exactly one entry", got.Teams)
	}

	if err := store.RemoveTeam(ctx, u.ID, teamID); err != nil {
		t.Fatalf("RemoveTeam: %v", err)
	}
	if got := fx.User(ctx, u.ID); got.InTeam(teamID) {
		t.Error("team still linked after RemoveTeam")
	}

	ok, err := store.AddTeam(ctx, primitive.NewObjectID(), teamID)
	if err != nil || ok {
		t.Errorf("AddTeam(unknown) = %v, %v; want false, nil", ok, err)
	}
}

func TestStore_PromoteDemote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		role        string
		wantPromote bool
		afterRole   string
	}{
		{models.RolePlayer, true, models.RoleCoach},
		{models.RoleParent, true, models.RoleCoach},
		{models.RoleCoach, false, models.RoleCoach},
		{models.RoleAdmin, false, models.RoleAdmin},
		{models.RoleLeagueManager, false, models.RoleLeagueManager},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			u := fx.CreateUser(ctx, "U", tt.role+"@example.com", tt.role)
			changed, err := store.PromoteToCoach(ctx, u.ID)
			if err != nil {
				t.Fatalf("PromoteToCoach: %v", err)
			}
			if changed != tt.wantPromote {
				t.Errorf("changed = %v, want %v", changed, tt.wantPromote)
			}
			if got := fx.User(ctx, u.ID).Role; got != tt.afterRole {
				t.Errorf("role = %q, want %q", got, tt.afterRole)
			}
		})
	}

	admin := fx.CreateUser(ctx, "Admin", "a2@example.com", models.RoleAdmin)
	if changed, _ := store.DemoteCoach(ctx, admin.ID); changed {
		t.Error("DemoteCoach changed an admin")
	}
	coach := fx.CreateUser(ctx, "Coach", "c2@example.com", models.RoleCoach)
	if changed, _ := store.DemoteCoach(ctx, coach.ID); !changed {
		t.Error("DemoteCoach did not change a coach")
	}
	if got := fx.User(ctx, coach.ID).Role; got != models.RolePlayer {
		t.Errorf("demoted role = %q, want player", got)
	}
}

func TestStore_SetRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "U", "u@example.com", models.RoleParent)
	if err := store.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if got := fx.User(ctx, u.ID).Role; got != models.RoleAdmin {
		t.Errorf("role = %q", got)
	}
	if err := store.SetRole(ctx, u.ID, "owner"); err == nil {
		t.Error("expected error for unknown role")
	}
	if err := store.SetRole(ctx, primitive.NewObjectID(), models.RoleAdmin); err == nil {
		t.Error("expected error for missing user")
	}
}

func TestPasswords(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "P", "p@example.com", models.RoleParent)
	if userstore.CheckPassword(&u, "anything") {
		t.Error("user without hash should not match")
	}
	if err := store.SetPassword(ctx, u.ID, "correct horse"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	got := fx.User(ctx, u.ID)
	if !userstore.CheckPassword(got, "correct horse") {
		t.Error("expected password to match")
	}
	if userstore.CheckPassword(got, "wrong") {
		t.Error("wrong password matched")
	}
}

func TestFetcher(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	f := userstore.NewFetcher(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	active := fx.CreateUser(ctx, "Active", "act@example.com", models.RoleCoach)
	disabled := fx.CreateDisabledUser(ctx, "Off", "off@example.com")

	su, err := f.FetchSessionUser(ctx, active.ID.Hex())
	if err != nil || su == nil || su.Role != models.RoleCoach {
		t.Fatalf("active: su=%+v err=%v", su, err)
	}
	for _, id := range []string{disabled.ID.Hex(), primitive.NewObjectID().Hex(), "junk"} {
		su, err := f.FetchSessionUser(ctx, id)
		if err != nil || su != nil {
			t.Errorf("FetchSessionUser(%s) = %+v, %v; want nil, nil", id, su, err)
		}
	}
}
