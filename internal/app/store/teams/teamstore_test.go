package teamstore_test

import (
	"sync"
	"testing"
	"time"

	teamstore "github.com/dalemusser/teamhub/internal/app/store/teams"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/dalemusser/teamhub/internal/testutil"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coach := primitive.NewObjectID()
	created, err := store.Create(ctx, models.Team{Name: "Riverside Rovers", CoachID: coach})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() || created.NameCI == "" {
		t.Errorf("created = %+v", created)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CoachID != coach || got.Players == nil || got.JoinRequests == nil {
		t.Errorf("got = %+v", got)
	}

	if _, err := store.Create(ctx, models.Team{}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestStore_ListByMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coach := fx.CreateUser(ctx, "Coach", "coach@example.com", models.RoleCoach)
	player := fx.CreateUser(ctx, "Player", "player@example.com", models.RolePlayer)
	a := fx.CreateTeam(ctx, "Bravo", coach)
	b := fx.CreateTeam(ctx, "alpha", coach)
	fx.AddPlayer(ctx, a.ID, player)

	teams, err := store.ListByMember(ctx, coach.ID)
	if err != nil {
		t.Fatalf("ListByMember: %v", err)
	}
	if len(teams) != 2 || teams[0].ID != b.ID {
		t.Errorf("coach teams = %d, first = %s; want 2 sorted by name", len(teams), teams[0].Name)
	}

	teams, _ = store.ListByMember(ctx, player.ID)
	if len(teams) != 1 || teams[0].ID != a.ID {
		t.Errorf("player teams = %+v", teams)
	}
}

func TestStore_AddJoinRequest_NoDuplicatePending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coach := fx.CreateUser(ctx, "Coach", "coach@example.com", models.RoleCoach)
	team := fx.CreateTeam(ctx, "Team", coach)
	uid := primitive.NewObjectID()

	jr := func() models.JoinRequest {
		return models.JoinRequest{ID: uuid.NewString(), UserID: uid, UserRole: models.RolePlayer, Status: models.JoinPending}
	}

	ok, err := store.AddJoinRequest(ctx, team.ID, jr())
	if err != nil || !ok {
		t.Fatalf("first AddJoinRequest: ok=%v err=%v", ok, err)
	}
	ok, err = store.AddJoinRequest(ctx, team.ID, jr())
	if err != nil || ok {
		t.Fatalf("second AddJoinRequest: ok=%v err=%v; want false, nil", ok, err)
	}
	if n := len(fx.Team(ctx, team.ID).JoinRequests); n != 1 {
		t.Errorf("join requests = %d, want 1", n)
	}
}

func TestStore_DecideJoinRequest_Terminal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coach := fx.CreateUser(ctx, "Coach", "coach@example.com", models.RoleCoach)
	applicant := fx.CreateUser(ctx, "App", "app@example.com", models.RolePlayer)
	team := fx.CreateTeam(ctx, "Team", coach)
	reqID := fx.AddJoinRequest(ctx, team.ID, applicant, models.RolePlayer)

	ok, err := store.DecideJoinRequest(ctx, team.ID, reqID, models.JoinDeclined)
	if err != nil || !ok {
		t.Fatalf("decide: ok=%v err=%v", ok, err)
	}
	ok, err = store.DecideJoinRequest(ctx, team.ID, reqID, models.JoinApproved)
	if err != nil || ok {
		t.Fatalf("re-decide: ok=%v err=%v; want false, nil", ok, err)
	}
	jr, _ := fx.Team(ctx, team.ID).JoinRequest(reqID)
	if jr.Status != models.JoinDeclined {
		t.Errorf("status = %q, want declined", jr.Status)
	}
}

func TestStore_DecideJoinRequest_ConcurrentDifferentRequests(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coach := fx.CreateUser(ctx, "Coach", "coach@example.com", models.RoleCoach)
	team := fx.CreateTeam(ctx, "Team", coach)

	const n = 8
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		u := fx.CreateUser(ctx, "U", uuid.NewString()+"@example.com", models.RolePlayer)
		ids[i] = fx.AddJoinRequest(ctx, team.ID, u, models.RolePlayer)
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		status := models.JoinApproved
		if i%2 == 1 {
			status = models.JoinDeclined
		}
		go func(id, status string) {
			defer wg.Done()
			if _, err := store.DecideJoinRequest(ctx, team.ID, id, status); err != nil {
				t.Errorf("decide %s: %v", id, err)
			}
		}(id, status)
	}
	wg.Wait()

	got := fx.Team(ctx, team.ID)
	for _, jr := range got.JoinRequests {
		if jr.Status == models.JoinPending {
			t.Errorf("request %s still pending; a concurrent decision was lost", jr.ID)
		}
	}
}

func TestStore_PlayerLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coach := fx.CreateUser(ctx, "Coach", "coach@example.com", models.RoleCoach)
	team := fx.CreateTeam(ctx, "Team", coach)
	pid := primitive.NewObjectID()

	ok, err := store.AddPlayer(ctx, team.ID, models.Player{ID: pid, Name: "Ana", JerseyNumber: 7})
	if err != nil || !ok {
		t.Fatalf("AddPlayer: ok=%v err=%v", ok, err)
	}
	if ok, _ := store.AddPlayer(ctx, team.ID, models.Player{ID: pid, Name: "Ana"}); ok {
		t.Error("duplicate AddPlayer applied")
	}

	name := "Ana Maria"
	age := 11
	ok, err = store.UpdatePlayer(ctx, team.ID, pid, teamstore.PlayerUpdate{
		Name:      &name,
		Age:       &age,
		Positions: []string{models.PositionForward},
	})
	if err != nil || !ok {
		t.Fatalf("UpdatePlayer: ok=%v err=%v", ok, err)
	}
	p, _ := fx.Team(ctx, team.ID).Player(pid)
	if p.Name != name || p.Age != 11 || p.JerseyNumber != 7 || len(p.Positions) != 1 {
		t.Errorf("player = %+v", p)
	}

	if _, err := store.AddCoach(ctx, team.ID, pid); err != nil {
		t.Fatalf("AddCoach: %v", err)
	}
	ok, err = store.RemovePlayer(ctx, team.ID, pid)
	if err != nil || !ok {
		t.Fatalf("RemovePlayer: ok=%v err=%v", ok, err)
	}
	got := fx.Team(ctx, team.ID)
	if _, on := got.Player(pid); on || got.IsAssistantCoach(pid) {
		t.Error("player or coach entry survived RemovePlayer")
	}
}

func TestStore_Coaches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	head := fx.CreateUser(ctx, "Head", "head@example.com", models.RoleCoach)
	a := fx.CreateTeam(ctx, "A", head)
	b := fx.CreateTeam(ctx, "B", head)
	asst := primitive.NewObjectID()

	if ok, _ := store.AddCoach(ctx, a.ID, head.ID); ok {
		t.Error("head coach was added to coaches")
	}
	if ok, _ := store.AddCoach(ctx, a.ID, asst); !ok {
		t.Fatal("AddCoach did not apply")
	}
	if ok, _ := store.AddCoach(ctx, a.ID, asst); ok {
		t.Error("AddCoach applied twice")
	}

	elsewhere, err := store.CoachesElsewhere(ctx, asst, a.ID)
	if err != nil || elsewhere {
		t.Errorf("asst elsewhere = %v, %v; want false", elsewhere, err)
	}
	elsewhere, _ = store.CoachesElsewhere(ctx, head.ID, a.ID)
	if !elsewhere {
		t.Errorf("head coach of %s should count as coaching elsewhere", b.ID.Hex())
	}

	if ok, _ := store.RemoveCoach(ctx, a.ID, asst); !ok {
		t.Error("RemoveCoach did not apply")
	}
	if ok, _ := store.RemoveCoach(ctx, a.ID, asst); ok {
		t.Error("RemoveCoach applied twice")
	}
}

func TestStore_ParentLinks_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coach := fx.CreateUser(ctx, "Coach", "coach@example.com", models.RoleCoach)
	kid := fx.CreateUser(ctx, "Kid", "kid@example.com", models.RolePlayer)
	team := fx.CreateTeam(ctx, "Team", coach)
	fx.AddPlayer(ctx, team.ID, kid)
	ref := models.ParentRef{ID: primitive.NewObjectID(), Name: "Mom"}

	for i := 0; i < 3; i++ {
		if _, err := store.LinkParentToPlayer(ctx, team.ID, kid.ID, ref); err != nil {
			t.Fatalf("LinkParentToPlayer: %v", err)
		}
		if _, err := store.AddTeamParent(ctx, team.ID, ref); err != nil {
			t.Fatalf("AddTeamParent: %v", err)
		}
	}

	got := fx.Team(ctx, team.ID)
	p, _ := got.Player(kid.ID)
	if len(p.Parents) != 1 || len(got.Parents) != 1 {
		t.Fatalf("player parents = %d, team parents = %d; want 1 and 1", len(p.Parents), len(got.Parents))
	}

	// Still referenced: prune must keep it.
	if n, _ := store.RemoveTeamParents(ctx, team.ID, []primitive.ObjectID{ref.ID}); n != 0 {
		t.Errorf("pruned a referenced parent")
	}

	ok, err := store.UnlinkParentFromPlayer(ctx, team.ID, kid.ID, ref.ID)
	if err != nil || !ok {
		t.Fatalf("Unlink: ok=%v err=%v", ok, err)
	}
	got = fx.Team(ctx, team.ID)
	p, _ = got.Player(kid.ID)
	if len(p.Parents) != 0 || !got.HasParent(ref.ID) {
		t.Errorf("after unlink: player parents = %v, team has parent = %v", p.Parents, got.HasParent(ref.ID))
	}

	if n, _ := store.RemoveTeamParents(ctx, team.ID, []primitive.ObjectID{ref.ID}); n != 1 {
		t.Errorf("RemoveTeamParents removed %d, want 1", n)
	}
}

func TestStore_SetInviteHash(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coach := fx.CreateUser(ctx, "Coach", "coach@example.com", models.RoleCoach)
	team := fx.CreateTeam(ctx, "Team", coach)
	before := fx.Team(ctx, team.ID).UpdatedAt

	time.Sleep(5 * time.Millisecond)
	if err := store.SetInviteHash(ctx, team.ID, "new-hash"); err != nil {
		t.Fatalf("SetInviteHash: %v", err)
	}
	got := fx.Team(ctx, team.ID)
	if got.InviteHash != "new-hash" || !got.UpdatedAt.After(before) {
		t.Errorf("invite = %q updated_at = %v", got.InviteHash, got.UpdatedAt)
	}
	if err := store.SetInviteHash(ctx, primitive.NewObjectID(), "x"); err == nil {
		t.Error("expected error for unknown team")
	}
}

func TestStore_StampsFromClock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	at := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	store := teamstore.NewWithClock(db, clockwork.NewFakeClockAt(at))
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coach := fx.CreateUser(ctx, "Coach", "coach@example.com", models.RoleCoach)
	team := fx.CreateTeam(ctx, "Team", coach)

	if err := store.SetInviteHash(ctx, team.ID, "clocked"); err != nil {
		t.Fatalf("SetInviteHash: %v", err)
	}
	if got := fx.Team(ctx, team.ID).UpdatedAt; !got.Equal(at) {
		t.Errorf("updated_at = %v, want %v", got, at)
	}
}
