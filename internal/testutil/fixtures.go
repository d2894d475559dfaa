package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates an active user with no teams and no password.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, name, email, role, models.StatusActive, "")
}

// CreateUserWithPassword creates an active user that can sign in with password.
func (f *Fixtures) CreateUserWithPassword(ctx context.Context, name, email, role, password string) models.User {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	return f.insertUser(ctx, name, email, role, models.StatusActive, string(hash))
}

// CreateDisabledUser creates a user with disabled status.
func (f *Fixtures) CreateDisabledUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, name, email, models.RolePlayer, models.StatusDisabled, "")
}

func (f *Fixtures) insertUser(ctx context.Context, name, email, role, status, hash string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:            primitive.NewObjectID(),
		DisplayName:   name,
		DisplayNameCI: text.Fold(name),
		Email:         email,
		Role:          role,
		Teams:         []primitive.ObjectID{},
		PasswordHash:  hash,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTeam creates a team owned by headCoach and links it on the coach's user.
func (f *Fixtures) CreateTeam(ctx context.Context, name string, headCoach models.User) models.Team {
	f.t.Helper()

	now := time.Now().UTC()
	team := models.Team{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		Location:     "Test Field",
		AgeDivision:  "U12",
		Type:         "club",
		Players:      []models.Player{},
		CoachID:      headCoach.ID,
		Coaches:      []primitive.ObjectID{},
		Parents:      []models.ParentRef{},
		JoinRequests: []models.JoinRequest{},
		InviteHash:   primitive.NewObjectID().Hex(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("teams").InsertOne(ctx, team); err != nil {
		f.t.Fatalf("failed to create test team: %v", err)
	}
	f.linkUser(ctx, headCoach.ID, team.ID)
	return team
}

// AddPlayer puts user on team's roster and links the team on the user.
func (f *Fixtures) AddPlayer(ctx context.Context, teamID primitive.ObjectID, user models.User) models.Player {
	f.t.Helper()

	p := models.Player{
		ID:        user.ID,
		Name:      user.DisplayName,
		Positions: []string{},
		Parents:   []models.ParentRef{},
		Email:     user.Email,
	}
	if _, err := f.db.Collection("teams").UpdateByID(ctx, teamID, bson.M{"$push": bson.M{"players": p}}); err != nil {
		f.t.Fatalf("failed to add test player: %v", err)
	}
	f.linkUser(ctx, user.ID, teamID)
	return p
}

// AddAssistantCoach puts user in the team's coaches list.
func (f *Fixtures) AddAssistantCoach(ctx context.Context, teamID primitive.ObjectID, user models.User) {
	f.t.Helper()
	if _, err := f.db.Collection("teams").UpdateByID(ctx, teamID, bson.M{"$addToSet": bson.M{"coaches": user.ID}}); err != nil {
		f.t.Fatalf("failed to add test coach: %v", err)
	}
	f.linkUser(ctx, user.ID, teamID)
}

// AddJoinRequest appends a pending request for user and returns its id.
func (f *Fixtures) AddJoinRequest(ctx context.Context, teamID primitive.ObjectID, user models.User, role string) string {
	f.t.Helper()

	now := time.Now().UTC()
	jr := models.JoinRequest{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.DisplayName,
		UserRole:  role,
		Message:   "please add me",
		Status:    models.JoinPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("teams").UpdateByID(ctx, teamID, bson.M{"$push": bson.M{"join_requests": jr}}); err != nil {
		f.t.Fatalf("failed to add test join request: %v", err)
	}
	return jr.ID
}

// Team reloads a team document.
func (f *Fixtures) Team(ctx context.Context, id primitive.ObjectID) *models.Team {
	f.t.Helper()
	var t models.Team
	if err := f.db.Collection("teams").FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		f.t.Fatalf("failed to load team %s: %v", id.Hex(), err)
	}
	return &t
}

// User reloads a user document.
func (f *Fixtures) User(ctx context.Context, id primitive.ObjectID) *models.User {
	f.t.Helper()
	var u models.User
	if err := f.db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		f.t.Fatalf("failed to load user %s: %v", id.Hex(), err)
	}
	return &u
}

func (f *Fixtures) linkUser(ctx context.Context, userID, teamID primitive.ObjectID) {
	f.t.Helper()
	if _, err := f.db.Collection("users").UpdateByID(ctx, userID, bson.M{"$addToSet": bson.M{"teams": teamID}}); err != nil {
		f.t.Fatalf("failed to link user to team: %v", err)
	}
}
