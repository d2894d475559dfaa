package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/teamhub/internal/app/system/normalize"
	"github.com/dalemusser/teamhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 12

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "admin"|"league_manager"|"coach"|"player"|"parent"`)
	errBadStatus      = errors.New(`status must be "active"|"disabled"`)
	errNoEmail        = errors.New("email is required")
)

type Store struct {
	c     *mongo.Collection
	clock clockwork.Clock
}

func New(db *mongo.Database) *Store {
	return NewWithClock(db, clockwork.NewRealClock())
}

// NewWithClock stamps created_at and updated_at from clock.
func NewWithClock(db *mongo.Database, clock clockwork.Clock) *Store {
	return &Store{c: db.Collection("users"), clock: clock}
}

func (s *Store) now() time.Time { return s.clock.Now().UTC() }

// GetByID loads a user by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by normalized email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing and validating fields.
// u.PasswordHash must already be hashed (see HashPassword).
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.DisplayName = normalize.Name(u.DisplayName)
	u.DisplayNameCI = text.Fold(u.DisplayName)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	if u.Teams == nil {
		u.Teams = []primitive.ObjectID{}
	}

	if u.Email == "" {
		return models.User{}, errNoEmail
	}
	if !models.IsRole(u.Role) {
		return models.User{}, errBadRole
	}
	if u.Status != models.StatusActive && u.Status != models.StatusDisabled {
		return models.User{}, errBadStatus
	}

	now := s.now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// AddTeam adds teamID to the user's teams back-reference. Idempotent.
// Returns false if the user does not exist.
func (s *Store) AddTeam(ctx context.Context, userID, teamID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet": bson.M{"teams": teamID},
			"$set":      bson.M{"updated_at": s.now()},
		})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// RemoveTeam pulls teamID from the user's teams back-reference. Idempotent.
func (s *Store) RemoveTeam(ctx context.Context, userID, teamID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"teams": teamID},
			"$set":  bson.M{"updated_at": s.now()},
		})
	return err
}

// PromoteToCoach sets role to coach unless the user already coaches or holds
// a privileged role. Reports whether the role changed.
func (s *Store) PromoteToCoach(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":  userID,
			"role": bson.M{"$nin": []string{models.RoleAdmin, models.RoleLeagueManager, models.RoleCoach}},
		},
		bson.M{"$set": bson.M{"role": models.RoleCoach, "updated_at": s.now()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// DemoteCoach sets role coach to player. Users holding any other role are
// left unchanged. Reports whether the role changed.
func (s *Store) DemoteCoach(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "role": models.RoleCoach},
		bson.M{"$set": bson.M{"role": models.RolePlayer, "updated_at": s.now()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// SetRole sets the user's role directly. Used for admin bootstrap; membership
// changes go through PromoteToCoach and DemoteCoach.
func (s *Store) SetRole(ctx context.Context, userID primitive.ObjectID, role string) error {
	if !models.IsRole(role) {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"role": role, "updated_at": s.now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetPassword replaces the user's password hash.
func (s *Store) SetPassword(ctx context.Context, userID primitive.ObjectID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": s.now()}})
	return err
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the user's stored hash.
// Users without a hash never match.
func CheckPassword(u *models.User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
