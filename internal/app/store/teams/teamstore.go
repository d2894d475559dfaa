// internal/app/store/teams/teamstore.go
package teamstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Every mutation below is a single conditional update on one team document.
// Methods returning (bool, error) report whether the condition matched and the
// write was applied; false with a nil error means the precondition no longer
// holds (already decided, already linked, not on roster, ...). Callers load the
// team first to tell those cases apart from a missing team.

var errEmptyName = errors.New("team name is required")

type Store struct {
	c     *mongo.Collection
	clock clockwork.Clock
}

func New(db *mongo.Database) *Store {
	return NewWithClock(db, clockwork.NewRealClock())
}

// NewWithClock stamps updated_at from clock, so a service and its stores
// agree on time under a fake clock.
func NewWithClock(db *mongo.Database, clock clockwork.Clock) *Store {
	return &Store{c: db.Collection("teams"), clock: clock}
}

func (s *Store) now() time.Time { return s.clock.Now().UTC() }

// Create inserts a team. Nil slices are stored as empty arrays so positional
// updates and $elemMatch filters behave the same on new documents.
func (s *Store) Create(ctx context.Context, t models.Team) (models.Team, error) {
	if t.Name == "" {
		return models.Team{}, errEmptyName
	}
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.NameCI = text.Fold(t.Name)
	if t.Players == nil {
		t.Players = []models.Player{}
	}
	if t.Coaches == nil {
		t.Coaches = []primitive.ObjectID{}
	}
	if t.Parents == nil {
		t.Parents = []models.ParentRef{}
	}
	if t.JoinRequests == nil {
		t.JoinRequests = []models.JoinRequest{}
	}
	ts := s.now()
	t.CreatedAt = ts
	t.UpdatedAt = ts

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Team{}, err
	}
	return t, nil
}

// GetByID loads a team. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	var t models.Team
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByMember returns teams where uid holds any role, sorted by name.
func (s *Store) ListByMember(ctx context.Context, uid primitive.ObjectID) ([]models.Team, error) {
	filter := bson.M{"$or": []bson.M{
		{"coach_id": uid},
		{"coaches": uid},
		{"players.id": uid},
		{"parents.id": uid},
	}}
	return s.find(ctx, filter, 0)
}

// ListAll returns up to limit teams sorted by name. Used for admin views.
func (s *Store) ListAll(ctx context.Context, limit int64) ([]models.Team, error) {
	return s.find(ctx, bson.M{}, limit)
}

// ListByLeague returns the teams of one league sorted by name.
func (s *Store) ListByLeague(ctx context.Context, leagueID primitive.ObjectID) ([]models.Team, error) {
	return s.find(ctx, bson.M{"league_id": leagueID}, 0)
}

func (s *Store) find(ctx context.Context, filter bson.M, limit int64) ([]models.Team, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Team{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetInviteHash replaces the team's invite token.
func (s *Store) SetInviteHash(ctx context.Context, teamID primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": teamID},
		bson.M{"$set": bson.M{"invite_hash": hash, "updated_at": s.now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Join requests                                                              */
/* -------------------------------------------------------------------------- */

// AddJoinRequest appends jr unless the same user already has a pending request.
func (s *Store) AddJoinRequest(ctx context.Context, teamID primitive.ObjectID, jr models.JoinRequest) (bool, error) {
	filter := bson.M{
		"_id": teamID,
		"join_requests": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"user_id": jr.UserID,
			"status":  models.JoinPending,
		}}},
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"join_requests": jr},
		"$set":  bson.M{"updated_at": s.now()},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// DecideJoinRequest moves a pending request to status. The positional update
// touches only the matched entry, so concurrent decisions on other requests of
// the same team are preserved, and a request leaves pending at most once.
func (s *Store) DecideJoinRequest(ctx context.Context, teamID primitive.ObjectID, requestID, status string) (bool, error) {
	ts := s.now()
	filter := bson.M{
		"_id": teamID,
		"join_requests": bson.M{"$elemMatch": bson.M{
			"id":     requestID,
			"status": models.JoinPending,
		}},
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"join_requests.$.status":     status,
		"join_requests.$.updated_at": ts,
		"updated_at":                 ts,
	}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

/* -------------------------------------------------------------------------- */
/* Roster                                                                     */
/* -------------------------------------------------------------------------- */

// AddPlayer pushes p unless a roster entry with the same id exists.
func (s *Store) AddPlayer(ctx context.Context, teamID primitive.ObjectID, p models.Player) (bool, error) {
	if p.Positions == nil {
		p.Positions = []string{}
	}
	if p.Parents == nil {
		p.Parents = []models.ParentRef{}
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": teamID, "players.id": bson.M{"$ne": p.ID}},
		bson.M{
			"$push": bson.M{"players": p},
			"$set":  bson.M{"updated_at": s.now()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemovePlayer pulls the roster entry and any assistant-coach entry for playerID.
func (s *Store) RemovePlayer(ctx context.Context, teamID, playerID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": teamID, "players.id": playerID},
		bson.M{
			"$pull": bson.M{
				"players": bson.M{"id": playerID},
				"coaches": playerID,
			},
			"$set": bson.M{"updated_at": s.now()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// PlayerUpdate holds optional roster fields; nil fields are left unchanged.
type PlayerUpdate struct {
	Name         *string
	JerseyNumber *int
	Age          *int
	Positions    []string
	Email        *string
}

// Empty reports whether no field is set.
func (u PlayerUpdate) Empty() bool {
	return u.Name == nil && u.JerseyNumber == nil && u.Age == nil && u.Positions == nil && u.Email == nil
}

// UpdatePlayer applies a partial $set to the matched roster entry.
func (s *Store) UpdatePlayer(ctx context.Context, teamID, playerID primitive.ObjectID, upd PlayerUpdate) (bool, error) {
	set := bson.M{"updated_at": s.now()}
	if upd.Name != nil {
		set["players.$[p].name"] = *upd.Name
	}
	if upd.JerseyNumber != nil {
		set["players.$[p].jersey_number"] = *upd.JerseyNumber
	}
	if upd.Age != nil {
		set["players.$[p].age"] = *upd.Age
	}
	if upd.Positions != nil {
		set["players.$[p].positions"] = upd.Positions
	}
	if upd.Email != nil {
		set["players.$[p].email"] = *upd.Email
	}

	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"p.id": playerID}},
	})
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": teamID, "players.id": playerID}, bson.M{"$set": set}, opts)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

/* -------------------------------------------------------------------------- */
/* Coaches                                                                    */
/* -------------------------------------------------------------------------- */

// AddCoach adds uid to the assistant coaches. The head coach is never added.
func (s *Store) AddCoach(ctx context.Context, teamID, uid primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": teamID, "coach_id": bson.M{"$ne": uid}, "coaches": bson.M{"$ne": uid}},
		bson.M{
			"$addToSet": bson.M{"coaches": uid},
			"$set":      bson.M{"updated_at": s.now()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveCoach pulls uid from the assistant coaches.
func (s *Store) RemoveCoach(ctx context.Context, teamID, uid primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": teamID, "coaches": uid},
		bson.M{
			"$pull": bson.M{"coaches": uid},
			"$set":  bson.M{"updated_at": s.now()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// CoachesElsewhere reports whether uid is head or assistant coach of any team
// other than exclude.
func (s *Store) CoachesElsewhere(ctx context.Context, uid, exclude primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"_id": bson.M{"$ne": exclude},
		"$or": []bson.M{{"coach_id": uid}, {"coaches": uid}},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

/* -------------------------------------------------------------------------- */
/* Parents                                                                    */
/* -------------------------------------------------------------------------- */

// LinkParentToPlayer pushes ref onto the player's parents unless already there.
func (s *Store) LinkParentToPlayer(ctx context.Context, teamID, playerID primitive.ObjectID, ref models.ParentRef) (bool, error) {
	filter := bson.M{
		"_id": teamID,
		"players": bson.M{"$elemMatch": bson.M{
			"id":         playerID,
			"parents.id": bson.M{"$ne": ref.ID},
		}},
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"players.$.parents": ref},
		"$set":  bson.M{"updated_at": s.now()},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// UnlinkParentFromPlayer pulls parentID from one player's parents.
func (s *Store) UnlinkParentFromPlayer(ctx context.Context, teamID, playerID, parentID primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"_id": teamID,
		"players": bson.M{"$elemMatch": bson.M{
			"id":         playerID,
			"parents.id": parentID,
		}},
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$pull": bson.M{"players.$.parents": bson.M{"id": parentID}},
		"$set":  bson.M{"updated_at": s.now()},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// AddTeamParent pushes ref onto the team-level parents unless already there.
func (s *Store) AddTeamParent(ctx context.Context, teamID primitive.ObjectID, ref models.ParentRef) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": teamID, "parents.id": bson.M{"$ne": ref.ID}},
		bson.M{
			"$push": bson.M{"parents": ref},
			"$set":  bson.M{"updated_at": s.now()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveTeamParents pulls the given ids from the team-level parents, but only
// those no player currently references.
func (s *Store) RemoveTeamParents(ctx context.Context, teamID primitive.ObjectID, ids []primitive.ObjectID) (int, error) {
	removed := 0
	for _, id := range ids {
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": teamID, "parents.id": id, "players.parents.id": bson.M{"$ne": id}},
			bson.M{
				"$pull": bson.M{"parents": bson.M{"id": id}},
				"$set":  bson.M{"updated_at": s.now()},
			})
		if err != nil {
			return removed, err
		}
		if res.ModifiedCount > 0 {
			removed++
		}
	}
	return removed, nil
}
