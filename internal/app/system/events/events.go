// internal/app/system/events/events.go
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types published on membership changes. The subject is
// "<prefix>.team.<type>".
const (
	TypeJoinRequestSubmitted = "join_request.submitted"
	TypeJoinRequestDecided   = "join_request.decided"
	TypeCoachToggled         = "coach.toggled"
	TypeRosterChanged        = "roster.changed"
	TypeParentLinked         = "parent.linked"
	TypeParentUnlinked       = "parent.unlinked"
)

// Event is a notification about a team. Data carries type-specific fields.
type Event struct {
	ID        string            `json:"eventId"`
	Type      string            `json:"eventType"`
	TeamID    string            `json:"teamId"`
	UserID    string            `json:"userId,omitempty"`
	ActorID   string            `json:"actorId,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// New builds an event with a fresh id and the given timestamp.
func New(typ, teamID, userID, actorID string, at time.Time, data map[string]string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		TeamID:    teamID,
		UserID:    userID,
		ActorID:   actorID,
		Timestamp: at.UTC(),
		Data:      data,
	}
}

// Publisher delivers events. Publishing is best-effort: callers log failures
// and never roll back a committed membership change because of them.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher writes events to zap. Used when no broker is configured.
type LogPublisher struct {
	Log *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, ev Event) error {
	p.Log.Info("team event",
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
		zap.String("team_id", ev.TeamID),
		zap.String("user_id", ev.UserID),
		zap.String("actor_id", ev.ActorID),
		zap.Any("data", ev.Data))
	return nil
}

func (LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what has been published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events with the given type.
func (r *Recorder) OfType(typ string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
