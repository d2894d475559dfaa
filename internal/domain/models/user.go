// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleAdmin         = "admin"
	RoleLeagueManager = "league_manager"
	RoleCoach         = "coach"
	RolePlayer        = "player"
	RoleParent        = "parent"
)

// User statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// IsRole reports whether r is a known user role.
func IsRole(r string) bool {
	switch r {
	case RoleAdmin, RoleLeagueManager, RoleCoach, RolePlayer, RoleParent:
		return true
	}
	return false
}

// IsPrivilegedRole reports roles that membership changes never rewrite.
func IsPrivilegedRole(r string) bool {
	return r == RoleAdmin || r == RoleLeagueManager
}

// User is an account. Teams is a back-reference list of team ids the user
// belongs to in any capacity.
//
// NOTE:
//   - Role is a single global value; per-team standing is derived from the
//     team documents themselves.
type User struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	DisplayName   string               `bson:"display_name" json:"displayName"`
	DisplayNameCI string               `bson:"display_name_ci" json:"-"`
	Email         string               `bson:"email" json:"email"`
	Role          string               `bson:"role" json:"role"`
	Teams         []primitive.ObjectID `bson:"teams" json:"teams"`
	CoachProfile  *CoachProfile        `bson:"coach_profile,omitempty" json:"coachProfile,omitempty"`
	PasswordHash  string               `bson:"password_hash,omitempty" json:"-"`
	Status        string               `bson:"status" json:"status"` // active | disabled

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// CoachProfile is optional coach-facing detail.
type CoachProfile struct {
	Bio             string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Certifications  []string `bson:"certifications,omitempty" json:"certifications,omitempty"`
	YearsExperience int      `bson:"years_experience,omitempty" json:"yearsExperience,omitempty"`
}

// InTeam reports whether the user's back-reference list contains teamID.
func (u *User) InTeam(teamID primitive.ObjectID) bool {
	for _, id := range u.Teams {
		if id == teamID {
			return true
		}
	}
	return false
}
