// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/teamhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// A missing user or a malformed user ID yields "visitor", "", NilObjectID, false,
// so ok=true always means an authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Session corruption; fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// Actor returns the policy principal for the request. Signed-out requests
// yield the zero Actor, which every team capability check rejects.
func Actor(r *http.Request) teampolicy.Actor {
	role, _, id, ok := UserCtx(r)
	if !ok {
		return teampolicy.Actor{}
	}
	return teampolicy.Actor{ID: id, Role: role}
}
