package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func reqAs(role, id string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if role == "" {
		return r
	}
	return auth.WithTestUser(r, &auth.SessionUser{ID: id, Name: "Test", Role: role})
}

func TestUserCtx(t *testing.T) {
	id := primitive.NewObjectID()

	tests := []struct {
		name     string
		req      *http.Request
		wantRole string
		wantOK   bool
	}{
		{"no user", reqAs("", ""), "visitor", false},
		{"malformed id", reqAs("coach", "not-an-id"), "visitor", false},
		{"mixed case role", reqAs("Coach", id.Hex()), "coach", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, _, uid, ok := UserCtx(tt.req)
			if role != tt.wantRole || ok != tt.wantOK {
				t.Errorf("UserCtx = (%q, %v), want (%q, %v)", role, ok, tt.wantRole, tt.wantOK)
			}
			if ok && uid != id {
				t.Errorf("userID = %s, want %s", uid.Hex(), id.Hex())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	h := RequireRole("coach", "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, reqAs("parent", id))
	if rec.Code != http.StatusForbidden {
		t.Errorf("parent: status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, reqAs("coach", id))
	if rec.Code != http.StatusNoContent {
		t.Errorf("coach: status = %d, want 204", rec.Code)
	}
}

func TestActor(t *testing.T) {
	id := primitive.NewObjectID()

	a := Actor(reqAs("Coach", id.Hex()))
	if a.ID != id || a.Role != "coach" {
		t.Errorf("Actor = %+v", a)
	}
	if a := Actor(reqAs("", "")); !a.ID.IsZero() || a.Role != "" {
		t.Errorf("signed-out Actor = %+v", a)
	}
}
