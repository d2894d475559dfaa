// internal/app/features/teams/routes.go
package teams

import (
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/authz"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /teams subrouter. Every route requires a signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.With(authz.RequireRole(models.RoleAdmin, models.RoleLeagueManager)).Get("/league/{leagueID}", h.ServeLeague)
	r.Get("/{teamID}", h.ServeTeam)
	r.Get("/{teamID}/activity", h.ServeActivity)
	r.Post("/{teamID}/join", h.HandleJoin)
	return r
}

// InviteRoutes returns the /invite subrouter. Checking a link is public;
// redeeming it requires a signed-in user.
func InviteRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/{teamID}/{inviteHash}", h.ServeInvite)
	r.With(sm.RequireSignedIn).Post("/{teamID}/{inviteHash}", h.HandleInvite)
	return r
}
