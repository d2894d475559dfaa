// internal/app/features/functions/routes.go
package functions

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /functions.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/{name}", h.Invoke)
	return r
}
