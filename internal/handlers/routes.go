package handlers

import (
	"net/http"
)

// Handlers bundles everything the router needs
type Handlers struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Care       *CareHandler
	Family     *FamilyHandler
	Admin      *AdminHandler
}

// RegisterRoutes adds the application routes to mux
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	m := h.Middleware
	protected := func(next http.HandlerFunc) http.HandlerFunc {
		return m.RequireAuth(m.CSRFProtect(next))
	}

	// Public routes
	mux.HandleFunc("GET /login", h.Auth.ShowLogin)
	mux.HandleFunc("POST /login", m.RateLimit(h.Auth.Login))
	mux.HandleFunc("GET /register", h.Auth.ShowRegister)
	mux.HandleFunc("POST /register", m.RateLimit(h.Auth.Register))
	mux.HandleFunc("GET /logout", h.Auth.Logout)
	mux.HandleFunc("POST /logout", h.Auth.Logout)

	// Care
	mux.HandleFunc("GET /{$}", m.RequireAuth(h.Care.Home))
	mux.HandleFunc("GET /user/{username}", m.RequireAuth(h.Care.Dashboard))
	mux.HandleFunc("GET /add_feeding", m.RequireAuth(h.Care.ShowAddFeeding))
	mux.HandleFunc("POST /add_feeding", protected(h.Care.AddFeeding))
	mux.HandleFunc("GET /add_changing", m.RequireAuth(h.Care.ShowAddChanging))
	mux.HandleFunc("POST /add_changing", protected(h.Care.AddChanging))
	mux.HandleFunc("GET /add_sleeping", m.RequireAuth(h.Care.ShowAddSleeping))
	mux.HandleFunc("POST /add_sleeping", protected(h.Care.AddSleeping))
	mux.HandleFunc("GET /add_note", m.RequireAuth(h.Care.ShowAddNote))
	mux.HandleFunc("POST /add_note", protected(h.Care.AddNote))

	// Families
	mux.HandleFunc("GET /add_baby", m.RequireAuth(h.Family.ShowAddBaby))
	mux.HandleFunc("POST /add_baby", protected(h.Family.AddBaby))
	mux.HandleFunc("GET /add_recipe", m.RequireAuth(h.Family.ShowAddRecipe))
	mux.HandleFunc("POST /add_recipe", protected(h.Family.AddRecipe))
	mux.HandleFunc("GET /add_family", m.RequireAuth(h.Family.ShowAddFamily))
	mux.HandleFunc("POST /add_family", protected(h.Family.AddFamily))
	mux.HandleFunc("GET /join_family", m.RequireAuth(h.Family.ShowJoinFamily))
	mux.HandleFunc("POST /join_family", protected(h.Family.JoinFamily))
	mux.HandleFunc("POST /share_code", protected(h.Family.ShareCode))

	// Admin routes
	mux.HandleFunc("GET /admin", m.RequireAdmin(h.Admin.ShowAdmin))
	mux.HandleFunc("GET /admin/export", m.RequireAdmin(h.Admin.ExportDatabase))
}
