package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Journal.
	r.Get("/journal", h.GetJournal)
	r.Post("/journal/entries", h.AddJournalEntry)

	// Daily map of content.
	r.Post("/moc", h.BuildDailyMOC)
	r.Get("/moc/today", h.GetDailyMOC)

	// Log property maintenance.
	r.Post("/logs/backfill", h.BackfillLogs)
	r.Post("/logs/reset", h.ResetLogs)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
