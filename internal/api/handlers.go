package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/leanjournal/internal/apperr"
	"github.com/starford/leanjournal/internal/logprop"
	"github.com/starford/leanjournal/internal/moc"
	"github.com/starford/leanjournal/internal/models"
	"github.com/starford/leanjournal/internal/settings"
)

// Service is what the handlers need from the application.
type Service interface {
	AddJournalEntry(ctx context.Context) error
	Journal(ctx context.Context) (models.Document, error)
	BuildDailyMOC(ctx context.Context) (moc.Result, error)
	DailyMOC(ctx context.Context) (models.Document, error)
	BackfillLogs(ctx context.Context) (logprop.Report, error)
	ResetLogs(ctx context.Context) (logprop.Report, error)
	Settings() settings.Settings
	UpdateSettings(ctx context.Context, s settings.Settings) (settings.Settings, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc Service
}

// NewHandler creates a new Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// GetJournal handles GET /api/journal.
//
//	@Summary		Read the journal note
//	@Tags			journal
//	@Produce		json
//	@Success		200	{object}	DocumentResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/journal [get]
func (h *Handler) GetJournal(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Journal(r.Context())
	writeDocument(w, doc, err, "journal")
}

// AddJournalEntry handles POST /api/journal/entries.
//
//	@Summary		Add a time heading for now under today's heading
//	@Tags			journal
//	@Produce		json
//	@Success		201	{object}	DocumentResponse
//	@Security		BearerAuth
//	@Router			/journal/entries [post]
func (h *Handler) AddJournalEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AddJournalEntry(r.Context()); err != nil {
		slog.Error("add journal entry failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to add journal entry"))
		return
	}
	doc, err := h.svc.Journal(r.Context())
	if err != nil {
		slog.Error("read journal failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// BuildDailyMOC handles POST /api/moc.
//
//	@Summary		Link today's notes into today's MOC note
//	@Tags			moc
//	@Produce		json
//	@Success		200	{object}	MOCResponse
//	@Security		BearerAuth
//	@Router			/moc [post]
func (h *Handler) BuildDailyMOC(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.BuildDailyMOC(r.Context())
	if err != nil {
		slog.Error("build daily moc failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create daily MOC"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetDailyMOC handles GET /api/moc/today.
//
//	@Summary		Read today's MOC note
//	@Tags			moc
//	@Produce		json
//	@Success		200	{object}	DocumentResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/moc/today [get]
func (h *Handler) GetDailyMOC(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.DailyMOC(r.Context())
	writeDocument(w, doc, err, "daily MOC")
}

// BackfillLogs handles POST /api/logs/backfill.
//
//	@Summary		Add the log property to every note that lacks it
//	@Tags			logs
//	@Produce		json
//	@Success		200	{object}	ReportResponse
//	@Security		BearerAuth
//	@Router			/logs/backfill [post]
func (h *Handler) BackfillLogs(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.BackfillLogs(r.Context())
	if err != nil {
		slog.Error("backfill failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("backfill failed"))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ResetLogs handles POST /api/logs/reset.
//
//	@Summary		Remove the log property from every note
//	@Tags			logs
//	@Produce		json
//	@Success		200	{object}	ReportResponse
//	@Security		BearerAuth
//	@Router			/logs/reset [post]
func (h *Handler) ResetLogs(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.ResetLogs(r.Context())
	if err != nil {
		slog.Error("reset logs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("reset failed"))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Current settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsBody
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Validate, persist and apply settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SettingsBody	true	"Settings, partial allowed"
//	@Success		200		{object}	SettingsBody
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	s := h.svc.Settings()
	if !readJSON(w, r, &s) {
		return
	}
	updated, err := h.svc.UpdateSettings(r.Context(), s)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		} else {
			slog.Error("update settings failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
