package http

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/itemhub/action-analytics/internal/app"
	"github.com/itemhub/action-analytics/internal/errors"
)

// Handler owns the HTTP surface. It translates requests into service calls
// and service errors into responses; no domain logic lives here.
type Handler struct {
	app *app.App
}

func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// GET /items/{id}?requestedSampleSize=N&view=builder
func (h *Handler) getItemAnalytics(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Validation("id", "item id must be a UUID"))
		return
	}

	opts := app.QueryOptions{}
	if raw := r.URL.Query().Get("requestedSampleSize"); raw != "" {
		// Non-numeric values fall back to the default size rather
		// than failing the request.
		if size, err := strconv.Atoi(raw); err == nil {
			opts.SampleSize = &size
		}
	}
	if view := r.URL.Query().Get("view"); view != "" {
		if !slices.Contains(h.app.Config.ViewNames(), view) {
			writeError(w, errors.Validation("view", "unknown view "+strconv.Quote(view)))
			return
		}
		opts.View = view
	}

	analytics, err := h.app.Analytics.QuerySample(r.Context(), actorFrom(r.Context()), itemID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// POST /items/{id}/export
func (h *Handler) requestExport(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Validation("id", "item id must be a UUID"))
		return
	}

	if err := h.app.Export.RequestExport(r.Context(), actorFrom(r.Context()), itemID); err != nil {
		writeError(w, err)
		return
	}
	// Accepted for asynchronous processing; the archive link arrives by
	// email.
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /members/{id}/delete
func (h *Handler) deleteMemberActions(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Validation("id", "member id must be a UUID"))
		return
	}

	actor := actorFrom(r.Context())
	if actor == nil || actor.ID != memberID {
		writeError(w, errors.Forbidden("members may only delete their own actions"))
		return
	}

	deleted, err := h.app.Recorder.DeleteMemberActions(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
