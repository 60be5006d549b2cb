package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/itemhub/action-analytics/internal/app"
	"github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
	"github.com/itemhub/action-analytics/internal/netutil"
)

type contextKey string

const actorKey contextKey = "actor"

// MemberHeader identifies the acting member on every authenticated request.
// The platform gateway sets it after session validation; requests reaching
// this service without it are rejected.
const MemberHeader = "X-Member-Id"

// actorFrom returns the authenticated member stored by Authenticate.
func actorFrom(ctx context.Context) *model.Member {
	member, _ := ctx.Value(actorKey).(*model.Member)
	return member
}

// Authenticate resolves the X-Member-Id header to a member and stores it in
// the request context.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(MemberHeader)
		if raw == "" {
			writeError(w, errors.Unauthorized("missing member header"))
			return
		}
		memberID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, errors.Validation(MemberHeader, "member id must be a UUID"))
			return
		}
		member, err := h.app.Store.Member().Get(r.Context(), nil, memberID)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, member)))
	})
}

// RecordActions observes the finished request and hands it to the recorder.
// Recording runs detached from the response so a slow insert never delays
// the client, and a failed one never breaks the request.
func (h *Handler) RecordActions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		rec := app.RequestRecord{
			Method:     r.Method,
			Path:       r.URL.Path,
			QueryIDs:   r.URL.Query()["id"],
			Origin:     r.Header.Get("Origin"),
			ClientIP:   netutil.ClientIP(r),
			StatusCode: ww.Status(),
			Member:     actorFrom(r.Context()),
		}
		go h.app.Recorder.RecordFromRequest(context.WithoutCancel(r.Context()), rec)
	})
}
