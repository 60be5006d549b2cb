package http

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itemhub/action-analytics/internal/errors"
)

func TestWriteErrorMapsAppErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantID     string
	}{
		{name: "validation", err: errors.Validation("view", "unknown view"), wantStatus: 400, wantID: "action_analytics.validation"},
		{name: "forbidden", err: errors.Forbidden("nope"), wantStatus: 403, wantID: "action_analytics.forbidden"},
		{name: "not found", err: errors.NotFound("gone"), wantStatus: 404, wantID: "action_analytics.not_found"},
		{name: "unauthorized", err: errors.Unauthorized("who"), wantStatus: 401, wantID: "action_analytics.unauthorized"},
		{name: "plain error becomes internal", err: assert.AnError, wantStatus: 500, wantID: "action_analytics.internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantID, body["id"])
		})
	}
}
