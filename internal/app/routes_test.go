package app

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itemhub/action-analytics/internal/model"
)

func TestMatchItemRoute(t *testing.T) {
	itemID := uuid.New()

	cases := []struct {
		name     string
		method   string
		path     string
		queryIDs []string
		want     model.ActionType
		targets  int
		ok       bool
	}{
		{name: "get item", method: "GET", path: "/items/" + itemID.String(), want: model.ActionGet, targets: 1, ok: true},
		{name: "download", method: "GET", path: "/items/" + itemID.String() + "/download", want: model.ActionDownload, targets: 1, ok: true},
		{name: "children", method: "GET", path: "/items/" + itemID.String() + "/children", want: model.ActionGetChildren, targets: 1, ok: true},
		{name: "copy single", method: "POST", path: "/items/" + itemID.String() + "/copy", want: model.ActionCopy, targets: 1, ok: true},
		{name: "move single", method: "POST", path: "/items/" + itemID.String() + "/move", want: model.ActionMove, targets: 1, ok: true},
		{name: "update single", method: "PATCH", path: "/items/" + itemID.String(), want: model.ActionUpdate, targets: 1, ok: true},
		{name: "copy multi", method: "POST", path: "/items/copy", queryIDs: []string{uuid.NewString(), uuid.NewString()}, want: model.ActionCopy, targets: 2, ok: true},
		{name: "move multi", method: "POST", path: "/items/move", queryIDs: []string{uuid.NewString()}, want: model.ActionMove, targets: 1, ok: true},
		{name: "update multi", method: "PATCH", path: "/items", queryIDs: []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}, want: model.ActionUpdate, targets: 3, ok: true},
		{name: "multi skips malformed ids", method: "POST", path: "/items/copy", queryIDs: []string{"not-a-uuid", uuid.NewString()}, want: model.ActionCopy, targets: 1, ok: true},
		{name: "multi with no valid ids", method: "POST", path: "/items/copy", queryIDs: []string{"not-a-uuid"}, ok: false},
		{name: "unknown path", method: "GET", path: "/members/" + itemID.String(), ok: false},
		{name: "wrong method", method: "DELETE", path: "/items/" + itemID.String(), ok: false},
		{name: "malformed path id", method: "GET", path: "/items/not-a-uuid", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actionType, targets, ok := MatchItemRoute(tc.method, tc.path, tc.queryIDs)
			require.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			assert.Equal(t, tc.want, actionType)
			assert.Len(t, targets, tc.targets)
		})
	}
}

func TestMatchItemRouteDownloadBeforeBareGet(t *testing.T) {
	itemID := uuid.New()

	actionType, targets, ok := MatchItemRoute("GET", "/items/"+itemID.String()+"/download", nil)
	require.True(t, ok)
	assert.Equal(t, model.ActionDownload, actionType)
	require.Len(t, targets, 1)
	assert.Equal(t, itemID, targets[0])
}
