package app

import (
	"regexp"

	"github.com/google/uuid"

	"github.com/itemhub/action-analytics/internal/model"
)

// itemRoute binds one platform endpoint to the action type it records.
// Multi-target routes carry their targets as ?id= query values instead of a
// path segment.
type itemRoute struct {
	method      string
	pattern     *regexp.Regexp
	actionType  model.ActionType
	multiTarget bool
}

const idPattern = `([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})`

// itemRoutes is matched in declared order; more specific paths come first so
// "/items/{id}/download" never falls through to the bare item route.
var itemRoutes = []itemRoute{
	{"GET", regexp.MustCompile(`^/items/` + idPattern + `/download$`), model.ActionDownload, false},
	{"GET", regexp.MustCompile(`^/items/` + idPattern + `/children$`), model.ActionGetChildren, false},
	{"GET", regexp.MustCompile(`^/items/` + idPattern + `$`), model.ActionGet, false},
	{"POST", regexp.MustCompile(`^/items/` + idPattern + `/copy$`), model.ActionCopy, false},
	{"POST", regexp.MustCompile(`^/items/copy$`), model.ActionCopy, true},
	{"POST", regexp.MustCompile(`^/items/` + idPattern + `/move$`), model.ActionMove, false},
	{"POST", regexp.MustCompile(`^/items/move$`), model.ActionMove, true},
	{"PATCH", regexp.MustCompile(`^/items/` + idPattern + `$`), model.ActionUpdate, false},
	{"PATCH", regexp.MustCompile(`^/items$`), model.ActionUpdate, true},
}

// MatchItemRoute resolves a request's method and path to the action type it
// should record and the target item ids. queryIDs supplies the targets of
// multi-target variants. ok is false when no route matches or no valid
// target id could be extracted.
func MatchItemRoute(method, path string, queryIDs []string) (model.ActionType, []uuid.UUID, bool) {
	for _, route := range itemRoutes {
		if route.method != method {
			continue
		}
		m := route.pattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}

		if !route.multiTarget {
			id, err := uuid.Parse(m[1])
			if err != nil {
				return "", nil, false
			}
			return route.actionType, []uuid.UUID{id}, true
		}

		ids := make([]uuid.UUID, 0, len(queryIDs))
		for _, raw := range queryIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return "", nil, false
		}
		return route.actionType, ids, true
	}
	return "", nil, false
}
