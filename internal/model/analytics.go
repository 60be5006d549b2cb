package model

// AnalyticsMetadata describes how a sample was produced.
type AnalyticsMetadata struct {
	NumActionsRetrieved int `json:"numActionsRetrieved"`
	RequestedSampleSize int `json:"requestedSampleSize"`
}

// Analytics is the read-time composite returned by a sampling query. It is
// assembled fresh per query and never persisted.
type Analytics struct {
	Actions         []*Action         `json:"actions"`
	Item            *Item             `json:"item"`
	Descendants     []*Item           `json:"descendants"`
	Members         []*Member         `json:"members"`
	ItemMemberships []*ItemMembership `json:"itemMemberships"`
	Metadata        AnalyticsMetadata `json:"metadata"`
}

// ActionsByView buckets the sampled actions per view name. Every requested
// view gets a bucket, even an empty one; actions whose view is not in views
// are dropped.
func (a *Analytics) ActionsByView(views []string) map[string][]*Action {
	out := make(map[string][]*Action, len(views))
	for _, v := range views {
		out[v] = []*Action{}
	}
	for _, action := range a.Actions {
		if _, ok := out[action.View]; ok {
			out[action.View] = append(out[action.View], action)
		}
	}
	return out
}
