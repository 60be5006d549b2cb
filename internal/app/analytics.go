package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
	"github.com/itemhub/action-analytics/internal/pipeline"
	"github.com/itemhub/action-analytics/internal/store"
)

// QueryOptions narrow a sampling query. SampleSize nil means the caller sent
// none (or sent something non-numeric) and gets the default.
type QueryOptions struct {
	SampleSize *int
	View       string
}

// ClampSampleSize resolves the effective sample size. Absent, non-integer
// and negative requests fall back to the default; anything above the maximum
// is clamped to it.
func ClampSampleSize(requested *int) int {
	if requested == nil {
		return model.DefaultSampleSize
	}
	size := *requested
	if size < model.MinSampleSize {
		return model.DefaultSampleSize
	}
	if size > model.MaxSampleSize {
		return model.MaxSampleSize
	}
	return size
}

// AnalyticsService runs the bounded-sampling query and assembles the
// composite analytics object.
type AnalyticsService struct {
	store  store.Store
	runner *pipeline.Runner
	log    *slog.Logger
}

func NewAnalyticsService(st store.Store, runner *pipeline.Runner, log *slog.Logger) *AnalyticsService {
	if log == nil {
		log = slog.Default()
	}
	return &AnalyticsService{store: st, runner: runner, log: log}
}

// QuerySample samples the item's subtree actions and composes the full
// analytics object. The actor must hold administrator permission on the
// item; the check runs before the sample query and aborts the sequence as a
// forbidden error when it fails.
func (s *AnalyticsService) QuerySample(ctx context.Context, actor *model.Member, itemID uuid.UUID, opts QueryOptions) (*model.Analytics, error) {
	sampleSize := ClampSampleSize(opts.SampleSize)

	getItem := pipeline.NewTask("get-item", func(ctx context.Context, tx pgx.Tx, _ any) (any, error) {
		return s.store.Item().Get(ctx, tx, itemID)
	})

	checkAdmin := pipeline.NewTask("check-admin", func(ctx context.Context, tx pgx.Tx, input any) (any, error) {
		item := input.(*model.Item)
		membership, err := s.store.Membership().GetInherited(ctx, tx, actor.ID, item)
		if err != nil {
			return nil, err
		}
		if !membership.AllowsAdmin() {
			return nil, errors.Forbidden("member cannot administrate item " + item.ID.String())
		}
		return membership, nil
	})
	checkAdmin.InputFn = func() (any, error) { return getItem.Result, nil }

	getMemberships := pipeline.NewTask("get-memberships", func(ctx context.Context, tx pgx.Tx, input any) (any, error) {
		return s.store.Membership().GetForItem(ctx, tx, input.(*model.Item))
	})
	getMemberships.InputFn = func() (any, error) { return getItem.Result, nil }

	getMembers := pipeline.NewTask("get-members", func(ctx context.Context, tx pgx.Tx, input any) (any, error) {
		return s.store.Member().GetMany(ctx, tx, input.([]uuid.UUID))
	})
	getMembers.InputFn = func() (any, error) {
		memberships := getMemberships.Result.([]*model.ItemMembership)
		return distinctMemberIDs(memberships), nil
	}

	getDescendants := pipeline.NewTask("get-descendants", func(ctx context.Context, tx pgx.Tx, input any) (any, error) {
		return s.store.Item().GetDescendants(ctx, tx, input.(*model.Item))
	})
	getDescendants.InputFn = func() (any, error) { return getItem.Result, nil }

	getActions := pipeline.NewTask("get-actions", func(ctx context.Context, tx pgx.Tx, input any) (any, error) {
		return s.store.Action().GetByItem(ctx, tx, input.(string), model.ActionFilters{
			SampleSize: sampleSize,
			View:       opts.View,
		})
	})
	getActions.InputFn = func() (any, error) {
		return getItem.Result.(*model.Item).Path, nil
	}
	// The sequence's final output is the composite assembled from the
	// sibling tasks' results, evaluated once all of them ran.
	getActions.ResultFn = func() any {
		actions := getActions.Result.([]*model.Action)
		return &model.Analytics{
			Actions:         actions,
			Item:            getItem.Result.(*model.Item),
			Descendants:     getDescendants.Result.([]*model.Item),
			Members:         getMembers.Result.([]*model.Member),
			ItemMemberships: getMemberships.Result.([]*model.ItemMembership),
			Metadata: model.AnalyticsMetadata{
				NumActionsRetrieved: len(actions),
				RequestedSampleSize: sampleSize,
			},
		}
	}

	out, err := s.runner.RunSequence(ctx,
		getItem,
		checkAdmin,
		getMemberships,
		getMembers,
		getDescendants,
		getActions,
	)
	if err != nil {
		return nil, err
	}
	return out.(*model.Analytics), nil
}

func distinctMemberIDs(memberships []*model.ItemMembership) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(memberships))
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		if _, ok := seen[m.MemberID]; ok {
			continue
		}
		seen[m.MemberID] = struct{}{}
		ids = append(ids, m.MemberID)
	}
	return ids
}
