package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	cfg "github.com/itemhub/action-analytics/config"
	"github.com/itemhub/action-analytics/internal/geo"
	"github.com/itemhub/action-analytics/internal/model"
	"github.com/itemhub/action-analytics/internal/pipeline"
	"github.com/itemhub/action-analytics/internal/store"
)

// LifecycleEvent is a platform-internal item event that cannot be derived
// from an HTTP response: on create the target's identity is not known until
// after the response, on delete it is already gone.
type LifecycleEvent string

const (
	ItemCreated LifecycleEvent = "item-created"
	ItemDeleted LifecycleEvent = "item-deleted"
)

// RequestRecord carries the by-value facts of a finished request that action
// recording needs. It crosses the response boundary, so it must not hold any
// per-request resource.
type RequestRecord struct {
	Method     string
	Path       string
	QueryIDs   []string
	Origin     string
	ClientIP   string
	StatusCode int
	Member     *model.Member
}

// RecorderService builds action records from lifecycle events and finished
// HTTP requests and persists them. Recording never blocks or fails the
// operation it describes: every failure is logged and swallowed.
type RecorderService struct {
	store  store.Store
	runner *pipeline.Runner
	geo    geo.Locator
	hosts  []cfg.Hostname
	log    *slog.Logger
}

func NewRecorderService(st store.Store, runner *pipeline.Runner, locator geo.Locator, hosts []cfg.Hostname, log *slog.Logger) *RecorderService {
	if log == nil {
		log = slog.Default()
	}
	return &RecorderService{store: st, runner: runner, geo: locator, hosts: hosts, log: log}
}

// ViewFromOrigin resolves the request's declared origin to a configured view
// name, defaulting to the unknown view.
func ViewFromOrigin(origin string, hosts []cfg.Hostname) string {
	if origin != "" {
		for _, h := range hosts {
			if strings.Contains(origin, h.Hostname) {
				return h.Name
			}
		}
	}
	return model.ViewUnknown
}

// RecordFromLifecycleEvent persists one action for an item create or delete.
// Both event kinds only happen in the builder view. A deleted item's id is
// never stored on the record itself, only inside extra: the row must not
// reference a gone item.
func (s *RecorderService) RecordFromLifecycleEvent(ctx context.Context, kind LifecycleEvent, actor *model.Member, item *model.Item) {
	var actionType model.ActionType
	switch kind {
	case ItemCreated:
		actionType = model.ActionCreate
	case ItemDeleted:
		actionType = model.ActionDelete
	default:
		s.log.Warn("recorder.unknown_lifecycle_event", slog.String("kind", string(kind)))
		return
	}

	action := &model.Action{
		MemberID:   actor.ID,
		MemberType: actor.Type,
		ItemType:   item.Type,
		ActionType: actionType,
		View:       model.ViewBuilder,
		Extra: map[string]any{
			"memberId": actor.ID.String(),
			"itemId":   item.ID.String(),
		},
	}
	if kind == ItemCreated {
		id := item.ID
		path := item.Path
		action.ItemID = &id
		action.ItemPath = &path
	}

	if err := s.insert(ctx, action); err != nil {
		s.log.Error("recorder.lifecycle_record_failed",
			slog.String("kind", string(kind)),
			slog.String("item", item.ID.String()),
			slog.Any("error", err),
		)
	}
}

// RecordFromRequest persists one action per target of a finished, successful
// platform request. Requests that failed, or that match no recognized route,
// record nothing.
func (s *RecorderService) RecordFromRequest(ctx context.Context, rec RequestRecord) {
	if rec.StatusCode < 200 || rec.StatusCode >= 300 {
		return
	}

	actionType, targets, ok := MatchItemRoute(rec.Method, rec.Path, rec.QueryIDs)
	if !ok {
		return
	}

	view := ViewFromOrigin(rec.Origin, s.hosts)
	geolocation := s.geo.Lookup(rec.ClientIP)

	for _, itemID := range targets {
		if err := s.recordForItem(ctx, rec.Member, itemID, actionType, view, geolocation); err != nil {
			s.log.Error("recorder.request_record_failed",
				slog.String("action_type", string(actionType)),
				slog.String("item", itemID.String()),
				slog.Any("error", err),
			)
		}
	}
}

// recordForItem enriches the action with the target item's type before the
// insert; both steps run as one sequence so the insert reads the fetched
// item lazily.
func (s *RecorderService) recordForItem(
	ctx context.Context,
	member *model.Member,
	itemID uuid.UUID,
	actionType model.ActionType,
	view string,
	geolocation *model.Geolocation,
) error {
	getItem := pipeline.NewTask("get-item", func(ctx context.Context, tx pgx.Tx, input any) (any, error) {
		return s.store.Item().Get(ctx, tx, input.(uuid.UUID))
	})
	getItem.Input = itemID

	insert := pipeline.NewTask("insert-action", func(ctx context.Context, tx pgx.Tx, input any) (any, error) {
		item := input.(*model.Item)
		id := item.ID
		path := item.Path
		action := &model.Action{
			MemberID:    member.ID,
			MemberType:  member.Type,
			ItemID:      &id,
			ItemPath:    &path,
			ItemType:    item.Type,
			ActionType:  actionType,
			View:        view,
			Geolocation: geolocation,
			Extra: map[string]any{
				"memberId": member.ID.String(),
				"itemId":   item.ID.String(),
			},
		}
		return s.store.Action().Insert(ctx, tx, action)
	})
	insert.InputFn = func() (any, error) { return getItem.Result, nil }

	_, err := s.runner.RunSequence(ctx, getItem, insert)
	return err
}

// DeleteMemberActions removes every action recorded for the member and
// returns the deleted rows, which may be empty.
func (s *RecorderService) DeleteMemberActions(ctx context.Context, memberID uuid.UUID) ([]*model.Action, error) {
	task := pipeline.NewTask("delete-member-actions", func(ctx context.Context, tx pgx.Tx, _ any) (any, error) {
		return s.store.Action().DeleteByMember(ctx, tx, memberID)
	})
	out, err := s.runner.RunSingle(ctx, task)
	if err != nil {
		return nil, err
	}
	return out.([]*model.Action), nil
}

// insert persists a ready-made action as a single task.
func (s *RecorderService) insert(ctx context.Context, action *model.Action) error {
	task := pipeline.NewTask("insert-action", func(ctx context.Context, tx pgx.Tx, _ any) (any, error) {
		return s.store.Action().Insert(ctx, tx, action)
	})
	_, err := s.runner.RunSingle(ctx, task)
	return err
}
