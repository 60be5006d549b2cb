package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	cfg "github.com/itemhub/action-analytics/config"
	"github.com/itemhub/action-analytics/internal/cache"
	"github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/mailer"
	"github.com/itemhub/action-analytics/internal/model"
	"github.com/itemhub/action-analytics/internal/pipeline"
	"github.com/itemhub/action-analytics/internal/storage"
	"github.com/itemhub/action-analytics/internal/store"
)

// inFlightTTL bounds how long a queued export suppresses duplicates when its
// worker dies before clearing the mark.
const inFlightTTL = 30 * time.Minute

// ExportService drives the export state machine: receipt check, background
// archive generation, upload, receipt insert and mail dispatch.
type ExportService struct {
	store     store.Store
	cache     cache.Cache
	storage   storage.ObjectStorage
	mailer    mailer.Mailer
	analytics *AnalyticsService
	runner    *pipeline.Runner
	config    *cfg.AppConfig
	log       *slog.Logger

	// now is swapped by tests.
	now func() time.Time
}

func NewExportService(
	st store.Store,
	c cache.Cache,
	objects storage.ObjectStorage,
	m mailer.Mailer,
	analytics *AnalyticsService,
	runner *pipeline.Runner,
	config *cfg.AppConfig,
	log *slog.Logger,
) *ExportService {
	if log == nil {
		log = slog.Default()
	}
	return &ExportService{
		store:     st,
		cache:     c,
		storage:   objects,
		mailer:    m,
		analytics: analytics,
		runner:    runner,
		config:    config,
		log:       log,
		now:       time.Now,
	}
}

// RequestExport decides between reusing a previous archive and scheduling a
// new generation, then returns. Generation itself runs on the worker pool
// after the triggering response has been sent.
//
// A receipt within the cool-down window whose archive still exists is
// reused: the link is mailed again and nothing is regenerated. A receipt
// whose archive disappeared falls through to regeneration instead of
// failing.
func (s *ExportService) RequestExport(ctx context.Context, member *model.Member, itemID uuid.UUID) error {
	getItem := pipeline.NewTask("get-item", func(ctx context.Context, tx pgx.Tx, _ any) (any, error) {
		return s.store.Item().Get(ctx, tx, itemID)
	})

	checkAdmin := pipeline.NewTask("check-admin", func(ctx context.Context, tx pgx.Tx, input any) (any, error) {
		item := input.(*model.Item)
		membership, err := s.store.Membership().GetInherited(ctx, tx, member.ID, item)
		if err != nil {
			return nil, err
		}
		if !membership.AllowsAdmin() {
			return nil, errors.Forbidden("member cannot administrate item " + item.ID.String())
		}
		return membership, nil
	})
	checkAdmin.InputFn = func() (any, error) { return getItem.Result, nil }

	getReceipt := pipeline.NewTask("get-last-export-request", func(ctx context.Context, tx pgx.Tx, _ any) (any, error) {
		return s.store.Export().GetLast(ctx, tx, member.ID, itemID)
	})

	if _, err := s.runner.RunSequence(ctx, getItem, checkAdmin, getReceipt); err != nil {
		return err
	}
	item := getItem.Result.(*model.Item)

	if receipt, ok := getReceipt.Result.(*model.ExportRequest); ok && receipt != nil {
		if s.now().Sub(receipt.CreatedAt) < s.config.Export.Cooldown {
			err := s.resendExisting(ctx, member, item, receipt)
			if err == nil {
				return nil
			}
			if !errors.IsArchiveNotFound(err) {
				return err
			}
			// The receipt points at a gone artifact; fall through and
			// regenerate instead of surfacing the fault.
			s.log.Warn("export.archive_missing",
				slog.String("item", itemID.String()),
				slog.Any("error", err))
		}
	}

	task := model.NewExportTask(member.ID, itemID, s.now())
	won, err := s.cache.MarkExportInFlight(ctx, task.TaskID, inFlightTTL)
	if err != nil {
		return errors.Internal("export.mark_in_flight", err)
	}
	if !won {
		// Another request for the same member and item is already queued.
		return nil
	}
	if err := s.cache.PushExportTask(ctx, task); err != nil {
		_ = s.cache.ClearExportInFlight(ctx, task.TaskID)
		return errors.Internal("export.enqueue", err)
	}
	return nil
}

// resendExisting re-mails the link of a still-valid receipt. An archive gone
// from storage comes back as an archive-not-found error.
func (s *ExportService) resendExisting(ctx context.Context, member *model.Member, item *model.Item, receipt *model.ExportRequest) error {
	objectPath := model.ArchiveObjectPath(item.ID, receipt.CreatedAt)
	exists, err := s.storage.Exists(ctx, objectPath)
	if err != nil {
		return errors.Internal("export.check_archive", err)
	}
	if !exists {
		return errors.ArchiveNotFound(objectPath)
	}
	// Mail goes out after the response, detached from the request context.
	go s.sendDownloadLink(context.WithoutCancel(ctx), member, item, receipt.CreatedAt)
	return nil
}

// GenerateExport performs one queued export end to end: full-sample
// analytics, archive on temporary storage, upload, receipt, mail. Temporary
// files are removed on every path. Called by the worker pool.
func (s *ExportService) GenerateExport(ctx context.Context, task model.ExportTask) error {
	// The mark must come off even when the worker context is already gone,
	// otherwise a shutdown mid-generation blocks re-exports until the TTL.
	clearCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := s.cache.ClearExportInFlight(clearCtx, task.TaskID); err != nil {
			s.log.Warn("export.clear_in_flight_failed",
				slog.String("task", task.TaskID), slog.Any("error", err))
		}
	}()

	getMember := pipeline.NewTask("get-member", func(ctx context.Context, tx pgx.Tx, _ any) (any, error) {
		return s.store.Member().Get(ctx, tx, task.MemberID)
	})
	getPrevReceipt := pipeline.NewTask("get-previous-export-request", func(ctx context.Context, tx pgx.Tx, _ any) (any, error) {
		return s.store.Export().GetLast(ctx, tx, task.MemberID, task.ItemID)
	})
	if _, err := s.runner.RunSequence(ctx, getMember, getPrevReceipt); err != nil {
		return err
	}
	member := getMember.Result.(*model.Member)

	maxSize := model.MaxSampleSize
	analytics, err := s.analytics.QuerySample(ctx, member, task.ItemID, QueryOptions{SampleSize: &maxSize})
	if err != nil {
		return err
	}
	if len(analytics.Actions) == 0 {
		return errors.EmptyDataset(task.ItemID.String())
	}

	generatedAt := s.now().UTC().Truncate(time.Second)

	archivePath, cleanup, err := BuildArchive(s.config.Export.TmpDir, analytics, s.config.ViewNames(), generatedAt)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return err
	}

	objectPath := model.ArchiveObjectPath(task.ItemID, generatedAt)
	if err := s.storage.Upload(ctx, archivePath, objectPath); err != nil {
		return errors.Internal("export.upload_archive", err)
	}

	insertReceipt := pipeline.NewTask("insert-export-request", func(ctx context.Context, tx pgx.Tx, _ any) (any, error) {
		return s.store.Export().Insert(ctx, tx, &model.ExportRequest{
			MemberID:  task.MemberID,
			ItemID:    task.ItemID,
			CreatedAt: generatedAt,
		})
	})
	if _, err := s.runner.RunSingle(ctx, insertReceipt); err != nil {
		return err
	}

	// The fresh archive supersedes the previous one; reclaim the storage.
	if prev, ok := getPrevReceipt.Result.(*model.ExportRequest); ok && prev != nil {
		oldPath := model.ArchiveObjectPath(task.ItemID, prev.CreatedAt)
		if oldPath != objectPath {
			if err := s.storage.Delete(ctx, oldPath); err != nil {
				s.log.Warn("export.delete_superseded_failed",
					slog.String("object_path", oldPath), slog.Any("error", err))
			}
		}
	}

	s.sendDownloadLink(ctx, member, analytics.Item, generatedAt)
	return nil
}

// sendDownloadLink presigns the archive and mails it. Mail faults are logged
// and swallowed; they never fail the export.
func (s *ExportService) sendDownloadLink(ctx context.Context, member *model.Member, item *model.Item, generatedAt time.Time) {
	objectPath := model.ArchiveObjectPath(item.ID, generatedAt)

	link, err := s.storage.PresignDownload(ctx, objectPath, s.config.Export.LinkTTL)
	if err != nil {
		s.log.Error("export.presign_failed",
			slog.String("object_path", objectPath), slog.Any("error", err))
		return
	}

	expiresInDays := int(s.config.Export.LinkTTL.Hours() / 24)
	if err := s.mailer.SendExportEmail(ctx, member.Email, item.Name, link, expiresInDays); err != nil {
		s.log.Warn("export.mail_failed",
			slog.String("to", member.Email),
			slog.String("link", link),
			slog.Any("error", err))
	}
}
