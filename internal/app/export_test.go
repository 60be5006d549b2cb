package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/itemhub/action-analytics/config"
	"github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
	"github.com/itemhub/action-analytics/internal/pipeline"
	"github.com/itemhub/action-analytics/internal/store/storetest"
)

type exportFixture struct {
	svc     *ExportService
	store   *storetest.Store
	cache   *fakeCache
	objects *fakeObjects
	mailer  *fakeMailer
	now     time.Time
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()

	st := newFakeStore()
	queue := newFakeCache()
	objects := newFakeObjects()
	mail := &fakeMailer{}
	runner := pipeline.NewRunner(nil, nil)
	analytics := NewAnalyticsService(st, runner, nil)

	conf := &cfg.AppConfig{
		Export: &cfg.ExportConfig{
			Workers:  1,
			Cooldown: 24 * time.Hour,
			TmpDir:   t.TempDir(),
			LinkTTL:  7 * 24 * time.Hour,
		},
		Hosts: testHosts,
	}

	svc := NewExportService(st, queue, objects, mail, analytics, runner, conf, nil)
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	return &exportFixture{svc: svc, store: st, cache: queue, objects: objects, mailer: mail, now: fixed}
}

func TestRequestExportQueuesTask(t *testing.T) {
	f := newExportFixture(t)
	admin, root := seedTree(t, f.store)

	require.NoError(t, f.svc.RequestExport(context.Background(), admin, root.ID))

	queued := f.cache.queued()
	require.Len(t, queued, 1)
	assert.Equal(t, admin.ID, queued[0].MemberID)
	assert.Equal(t, root.ID, queued[0].ItemID)
	assert.Empty(t, f.mailer.mails())
}

func TestRequestExportDeduplicatesInFlight(t *testing.T) {
	f := newExportFixture(t)
	admin, root := seedTree(t, f.store)

	require.NoError(t, f.svc.RequestExport(context.Background(), admin, root.ID))
	require.NoError(t, f.svc.RequestExport(context.Background(), admin, root.ID))

	assert.Len(t, f.cache.queued(), 1)
}

func TestRequestExportReusesFreshArchive(t *testing.T) {
	f := newExportFixture(t)
	admin, root := seedTree(t, f.store)

	// A receipt one hour old whose archive still exists.
	generatedAt := f.now.Add(-time.Hour)
	f.store.Receipts = append(f.store.Receipts, &model.ExportRequest{
		ID: uuid.New(), MemberID: admin.ID, ItemID: root.ID, CreatedAt: generatedAt,
	})
	objectPath := model.ArchiveObjectPath(root.ID, generatedAt)
	require.NoError(t, f.objects.Upload(context.Background(), "", objectPath))

	require.NoError(t, f.svc.RequestExport(context.Background(), admin, root.ID))

	assert.Empty(t, f.cache.queued())
	require.Eventually(t, func() bool {
		return len(f.mailer.mails()) == 1
	}, time.Second, 5*time.Millisecond, "re-sent link should be mailed")
	mails := f.mailer.mails()
	assert.Equal(t, admin.Email, mails[0].to)
	assert.Contains(t, mails[0].link, objectPath)
}

// channelMailer hands each mail over an unbuffered channel, so a send only
// completes once the test receives it.
type channelMailer struct {
	ch chan sentMail
}

func (m *channelMailer) SendExportEmail(_ context.Context, to, itemName, downloadLink string, _ int) error {
	m.ch <- sentMail{to: to, item: itemName, link: downloadLink}
	return nil
}

func TestRequestExportReuseMailsAfterReturn(t *testing.T) {
	f := newExportFixture(t)
	admin, root := seedTree(t, f.store)

	generatedAt := f.now.Add(-time.Hour)
	f.store.Receipts = append(f.store.Receipts, &model.ExportRequest{
		ID: uuid.New(), MemberID: admin.ID, ItemID: root.ID, CreatedAt: generatedAt,
	})
	objectPath := model.ArchiveObjectPath(root.ID, generatedAt)
	require.NoError(t, f.objects.Upload(context.Background(), "", objectPath))

	mail := &channelMailer{ch: make(chan sentMail)}
	f.svc.mailer = mail

	// Nobody is receiving yet; a synchronous dispatch could not return.
	require.NoError(t, f.svc.RequestExport(context.Background(), admin, root.ID))

	select {
	case sent := <-mail.ch:
		assert.Equal(t, admin.Email, sent.to)
		assert.Contains(t, sent.link, objectPath)
	case <-time.After(time.Second):
		t.Fatal("download link was never mailed")
	}
}

func TestRequestExportRegeneratesWhenArchiveGone(t *testing.T) {
	f := newExportFixture(t)
	admin, root := seedTree(t, f.store)

	// Fresh receipt, but nothing in storage.
	f.store.Receipts = append(f.store.Receipts, &model.ExportRequest{
		ID: uuid.New(), MemberID: admin.ID, ItemID: root.ID, CreatedAt: f.now.Add(-time.Hour),
	})

	require.NoError(t, f.svc.RequestExport(context.Background(), admin, root.ID))

	assert.Len(t, f.cache.queued(), 1)
	assert.Empty(t, f.mailer.mails())
}

func TestRequestExportIgnoresExpiredReceipt(t *testing.T) {
	f := newExportFixture(t)
	admin, root := seedTree(t, f.store)

	generatedAt := f.now.Add(-48 * time.Hour)
	f.store.Receipts = append(f.store.Receipts, &model.ExportRequest{
		ID: uuid.New(), MemberID: admin.ID, ItemID: root.ID, CreatedAt: generatedAt,
	})
	require.NoError(t, f.objects.Upload(context.Background(), "", model.ArchiveObjectPath(root.ID, generatedAt)))

	require.NoError(t, f.svc.RequestExport(context.Background(), admin, root.ID))

	assert.Len(t, f.cache.queued(), 1)
	assert.Empty(t, f.mailer.mails())
}

func TestRequestExportForbiddenWithoutAdmin(t *testing.T) {
	f := newExportFixture(t)
	_, root := seedTree(t, f.store)

	reader := &model.Member{ID: uuid.New(), Email: "reader@example.org"}
	f.store.Members[reader.ID] = reader

	err := f.svc.RequestExport(context.Background(), reader, root.ID)
	require.Error(t, err)
	assert.Equal(t, 403, errors.AsAppError(err).StatusCode)
	assert.Empty(t, f.cache.queued())
}

func TestGenerateExportEndToEnd(t *testing.T) {
	f := newExportFixture(t)
	admin, root := seedTree(t, f.store)

	task := model.NewExportTask(admin.ID, root.ID, f.now)
	won, err := f.cache.MarkExportInFlight(context.Background(), task.TaskID, time.Minute)
	require.NoError(t, err)
	require.True(t, won)

	require.NoError(t, f.svc.GenerateExport(context.Background(), task))

	objectPath := model.ArchiveObjectPath(root.ID, f.now)
	exists, err := f.objects.Exists(context.Background(), objectPath)
	require.NoError(t, err)
	assert.True(t, exists, "archive should be uploaded at the receipt-derived path")

	require.Len(t, f.store.Receipts, 1)
	assert.Equal(t, admin.ID, f.store.Receipts[0].MemberID)
	assert.Equal(t, root.ID, f.store.Receipts[0].ItemID)

	mails := f.mailer.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, admin.Email, mails[0].to)
	assert.Equal(t, root.Name, mails[0].item)
	assert.Contains(t, mails[0].link, objectPath)

	// The in-flight mark is gone, so a fresh request can queue again.
	won, err = f.cache.MarkExportInFlight(context.Background(), task.TaskID, time.Minute)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestGenerateExportDeletesSupersededArchive(t *testing.T) {
	f := newExportFixture(t)
	admin, root := seedTree(t, f.store)

	// An older export round left a receipt and its archive behind.
	previousAt := f.now.Add(-48 * time.Hour)
	f.store.Receipts = append(f.store.Receipts, &model.ExportRequest{
		ID: uuid.New(), MemberID: admin.ID, ItemID: root.ID, CreatedAt: previousAt,
	})
	oldPath := model.ArchiveObjectPath(root.ID, previousAt)
	require.NoError(t, f.objects.Upload(context.Background(), "", oldPath))

	task := model.NewExportTask(admin.ID, root.ID, f.now)
	require.NoError(t, f.svc.GenerateExport(context.Background(), task))

	exists, err := f.objects.Exists(context.Background(), model.ArchiveObjectPath(root.ID, f.now))
	require.NoError(t, err)
	assert.True(t, exists)

	gone, err := f.objects.Exists(context.Background(), oldPath)
	require.NoError(t, err)
	assert.False(t, gone, "superseded archive should be removed")
}

// cancelAwareCache fails the in-flight clear when the caller's context is
// already done, the way a real network round trip would.
type cancelAwareCache struct {
	*fakeCache
}

func (c *cancelAwareCache) ClearExportInFlight(ctx context.Context, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.fakeCache.ClearExportInFlight(ctx, taskID)
}

func TestGenerateExportClearsInFlightAfterCancel(t *testing.T) {
	f := newExportFixture(t)
	admin, root := seedTree(t, f.store)
	f.svc.cache = &cancelAwareCache{fakeCache: f.cache}

	task := model.NewExportTask(admin.ID, root.ID, f.now)
	won, err := f.cache.MarkExportInFlight(context.Background(), task.TaskID, time.Minute)
	require.NoError(t, err)
	require.True(t, won)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = f.svc.GenerateExport(ctx, task)

	// Whatever the run outcome, the mark must not outlive it.
	won, err = f.cache.MarkExportInFlight(context.Background(), task.TaskID, time.Minute)
	require.NoError(t, err)
	assert.True(t, won, "in-flight mark should be cleared despite the canceled context")
}

func TestGenerateExportEmptyDataset(t *testing.T) {
	f := newExportFixture(t)

	admin := &model.Member{ID: uuid.New(), Email: "anna@example.org"}
	f.store.Members[admin.ID] = admin
	root := &model.Item{ID: uuid.New(), Name: "empty", Type: "folder", Path: "empty_node"}
	f.store.Items[root.ID] = root
	f.store.Memberships = []*model.ItemMembership{
		{ID: uuid.New(), MemberID: admin.ID, ItemPath: root.Path, Permission: model.PermissionAdmin},
	}

	task := model.NewExportTask(admin.ID, root.ID, f.now)
	err := f.svc.GenerateExport(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.IsEmptyDataset(err))

	exists, _ := f.objects.Exists(context.Background(), model.ArchiveObjectPath(root.ID, f.now))
	assert.False(t, exists)
	assert.Empty(t, f.store.Receipts)
	assert.Empty(t, f.mailer.mails())
}
