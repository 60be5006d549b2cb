package app

import (
	"context"
	"sync"
	"time"

	"github.com/itemhub/action-analytics/internal/cache"
	"github.com/itemhub/action-analytics/internal/model"
	"github.com/itemhub/action-analytics/internal/store/storetest"
)

func newFakeStore() *storetest.Store { return storetest.New() }

// fakeCache is an in-memory export queue with in-flight marks.
type fakeCache struct {
	mu       sync.Mutex
	queue    []model.ExportTask
	inFlight map[string]bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{inFlight: map[string]bool{}}
}

func (c *fakeCache) PushExportTask(_ context.Context, task model.ExportTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, task)
	return nil
}

func (c *fakeCache) PopExportTask(_ context.Context) (model.ExportTask, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return model.ExportTask{}, cache.ErrQueueEmpty
	}
	task := c.queue[0]
	c.queue = c.queue[1:]
	return task, nil
}

func (c *fakeCache) MarkExportInFlight(_ context.Context, taskID string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[taskID] {
		return false, nil
	}
	c.inFlight[taskID] = true
	return true, nil
}

func (c *fakeCache) ClearExportInFlight(_ context.Context, taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, taskID)
	return nil
}

func (c *fakeCache) Close() error { return nil }

func (c *fakeCache) queued() []model.ExportTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ExportTask{}, c.queue...)
}

// fakeObjects is an in-memory object store keyed by object path.
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (o *fakeObjects) Upload(_ context.Context, _ string, objectPath string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[objectPath] = []byte("zip")
	return nil
}

func (o *fakeObjects) Exists(_ context.Context, objectPath string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[objectPath]
	return ok, nil
}

func (o *fakeObjects) PresignDownload(_ context.Context, objectPath string, _ time.Duration) (string, error) {
	return "https://storage.test/" + objectPath, nil
}

func (o *fakeObjects) Delete(_ context.Context, objectPath string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, objectPath)
	return nil
}

// fakeMailer records every sent export mail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to   string
	item string
	link string
}

func (m *fakeMailer) SendExportEmail(_ context.Context, to, itemName, downloadLink string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, item: itemName, link: downloadLink})
	return nil
}

func (m *fakeMailer) mails() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail{}, m.sent...)
}
