// Package storetest provides an in-memory Store implementation backing
// service and transport tests without a database.
package storetest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
	"github.com/itemhub/action-analytics/internal/store"
)

// Store is an in-memory store.Store. It keeps insertion order for actions so
// sampling assertions stay deterministic. Fields may be seeded directly
// before use; the embedded mutex only guards access through the substores.
type Store struct {
	Mu          sync.Mutex
	Actions     []*model.Action
	Items       map[uuid.UUID]*model.Item
	Members     map[uuid.UUID]*model.Member
	Memberships []*model.ItemMembership
	Receipts    []*model.ExportRequest
}

func New() *Store {
	return &Store{
		Items:   map[uuid.UUID]*model.Item{},
		Members: map[uuid.UUID]*model.Member{},
	}
}

func (f *Store) Action() store.ActionStore         { return &actions{f} }
func (f *Store) Export() store.ExportStore         { return &exports{f} }
func (f *Store) Item() store.ItemStore             { return &items{f} }
func (f *Store) Member() store.MemberStore         { return &members{f} }
func (f *Store) Membership() store.MembershipStore { return &memberships{f} }
func (f *Store) Open() error                       { return nil }
func (f *Store) Close() error                      { return nil }

// StoredActions returns a copy of the action table.
func (f *Store) StoredActions() []*model.Action {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	return append([]*model.Action{}, f.Actions...)
}

// inSubtree mirrors the ltree ancestor test: path is the node itself or a
// descendant of root.
func inSubtree(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+".")
}

type actions struct{ s *Store }

func (a *actions) Insert(_ context.Context, _ pgx.Tx, action *model.Action) (*model.Action, error) {
	a.s.Mu.Lock()
	defer a.s.Mu.Unlock()
	stored := *action
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now().UTC()
	a.s.Actions = append(a.s.Actions, &stored)
	return &stored, nil
}

func (a *actions) GetByItem(_ context.Context, _ pgx.Tx, itemPath string, filters model.ActionFilters) ([]*model.Action, error) {
	a.s.Mu.Lock()
	defer a.s.Mu.Unlock()
	out := []*model.Action{}
	for _, action := range a.s.Actions {
		if len(out) >= filters.SampleSize {
			break
		}
		if action.ItemPath == nil || !inSubtree(*action.ItemPath, itemPath) {
			continue
		}
		if filters.View != "" && action.View != filters.View {
			continue
		}
		out = append(out, action)
	}
	return out, nil
}

func (a *actions) DeleteByMember(_ context.Context, _ pgx.Tx, memberID uuid.UUID) ([]*model.Action, error) {
	a.s.Mu.Lock()
	defer a.s.Mu.Unlock()
	deleted := []*model.Action{}
	kept := a.s.Actions[:0]
	for _, action := range a.s.Actions {
		if action.MemberID == memberID {
			deleted = append(deleted, action)
			continue
		}
		kept = append(kept, action)
	}
	a.s.Actions = kept
	return deleted, nil
}

type exports struct{ s *Store }

func (e *exports) Insert(_ context.Context, _ pgx.Tx, req *model.ExportRequest) (*model.ExportRequest, error) {
	e.s.Mu.Lock()
	defer e.s.Mu.Unlock()
	stored := *req
	stored.ID = uuid.New()
	e.s.Receipts = append(e.s.Receipts, &stored)
	return &stored, nil
}

func (e *exports) GetLast(_ context.Context, _ pgx.Tx, memberID, itemID uuid.UUID) (*model.ExportRequest, error) {
	e.s.Mu.Lock()
	defer e.s.Mu.Unlock()
	var last *model.ExportRequest
	for _, r := range e.s.Receipts {
		if r.MemberID != memberID || r.ItemID != itemID {
			continue
		}
		if last == nil || r.CreatedAt.After(last.CreatedAt) {
			last = r
		}
	}
	return last, nil
}

type items struct{ s *Store }

func (i *items) Get(_ context.Context, _ pgx.Tx, id uuid.UUID) (*model.Item, error) {
	i.s.Mu.Lock()
	defer i.s.Mu.Unlock()
	item, ok := i.s.Items[id]
	if !ok {
		return nil, errors.NotFound("item " + id.String() + " not found")
	}
	return item, nil
}

func (i *items) GetDescendants(_ context.Context, _ pgx.Tx, item *model.Item) ([]*model.Item, error) {
	i.s.Mu.Lock()
	defer i.s.Mu.Unlock()
	out := []*model.Item{}
	for _, candidate := range i.s.Items {
		if candidate.ID != item.ID && inSubtree(candidate.Path, item.Path) {
			out = append(out, candidate)
		}
	}
	return out, nil
}

type members struct{ s *Store }

func (m *members) Get(_ context.Context, _ pgx.Tx, id uuid.UUID) (*model.Member, error) {
	m.s.Mu.Lock()
	defer m.s.Mu.Unlock()
	member, ok := m.s.Members[id]
	if !ok {
		return nil, errors.NotFound("member " + id.String() + " not found")
	}
	return member, nil
}

func (m *members) GetMany(_ context.Context, _ pgx.Tx, ids []uuid.UUID) ([]*model.Member, error) {
	m.s.Mu.Lock()
	defer m.s.Mu.Unlock()
	out := []*model.Member{}
	for _, id := range ids {
		if member, ok := m.s.Members[id]; ok {
			out = append(out, member)
		}
	}
	return out, nil
}

type memberships struct{ s *Store }

func (m *memberships) GetForItem(_ context.Context, _ pgx.Tx, item *model.Item) ([]*model.ItemMembership, error) {
	m.s.Mu.Lock()
	defer m.s.Mu.Unlock()
	out := []*model.ItemMembership{}
	for _, ms := range m.s.Memberships {
		if inSubtree(item.Path, ms.ItemPath) {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (m *memberships) GetInherited(_ context.Context, _ pgx.Tx, memberID uuid.UUID, item *model.Item) (*model.ItemMembership, error) {
	m.s.Mu.Lock()
	defer m.s.Mu.Unlock()
	var deepest *model.ItemMembership
	for _, ms := range m.s.Memberships {
		if ms.MemberID != memberID || !inSubtree(item.Path, ms.ItemPath) {
			continue
		}
		if deepest == nil || len(ms.ItemPath) > len(deepest.ItemPath) {
			deepest = ms
		}
	}
	return deepest, nil
}
