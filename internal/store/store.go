package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itemhub/action-analytics/internal/model"
)

// Store aggregates the persistence contracts. Action and Export cover the
// tables owned by this service; Item, Member and Membership are the read-only
// collaborator boundary into the platform's own tables.
//
// Every method accepts the transaction of the enclosing pipeline task; a nil
// tx falls back to the shared pool.
type Store interface {
	Action() ActionStore
	Export() ExportStore
	Item() ItemStore
	Member() MemberStore
	Membership() MembershipStore

	// ------------ Database Management ------------ //
	Open() error
	Close() error
}

// ActionStore persists and samples immutable action records.
type ActionStore interface {
	// Insert assigns id and createdAt server-side and returns the stored row.
	Insert(ctx context.Context, tx pgx.Tx, action *model.Action) (*model.Action, error)
	// GetByItem samples actions uniformly at random within the subtree rooted
	// at itemPath, up to filters.SampleSize, optionally restricted to one view.
	GetByItem(ctx context.Context, tx pgx.Tx, itemPath string, filters model.ActionFilters) ([]*model.Action, error)
	// DeleteByMember removes all of a member's actions and returns the
	// deleted rows.
	DeleteByMember(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) ([]*model.Action, error)
}

// ExportStore persists export receipts.
type ExportStore interface {
	Insert(ctx context.Context, tx pgx.Tx, req *model.ExportRequest) (*model.ExportRequest, error)
	// GetLast returns the most recent receipt for the member and item, or nil
	// when none exists.
	GetLast(ctx context.Context, tx pgx.Tx, memberID, itemID uuid.UUID) (*model.ExportRequest, error)
}

// ItemStore reads content items from the platform.
type ItemStore interface {
	Get(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Item, error)
	GetDescendants(ctx context.Context, tx pgx.Tx, item *model.Item) ([]*model.Item, error)
}

// MemberStore reads member records from the platform.
type MemberStore interface {
	Get(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Member, error)
	GetMany(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]*model.Member, error)
}

// MembershipStore reads membership grants from the platform.
type MembershipStore interface {
	// GetForItem returns the memberships attached to the item's subtree path.
	GetForItem(ctx context.Context, tx pgx.Tx, item *model.Item) ([]*model.ItemMembership, error)
	// GetInherited returns the member's effective membership over the item,
	// walking ancestor paths, or nil when the member holds none.
	GetInherited(ctx context.Context, tx pgx.Tx, memberID uuid.UUID, item *model.Item) (*model.ItemMembership, error)
}

// Pooler is implemented by stores backed by a pgx pool; the pipeline runner
// uses it to open per-task transactions.
type Pooler interface {
	Database() (*pgxpool.Pool, error)
}
