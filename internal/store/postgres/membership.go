package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	dberr "github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
)

// Membership reads the platform's item_membership table.
type Membership struct {
	storage *Store
}

var membershipColumns = []string{"id", "member_id", "item_path", "permission", "created_at"}

func (m *Membership) GetForItem(ctx context.Context, tx pgx.Tx, item *model.Item) ([]*model.ItemMembership, error) {
	db, err := m.storage.db(tx)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_item_memberships", err)
	}

	query := psql.
		Select(membershipColumns...).
		From("item_membership").
		Where(sq.Expr("item_path @> ?::ltree", item.Path)).
		OrderBy("created_at ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_item_memberships", err)
	}

	rows, err := db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_item_memberships", err)
	}
	defer rows.Close()

	return scanMemberships(rows, "get_item_memberships")
}

func (m *Membership) GetInherited(ctx context.Context, tx pgx.Tx, memberID uuid.UUID, item *model.Item) (*model.ItemMembership, error) {
	db, err := m.storage.db(tx)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_inherited_membership", err)
	}

	// The closest grant on the path wins; deeper grants override ancestors.
	query := psql.
		Select(membershipColumns...).
		From("item_membership").
		Where(sq.Eq{"member_id": memberID}).
		Where(sq.Expr("item_path @> ?::ltree", item.Path)).
		OrderBy("nlevel(item_path) DESC").
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_inherited_membership", err)
	}

	var record model.ItemMembership
	err = db.QueryRow(ctx, sqlStr, args...).Scan(
		&record.ID,
		&record.MemberID,
		&record.ItemPath,
		&record.Permission,
		&record.CreatedAt,
	)
	if err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dberr.NewDBInternalError("get_inherited_membership", err)
	}
	return &record, nil
}

func scanMemberships(rows pgx.Rows, op string) ([]*model.ItemMembership, error) {
	memberships := []*model.ItemMembership{}
	for rows.Next() {
		var record model.ItemMembership
		err := rows.Scan(
			&record.ID,
			&record.MemberID,
			&record.ItemPath,
			&record.Permission,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, dberr.NewDBInternalError(op, err)
		}
		memberships = append(memberships, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError(op, err)
	}
	return memberships, nil
}
