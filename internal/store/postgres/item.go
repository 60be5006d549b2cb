package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	dberr "github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
)

// Item reads the platform's item table. The service never writes it.
type Item struct {
	storage *Store
}

var itemColumns = []string{"id", "name", "type", "path", "creator", "created_at", "updated_at"}

func (i *Item) Get(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Item, error) {
	db, err := i.storage.db(tx)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_item", err)
	}

	query := psql.
		Select(itemColumns...).
		From("item").
		Where(sq.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_item", err)
	}

	var record model.Item
	err = db.QueryRow(ctx, sqlStr, args...).Scan(
		&record.ID,
		&record.Name,
		&record.Type,
		&record.Path,
		&record.CreatorID,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			return nil, dberr.NotFound("item " + id.String() + " not found")
		}
		return nil, dberr.NewDBInternalError("get_item", err)
	}
	return &record, nil
}

func (i *Item) GetDescendants(ctx context.Context, tx pgx.Tx, item *model.Item) ([]*model.Item, error) {
	db, err := i.storage.db(tx)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_descendants", err)
	}

	query := psql.
		Select(itemColumns...).
		From("item").
		Where(sq.Expr("path <@ ?::ltree", item.Path)).
		Where(sq.NotEq{"id": item.ID}).
		OrderBy("path ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_descendants", err)
	}

	rows, err := db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_descendants", err)
	}
	defer rows.Close()

	items := []*model.Item{}
	for rows.Next() {
		var record model.Item
		err := rows.Scan(
			&record.ID,
			&record.Name,
			&record.Type,
			&record.Path,
			&record.CreatorID,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, dberr.NewDBInternalError("get_descendants", err)
		}
		items = append(items, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError("get_descendants", err)
	}
	return items, nil
}
