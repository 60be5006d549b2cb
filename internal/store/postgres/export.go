package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	dberr "github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
)

type Export struct {
	storage *Store
}

func (e *Export) Insert(ctx context.Context, tx pgx.Tx, req *model.ExportRequest) (*model.ExportRequest, error) {
	db, err := e.storage.db(tx)
	if err != nil {
		return nil, dberr.NewDBInternalError("insert_export_request", err)
	}

	query := `
		INSERT INTO export_request (member_id, item_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	stored := *req
	err = db.QueryRow(ctx, query, req.MemberID, req.ItemID, req.CreatedAt).Scan(&stored.ID)
	if err != nil {
		return nil, dberr.NewDBInternalError("insert_export_request", err)
	}
	return &stored, nil
}

func (e *Export) GetLast(ctx context.Context, tx pgx.Tx, memberID, itemID uuid.UUID) (*model.ExportRequest, error) {
	db, err := e.storage.db(tx)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_last_export_request", err)
	}

	query := psql.
		Select("id", "member_id", "item_id", "created_at").
		From("export_request").
		Where(sq.Eq{"member_id": memberID, "item_id": itemID}).
		OrderBy("created_at DESC").
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_last_export_request", err)
	}

	var record model.ExportRequest
	err = db.QueryRow(ctx, sqlStr, args...).Scan(
		&record.ID,
		&record.MemberID,
		&record.ItemID,
		&record.CreatedAt,
	)
	if err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dberr.NewDBInternalError("get_last_export_request", err)
	}
	return &record, nil
}
