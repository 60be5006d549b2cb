package postgres

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	dberr "github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
)

type Action struct {
	storage *Store
}

var actionColumns = []string{
	"id",
	"member_id",
	"item_id",
	"item_path",
	"member_type",
	"item_type",
	"action_type",
	"view",
	"geolocation",
	"extra",
	"created_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (a *Action) Insert(ctx context.Context, tx pgx.Tx, action *model.Action) (*model.Action, error) {
	db, err := a.storage.db(tx)
	if err != nil {
		return nil, dberr.NewDBInternalError("insert_action", err)
	}

	geolocation, err := marshalNullable(action.Geolocation)
	if err != nil {
		return nil, dberr.NewDBInternalError("insert_action", err)
	}
	extra, err := json.Marshal(action.Extra)
	if err != nil {
		return nil, dberr.NewDBInternalError("insert_action", err)
	}

	query := `
		INSERT INTO action
			(member_id, item_id, item_path, member_type, item_type, action_type, view, geolocation, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	stored := *action
	err = db.QueryRow(ctx, query,
		action.MemberID,
		action.ItemID,
		action.ItemPath,
		action.MemberType,
		action.ItemType,
		action.ActionType,
		action.View,
		geolocation,
		extra,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if dberr.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation
				return nil, &dberr.DBUniqueViolationError{
					DBError: *dberr.NewDBError("insert_action", pgErr.Message),
					Column:  pgErr.ConstraintName,
				}
			case "23503": // foreign_key_violation
				return nil, &dberr.DBForeignKeyViolationError{
					DBError:         *dberr.NewDBError("insert_action", pgErr.Message),
					ForeignKeyTable: pgErr.TableName,
				}
			}
		}
		return nil, dberr.NewDBInternalError("insert_action", err)
	}

	return &stored, nil
}

func (a *Action) GetByItem(ctx context.Context, tx pgx.Tx, itemPath string, filters model.ActionFilters) ([]*model.Action, error) {
	db, err := a.storage.db(tx)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_actions_by_item", err)
	}

	query := psql.
		Select(actionColumns...).
		From("action").
		Where(sq.Expr("item_path <@ ?::ltree", itemPath)).
		OrderBy("RANDOM()").
		Limit(uint64(filters.SampleSize))
	if filters.View != "" {
		query = query.Where(sq.Eq{"view": filters.View})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_actions_by_item", err)
	}

	rows, err := db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_actions_by_item", err)
	}
	defer rows.Close()

	return scanActions(rows, "get_actions_by_item")
}

func (a *Action) DeleteByMember(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) ([]*model.Action, error) {
	db, err := a.storage.db(tx)
	if err != nil {
		return nil, dberr.NewDBInternalError("delete_actions_by_member", err)
	}

	query := `
		DELETE FROM action
		WHERE member_id = $1
		RETURNING id, member_id, item_id, item_path, member_type, item_type, action_type, view, geolocation, extra, created_at
	`

	rows, err := db.Query(ctx, query, memberID)
	if err != nil {
		return nil, dberr.NewDBInternalError("delete_actions_by_member", err)
	}
	defer rows.Close()

	return scanActions(rows, "delete_actions_by_member")
}

func scanActions(rows pgx.Rows, op string) ([]*model.Action, error) {
	actions := []*model.Action{}
	for rows.Next() {
		var (
			record      model.Action
			geolocation []byte
			extra       []byte
		)
		err := rows.Scan(
			&record.ID,
			&record.MemberID,
			&record.ItemID,
			&record.ItemPath,
			&record.MemberType,
			&record.ItemType,
			&record.ActionType,
			&record.View,
			&geolocation,
			&extra,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, dberr.NewDBInternalError(op, err)
		}
		if len(geolocation) > 0 {
			if err := json.Unmarshal(geolocation, &record.Geolocation); err != nil {
				return nil, dberr.NewDBInternalError(op, err)
			}
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &record.Extra); err != nil {
				return nil, dberr.NewDBInternalError(op, err)
			}
		}
		actions = append(actions, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError(op, err)
	}
	return actions, nil
}

// marshalNullable keeps SQL NULL distinct from the JSON "null" produced by a
// nil pointer.
func marshalNullable(v *model.Geolocation) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
