package postgres

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	dberr "github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
)

// Member reads the platform's member table.
type Member struct {
	storage *Store
}

var memberColumns = []string{"id", "name", "email", "type", "extra"}

func (m *Member) Get(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Member, error) {
	members, err := m.GetMany(ctx, tx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, dberr.NotFound("member " + id.String() + " not found")
	}
	return members[0], nil
}

func (m *Member) GetMany(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]*model.Member, error) {
	if len(ids) == 0 {
		return []*model.Member{}, nil
	}

	db, err := m.storage.db(tx)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_members", err)
	}

	query := psql.
		Select(memberColumns...).
		From("member").
		Where(sq.Eq{"id": ids})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_members", err)
	}

	rows, err := db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_members", err)
	}
	defer rows.Close()

	members := []*model.Member{}
	for rows.Next() {
		var (
			record model.Member
			extra  []byte
		)
		if err := rows.Scan(&record.ID, &record.Name, &record.Email, &record.Type, &extra); err != nil {
			return nil, dberr.NewDBInternalError("get_members", err)
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &record.Extra); err != nil {
				return nil, dberr.NewDBInternalError("get_members", err)
			}
		}
		members = append(members, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError("get_members", err)
	}
	return members, nil
}
