package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	conf "github.com/itemhub/action-analytics/config"
	"github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/store"
)

// Store is the struct implementing the Store interface.
type Store struct {
	actionStore     store.ActionStore
	exportStore     store.ExportStore
	itemStore       store.ItemStore
	memberStore     store.MemberStore
	membershipStore store.MembershipStore
	config          *conf.DatabaseConfig
	conn            *pgxpool.Pool
}

// New creates a new Store instance.
func New(config *conf.DatabaseConfig) *Store {
	return &Store{config: config}
}

func (s *Store) Action() store.ActionStore {
	if s.actionStore == nil {
		s.actionStore = &Action{storage: s}
	}
	return s.actionStore
}

func (s *Store) Export() store.ExportStore {
	if s.exportStore == nil {
		s.exportStore = &Export{storage: s}
	}
	return s.exportStore
}

func (s *Store) Item() store.ItemStore {
	if s.itemStore == nil {
		s.itemStore = &Item{storage: s}
	}
	return s.itemStore
}

func (s *Store) Member() store.MemberStore {
	if s.memberStore == nil {
		s.memberStore = &Member{storage: s}
	}
	return s.memberStore
}

func (s *Store) Membership() store.MembershipStore {
	if s.membershipStore == nil {
		s.membershipStore = &Membership{storage: s}
	}
	return s.membershipStore
}

// Database returns the database connection or a custom error if it is not opened.
func (s *Store) Database() (*pgxpool.Pool, error) {
	if s.conn == nil {
		return nil, errors.New("database connection is not opened")
	}
	return s.conn, nil
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx. Store methods run on
// the task transaction when one is supplied and on the pool otherwise.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) db(tx pgx.Tx) (querier, error) {
	if tx != nil {
		return tx, nil
	}
	return s.Database()
}

// Open establishes a connection to the database.
func (s *Store) Open() error {
	config, err := pgxpool.ParseConfig(s.config.Url)
	if err != nil {
		return err
	}

	conn, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return err
	}
	s.conn = conn
	slog.Debug("action_analytics.store.connection_opened", slog.String("message", "postgres: connection opened"))
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		s.conn.Close()
		slog.Debug("action_analytics.store.connection_closed", slog.String("message", "postgres: connection closed"))
		s.conn = nil
	}
	return nil
}
