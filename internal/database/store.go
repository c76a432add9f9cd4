package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ponytojas/go-timescale-records/config"
	"github.com/ponytojas/go-timescale-records/internal/models"
)

// StoreConn is the subset of *pgx.Conn the ingest store needs
type StoreConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

// Store writes readings into the record table. It keeps one connection open
// for the lifetime of the ingest bridge.
type Store struct {
	conn   StoreConn
	table  string
	logger *slog.Logger
}

// NewStore connects to the database described by cfg
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	conn, err := pgx.Connect(ctx, cfg.GetDBConnString())
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	return NewStoreWithConn(conn, cfg.Store.Table, logger), nil
}

// NewStoreWithConn wraps an existing connection
func NewStoreWithConn(conn StoreConn, table string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, table: table, logger: logger}
}

// Close closes the database connection
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// InitializeTable checks if the record table exists and creates it if it doesn't
func (s *Store) InitializeTable(ctx context.Context) error {
	var exists bool
	err := s.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, s.table).Scan(&exists)
	if err != nil {
		return &QueryError{Query: "table_exists", Err: err}
	}

	if exists {
		s.logger.Info("record table already exists", "table", s.table)
		return nil
	}

	s.logger.Info("creating record table", "table", s.table)
	_, err = s.conn.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			id BIGSERIAL PRIMARY KEY,
			temperature DOUBLE PRECISION,
			humidity DOUBLE PRECISION,
			gas_level DOUBLE PRECISION,
			light DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, pgx.Identifier{s.table}.Sanitize()))
	if err != nil {
		return &QueryError{Query: "create_table", Err: err}
	}
	return nil
}

// InsertReading appends one reading. id and created_at are assigned by the store.
func (s *Store) InsertReading(ctx context.Context, r models.Reading) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (temperature, humidity, gas_level, light)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, pgx.Identifier{s.table}.Sanitize()), r.Temperature, r.Humidity, r.GasLevel, r.Light).Scan(&id)
	if err != nil {
		return 0, &QueryError{Query: "insert_reading", Err: err}
	}
	return id, nil
}
