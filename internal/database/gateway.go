package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ponytojas/go-timescale-records/config"
	"github.com/ponytojas/go-timescale-records/internal/metrics"
	"github.com/ponytojas/go-timescale-records/internal/models"
)

// AccessMode selects how row values are addressed
type AccessMode int

const (
	// AccessByPosition reads values in the fixed select order
	AccessByPosition AccessMode = iota
	// AccessByName reads values keyed by the column names the store reports
	AccessByName
)

// ParseAccessMode maps a configuration value to an AccessMode
func ParseAccessMode(s string) (AccessMode, error) {
	switch s {
	case config.AccessModePosition:
		return AccessByPosition, nil
	case config.AccessModeName:
		return AccessByName, nil
	default:
		return 0, fmt.Errorf("unknown access mode %q", s)
	}
}

// Conn is the subset of *pgx.Conn the gateway needs
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// Connector opens a new connection to the store
type Connector func(ctx context.Context) (Conn, error)

// PgxConnector dials the store with pgx using the given connection string
func PgxConnector(connString string) Connector {
	return func(ctx context.Context) (Conn, error) {
		conn, err := pgx.Connect(ctx, connString)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Gateway executes the read queries of the record service. Each call opens
// one connection and closes it before returning.
type Gateway struct {
	connect      Connector
	table        string
	mode         AccessMode
	queryTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// GatewayOption customizes a Gateway
type GatewayOption func(*Gateway)

// WithAccessMode sets how rows are addressed
func WithAccessMode(mode AccessMode) GatewayOption {
	return func(g *Gateway) { g.mode = mode }
}

// WithTable sets the record table name
func WithTable(table string) GatewayOption {
	return func(g *Gateway) { g.table = table }
}

// WithQueryTimeout bounds every call, connection included
func WithQueryTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.queryTimeout = d }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMetrics records query durations
func WithMetrics(m *metrics.Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway creates a gateway that uses connect for every call
func NewGateway(connect Connector, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		connect: connect,
		table:   "record",
		mode:    AccessByName,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGatewayFromConfig builds a pgx-backed gateway from cfg
func NewGatewayFromConfig(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Gateway, error) {
	mode, err := ParseAccessMode(cfg.Store.AccessMode)
	if err != nil {
		return nil, err
	}
	return NewGateway(PgxConnector(cfg.GetDBConnString()),
		WithTable(cfg.Store.Table),
		WithAccessMode(mode),
		WithQueryTimeout(cfg.Database.QueryTimeout),
		WithLogger(logger),
		WithMetrics(m),
	), nil
}

// FetchAllRecords returns every row of the record table in store order
func (g *Gateway) FetchAllRecords(ctx context.Context) ([]models.Row, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(models.RecordFields, ", "), g.tableIdent())

	var out []models.Row
	err := g.run(ctx, "records", sql, nil, func(rows pgx.Rows) error {
		var err error
		out, err = g.collect(rows, models.RecordFields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchRecentTemperatures returns the raw temperature values created within
// window of now. window must be positive.
func (g *Gateway) FetchRecentTemperatures(ctx context.Context, window time.Duration) ([]any, error) {
	if window <= 0 {
		return nil, &QueryError{Query: "recent_temperatures", Err: fmt.Errorf("window must be positive, got %s", window)}
	}
	since := g.now().Add(-window)
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s >= $1",
		models.FieldTemperature, g.tableIdent(), models.FieldCreatedAt)

	var out []any
	err := g.run(ctx, "recent_temperatures", sql, []any{since}, func(rows pgx.Rows) error {
		collected, err := g.collect(rows, []string{models.FieldTemperature})
		if err != nil {
			return err
		}
		out = make([]any, 0, len(collected))
		for _, row := range collected {
			v, _ := row.Field(models.FieldTemperature)
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchGasLevels returns (gas_level, created_at) rows in store order
func (g *Gateway) FetchGasLevels(ctx context.Context) ([]models.Row, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(models.GasLevelFields, ", "), g.tableIdent())

	var out []models.Row
	err := g.run(ctx, "gas_levels", sql, nil, func(rows pgx.Rows) error {
		var err error
		out, err = g.collect(rows, models.GasLevelFields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) tableIdent() string {
	return pgx.Identifier{g.table}.Sanitize()
}

// run opens a connection, executes sql and hands the rows to scan. The
// connection is closed on every path.
func (g *Gateway) run(ctx context.Context, name, sql string, args []any, scan func(pgx.Rows) error) error {
	start := time.Now()
	outcome := metrics.OutcomeOK
	defer func() {
		g.metrics.ObserveQuery(name, outcome, time.Since(start))
	}()

	if g.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.queryTimeout)
		defer cancel()
	}

	conn, err := g.connect(ctx)
	if err != nil {
		outcome = metrics.OutcomeConnectionError
		return &ConnectionError{Err: err}
	}
	defer func() {
		// ctx may already be done; closing must still happen
		if cerr := conn.Close(context.WithoutCancel(ctx)); cerr != nil {
			g.logger.Warn("failed to close database connection", "query", name, "error", cerr)
		}
	}()

	g.logger.Debug("executing query", "query", name, "sql", sql)

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		outcome = metrics.OutcomeQueryError
		return &QueryError{Query: name, Err: err}
	}
	defer rows.Close()

	if err := scan(rows); err != nil {
		outcome = metrics.OutcomeQueryError
		return &QueryError{Query: name, Err: err}
	}
	return nil
}

// collect reads all rows in the configured access mode. Positional rows
// must carry exactly len(fields) values.
func (g *Gateway) collect(rows pgx.Rows, fields []string) ([]models.Row, error) {
	out := make([]models.Row, 0)
	switch g.mode {
	case AccessByName:
		maps, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return nil, err
		}
		for _, m := range maps {
			out = append(out, models.NamedRow(m))
		}
	default:
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return nil, err
			}
			if len(values) != len(fields) {
				return nil, fmt.Errorf("expected %d columns, got %d", len(fields), len(values))
			}
			out = append(out, models.PositionalRow{Fields: fields, Values: values})
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// IsConnectionError reports whether err was caused by an unreachable store
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
