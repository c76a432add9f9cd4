// Package records composes the gateway, the normalizer and the statistics
// engine into the operations served by the query API.
package records

import (
	"context"
	"log/slog"
	"time"

	"github.com/ponytojas/go-timescale-records/internal/metrics"
	"github.com/ponytojas/go-timescale-records/internal/models"
	"github.com/ponytojas/go-timescale-records/internal/stats"
)

// Gateway is the read side of the record store
type Gateway interface {
	FetchAllRecords(ctx context.Context) ([]models.Row, error)
	FetchRecentTemperatures(ctx context.Context, window time.Duration) ([]any, error)
	FetchGasLevels(ctx context.Context) ([]models.Row, error)
}

// DefaultWindow is the statistics window used when none is configured
const DefaultWindow = 7 * 24 * time.Hour

// Service serves records and their statistics. It holds no mutable state.
type Service struct {
	gateway     Gateway
	window      time.Duration
	includeMode bool
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option customizes a Service
type Option func(*Service)

// WithWindow sets the default statistics window
func WithWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithMode enables the mode in temperature statistics
func WithMode(enabled bool) Option {
	return func(s *Service) { s.includeMode = enabled }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics counts dropped samples
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a Service over gateway
func NewService(gateway Gateway, opts ...Option) *Service {
	s := &Service{
		gateway: gateway,
		window:  DefaultWindow,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListRecords returns every record with its rendered date, in store order
func (s *Service) ListRecords(ctx context.Context) ([]models.Record, error) {
	rows, err := s.gateway.FetchAllRecords(ctx)
	if err != nil {
		return nil, &RetrievalError{Op: OpListRecords, Err: err}
	}

	out := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := Normalize(row)
		if err != nil {
			return nil, &RetrievalError{Op: OpListRecords, Err: err}
		}
		out = append(out, rec)
	}
	return out, nil
}

// TemperatureStatistics describes the temperatures recorded within window.
// A non-positive window uses the configured default. Unparseable values are
// dropped and an empty sample yields a degenerate report.
func (s *Service) TemperatureStatistics(ctx context.Context, window time.Duration) (models.StatisticsReport, error) {
	if window <= 0 {
		window = s.window
	}

	raw, err := s.gateway.FetchRecentTemperatures(ctx, window)
	if err != nil {
		return models.StatisticsReport{}, &RetrievalError{Op: OpTemperatureStatistics, Err: err}
	}

	sample, dropped := stats.Filter(raw)
	if dropped > 0 {
		s.logger.Warn("dropped non-numeric temperature samples",
			"dropped", dropped, "kept", len(sample), "window", window)
		s.metrics.AddDroppedSamples(dropped)
	}

	return stats.Describe(sample, stats.Options{IncludeMode: s.includeMode}), nil
}

// GasLevelSeries returns every gas level with its rendered date, in store order
func (s *Service) GasLevelSeries(ctx context.Context) ([]models.GasLevelPoint, error) {
	rows, err := s.gateway.FetchGasLevels(ctx)
	if err != nil {
		return nil, &RetrievalError{Op: OpGasLevelSeries, Err: err}
	}

	out := make([]models.GasLevelPoint, 0, len(rows))
	for _, row := range rows {
		p, err := RenderGasLevel(row)
		if err != nil {
			return nil, &RetrievalError{Op: OpGasLevelSeries, Err: err}
		}
		out = append(out, p)
	}
	return out, nil
}
