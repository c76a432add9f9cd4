package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponytojas/go-timescale-records/internal/database"
	"github.com/ponytojas/go-timescale-records/internal/metrics"
	"github.com/ponytojas/go-timescale-records/internal/models"
)

type fakeGateway struct {
	rows         []models.Row
	temperatures []any
	gasLevels    []models.Row
	err          error

	gotWindow time.Duration
}

func (f *fakeGateway) FetchAllRecords(ctx context.Context) ([]models.Row, error) {
	return f.rows, f.err
}

func (f *fakeGateway) FetchRecentTemperatures(ctx context.Context, window time.Duration) ([]any, error) {
	f.gotWindow = window
	return f.temperatures, f.err
}

func (f *fakeGateway) FetchGasLevels(ctx context.Context) ([]models.Row, error) {
	return f.gasLevels, f.err
}

var unreachable = &database.ConnectionError{Err: errors.New("dial tcp 10.0.0.1:5432: i/o timeout")}

func TestListRecords(t *testing.T) {
	created := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	gw := &fakeGateway{rows: []models.Row{
		models.NamedRow{"id": int64(1), "temperature": 20.0, "created_at": created},
		models.NamedRow{"id": int64(2), "humidity": 55.0, "created_at": created.AddDate(0, 0, 1)},
	}}

	recs, err := NewService(gw).ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1), recs[0].ID)
	assert.Equal(t, "06/03/24", recs[1].CreatedAt)
	for _, r := range recs {
		assert.Regexp(t, `^\d{2}/\d{2}/\d{2}$`, r.CreatedAt)
	}
}

func TestListRecordsEmptyStore(t *testing.T) {
	recs, err := NewService(&fakeGateway{}).ListRecords(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestListRecordsUnreachableStore(t *testing.T) {
	_, err := NewService(&fakeGateway{err: unreachable}).ListRecords(context.Background())

	var re *RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OpListRecords, re.Op)
	assert.True(t, database.IsConnectionError(err))
	assert.Equal(t, "error getting records: failed to connect to database: dial tcp 10.0.0.1:5432: i/o timeout", err.Error())
}

func TestListRecordsFormatError(t *testing.T) {
	gw := &fakeGateway{rows: []models.Row{
		models.NamedRow{"id": int64(1), "created_at": time.Now()},
		models.NamedRow{"id": int64(2), "created_at": nil},
	}}

	recs, err := NewService(gw).ListRecords(context.Background())
	assert.Nil(t, recs)

	var re *RetrievalError
	require.ErrorAs(t, err, &re)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestTemperatureStatistics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	gw := &fakeGateway{temperatures: []any{"10", "bad", 20.0, nil}}
	svc := NewService(gw, WithMode(true), WithWindow(48*time.Hour), WithMetrics(m))

	report, err := svc.TemperatureStatistics(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, gw.gotWindow)
	assert.Equal(t, 2, report.Count)
	assert.InDelta(t, 15.0, report.Mean, 1e-9)
	require.NotNil(t, report.Mode)
	assert.Equal(t, int64(10), *report.Mode)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DroppedSamplesTotal))
}

func TestTemperatureStatisticsExplicitWindow(t *testing.T) {
	gw := &fakeGateway{temperatures: []any{10, 20, 30}}

	report, err := NewService(gw).TemperatureStatistics(context.Background(), time.Hour)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, gw.gotWindow)
	assert.InDelta(t, 8.165, report.StdDev, 1e-3)
	assert.Nil(t, report.Mode)
}

func TestTemperatureStatisticsDefaultWindow(t *testing.T) {
	for _, svc := range []*Service{
		NewService(&fakeGateway{}),
		NewService(&fakeGateway{}, WithWindow(0)),
	} {
		_, err := svc.TemperatureStatistics(context.Background(), -time.Minute)
		require.NoError(t, err)
		assert.Equal(t, DefaultWindow, svc.gateway.(*fakeGateway).gotWindow)
	}
}

func TestTemperatureStatisticsNoData(t *testing.T) {
	report, err := NewService(&fakeGateway{temperatures: []any{"abc", "xyz"}}).
		TemperatureStatistics(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, report.SampleEmpty())
	assert.Equal(t, models.NoDataMessage, report.Message)
}

func TestTemperatureStatisticsQueryError(t *testing.T) {
	gw := &fakeGateway{err: &database.QueryError{Query: "recent_temperatures", Err: context.DeadlineExceeded}}

	_, err := NewService(gw).TemperatureStatistics(context.Background(), 0)
	var re *RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OpTemperatureStatistics, re.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGasLevelSeries(t *testing.T) {
	created := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	gw := &fakeGateway{gasLevels: []models.Row{
		models.PositionalRow{Fields: models.GasLevelFields, Values: []any{12.0, created}},
		models.PositionalRow{Fields: models.GasLevelFields, Values: []any{nil, created.AddDate(1, 0, 0)}},
	}}

	series, err := NewService(gw).GasLevelSeries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.GasLevelPoint{
		{GasLevel: 12.0, CreatedAt: "05/03/24"},
		{GasLevel: nil, CreatedAt: "05/03/25"},
	}, series)
}

func TestGasLevelSeriesErrors(t *testing.T) {
	_, err := NewService(&fakeGateway{err: unreachable}).GasLevelSeries(context.Background())
	var re *RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OpGasLevelSeries, re.Op)

	gw := &fakeGateway{gasLevels: []models.Row{models.NamedRow{"gas_level": 1.0, "created_at": "soon"}}}
	_, err = NewService(gw).GasLevelSeries(context.Background())
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}
