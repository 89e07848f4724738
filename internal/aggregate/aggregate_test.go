package aggregate_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/axemon/internal/aggregate"
	"codeberg.org/mutker/axemon/internal/errors"
	"codeberg.org/mutker/axemon/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *store.Store
	service  *aggregate.Service
	configID int64
}

func newFixture(t *testing.T, devices ...string) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	for _, d := range devices {
		err := st.RegisterDevice(ctx, &store.Device{ID: d, IPAddress: "10.0.0.1"})
		require.NoError(t, err)
	}

	configID, err := st.ResolveConfig(ctx, 575, 1200)
	require.NoError(t, err)

	return &fixture{store: st, service: aggregate.NewService(st), configID: configID}
}

func (f *fixture) append(t *testing.T, device string, age time.Duration, m store.Metric) {
	t.Helper()

	m.DeviceID = device
	m.ConfigID = f.configID
	m.Timestamp = time.Now().UTC().Add(-age)
	require.NoError(t, f.store.AppendMetric(context.Background(), &m))
}

func TestBucketedTrendValidation(t *testing.T) {
	f := newFixture(t, "bitaxe-01")
	ctx := context.Background()

	tests := []struct {
		name    string
		target  string
		field   aggregate.Field
		window  time.Duration
		buckets int
	}{
		{"zero window", "bitaxe-01", aggregate.FieldHashrate, 0, 10},
		{"negative window", "bitaxe-01", aggregate.FieldHashrate, -time.Hour, 10},
		{"zero buckets", "bitaxe-01", aggregate.FieldHashrate, time.Hour, 0},
		{"unknown field", "bitaxe-01", aggregate.Field("mood"), time.Hour, 10},
		{"empty target", "", aggregate.FieldHashrate, time.Hour, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.BucketedTrend(ctx, tt.target, tt.field, tt.window, tt.buckets)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrInvalidAggregation),
				"Expected invalid-aggregation error, got %v", err)
		})
	}
}

func TestBucketedTrendDevice(t *testing.T) {
	f := newFixture(t, "bitaxe-01")
	ctx := context.Background()

	// One hour window, six 10-minute buckets; samples at bucket centers.
	// Bucket 3 (25m..15m ago) is deliberately left empty.
	f.append(t, "bitaxe-01", 55*time.Minute, store.Metric{Hashrate: 1000, Power: 15})
	f.append(t, "bitaxe-01", 45*time.Minute, store.Metric{Hashrate: 1100, Power: 15})
	f.append(t, "bitaxe-01", 44*time.Minute, store.Metric{Hashrate: 1300, Power: 15})
	f.append(t, "bitaxe-01", 5*time.Minute, store.Metric{Hashrate: 900, Power: 15})

	trend, err := f.service.BucketedTrend(ctx, "bitaxe-01", aggregate.FieldHashrate, time.Hour, 6)
	require.NoError(t, err)
	require.Len(t, trend.Points, 6)
	assert.Equal(t, 10*time.Minute, trend.BucketWidth)

	assert.True(t, trend.Points[0].HasData)
	assert.InDelta(t, 1000, trend.Points[0].Value, 1e-9)

	assert.True(t, trend.Points[1].HasData)
	assert.InDelta(t, 1200, trend.Points[1].Value, 1e-9, "Bucket value is the arithmetic mean")

	assert.False(t, trend.Points[3].HasData, "Empty bucket must be reported as absent, not zero")
	assert.Zero(t, trend.Points[3].Value)

	assert.True(t, trend.Points[5].HasData)
	assert.InDelta(t, 900, trend.Points[5].Value, 1e-9)
}

func TestBucketedTrendNonUTCHost(t *testing.T) {
	restore := time.Local
	time.Local = time.FixedZone("UTC-5", -5*60*60)
	t.Cleanup(func() { time.Local = restore })

	f := newFixture(t, "bitaxe-01")
	ctx := context.Background()

	// Zero timestamp takes the store's server-side default, the path a
	// live poller exercises.
	m := &store.Metric{DeviceID: "bitaxe-01", ConfigID: f.configID, Hashrate: 1000, Power: 15}
	require.NoError(t, f.store.AppendMetric(ctx, m))

	trend, err := f.service.BucketedTrend(ctx, "bitaxe-01", aggregate.FieldHashrate, time.Hour, 6)
	require.NoError(t, err)

	last := trend.Points[len(trend.Points)-1]
	assert.True(t, last.HasData, "Sample written now must appear in a window ending now")
	assert.InDelta(t, 1000, last.Value, 1e-9)
}

func TestBucketedTrendSwarm(t *testing.T) {
	f := newFixture(t, "bitaxe-01", "bitaxe-02")
	ctx := context.Background()

	// Both devices hold a constant hashrate H. Buckets where both
	// report must read 2H; a bucket where only one reports reads H.
	const h = 1000.0
	for _, age := range []time.Duration{55 * time.Minute, 45 * time.Minute, 5 * time.Minute} {
		f.append(t, "bitaxe-01", age, store.Metric{Hashrate: h, Power: 15})
	}
	for _, age := range []time.Duration{55 * time.Minute, 5 * time.Minute} {
		f.append(t, "bitaxe-02", age, store.Metric{Hashrate: h, Power: 15})
	}

	trend, err := f.service.BucketedTrend(ctx, aggregate.Swarm, aggregate.FieldHashrate, time.Hour, 6)
	require.NoError(t, err)
	require.Len(t, trend.Points, 6)

	assert.InDelta(t, 2*h, trend.Points[0].Value, 1e-9, "Both devices present")
	assert.InDelta(t, h, trend.Points[1].Value, 1e-9, "Absent device must not drag the sum down")
	assert.False(t, trend.Points[3].HasData, "No device reported in this bucket")
	assert.InDelta(t, 2*h, trend.Points[5].Value, 1e-9)
}

func TestMovingAverage(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	points := []aggregate.Point{
		{Timestamp: base, Value: 10, HasData: true},
		{Timestamp: base.Add(time.Minute), Value: 20, HasData: true},
		{Timestamp: base.Add(2 * time.Minute)},
		{Timestamp: base.Add(3 * time.Minute), Value: 30, HasData: true},
	}

	out := aggregate.MovingAverage(points, 2)
	require.Len(t, out, 4)

	assert.InDelta(t, 10, out[0].Value, 1e-9)
	assert.InDelta(t, 15, out[1].Value, 1e-9)
	assert.True(t, out[2].HasData, "Window still covers the previous point")
	assert.InDelta(t, 20, out[2].Value, 1e-9, "Empty point is skipped, not averaged as zero")
	assert.InDelta(t, 30, out[3].Value, 1e-9)

	// Full-series average when the window is zero.
	out = aggregate.MovingAverage(points, 0)
	assert.InDelta(t, 20, out[3].Value, 1e-9)

	// A stretch with no data at all stays empty.
	empty := []aggregate.Point{{Timestamp: base}, {Timestamp: base.Add(time.Minute)}}
	out = aggregate.MovingAverage(empty, 2)
	assert.False(t, out[0].HasData)
	assert.False(t, out[1].HasData)
}

func TestStability(t *testing.T) {
	f := newFixture(t, "bitaxe-01")
	ctx := context.Background()

	// Perfectly steady hashrate: zero variation.
	for i := 0; i < 6; i++ {
		f.append(t, "bitaxe-01", time.Duration(55-10*i)*time.Minute, store.Metric{Hashrate: 1000, Power: 15})
	}

	ws, err := f.service.Stability(ctx, "bitaxe-01", time.Hour, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, ws.Samples)
	assert.InDelta(t, 0, ws.CV, 1e-9)
}

func TestStabilitySparseSeries(t *testing.T) {
	f := newFixture(t, "bitaxe-01")
	ctx := context.Background()

	f.append(t, "bitaxe-01", 5*time.Minute, store.Metric{Hashrate: 1000, Power: 15})

	ws, err := f.service.Stability(ctx, "bitaxe-01", time.Hour, 6)
	require.NoError(t, err)
	assert.Equal(t, 1, ws.Samples)
	assert.Zero(t, ws.CV, "Fewer than two inhabited buckets yields zero")
}

func TestStabilityWindows(t *testing.T) {
	f := newFixture(t, "bitaxe-01")
	ctx := context.Background()

	f.append(t, "bitaxe-01", 50*time.Minute, store.Metric{Hashrate: 800, Power: 15})
	f.append(t, "bitaxe-01", 5*time.Minute, store.Metric{Hashrate: 1200, Power: 15})

	windows := []time.Duration{time.Hour, 6 * time.Hour}
	out, err := f.service.StabilityWindows(ctx, "bitaxe-01", windows, 6)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, time.Hour, out[0].Window)
	assert.Equal(t, 6*time.Hour, out[1].Window)
	assert.Greater(t, out[0].CV, 0.0, "Uneven hashrate must show variation")
}

func TestUptimeSummary(t *testing.T) {
	f := newFixture(t, "bitaxe-01")
	ctx := context.Background()

	// Uptime climbs, then resets on a restart. Total accumulates the
	// positive deltas plus the post-restart counter.
	uptimes := []int64{100, 200, 50, 110}
	for i, u := range uptimes {
		f.append(t, "bitaxe-01", time.Duration(40-10*i)*time.Minute,
			store.Metric{Hashrate: 1000, Power: 15, Uptime: u})
	}

	sum, err := f.service.UptimeSummary(ctx, "bitaxe-01")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Restarts)
	assert.Equal(t, 310*time.Second, sum.Total)
}

func TestUptimeSummaryRequiresDevice(t *testing.T) {
	f := newFixture(t, "bitaxe-01")

	_, err := f.service.UptimeSummary(context.Background(), aggregate.Swarm)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidAggregation))
}

func TestFleetOverview(t *testing.T) {
	f := newFixture(t, "bitaxe-01", "bitaxe-02", "bitaxe-03")
	ctx := context.Background()

	f.append(t, "bitaxe-01", time.Minute, store.Metric{Hashrate: 1000, Power: 15, Uptime: 600, BestDiff: 2e6})
	f.append(t, "bitaxe-02", time.Minute, store.Metric{Hashrate: 1200, Power: 18, Uptime: 300, BestDiff: 5e6})

	_, err := f.store.StartSession(ctx, "bitaxe-01", f.configID, time.Now(), "")
	require.NoError(t, err)

	overview, err := f.service.FleetOverview(ctx)
	require.NoError(t, err)
	require.Len(t, overview.Devices, 3)

	assert.InDelta(t, 2200, overview.TotalHashrate, 1e-9)
	assert.InDelta(t, 33, overview.TotalPower, 1e-9)
	assert.InDelta(t, 5e6, overview.BestDiff, 1)

	byID := map[string]*aggregate.DeviceSummary{}
	for _, d := range overview.Devices {
		byID[d.Device.ID] = d
	}

	require.NotNil(t, byID["bitaxe-01"].Latest)
	assert.NotZero(t, byID["bitaxe-01"].SessionID, "Open session must surface in the overview")
	assert.Zero(t, byID["bitaxe-02"].SessionID)
	assert.Nil(t, byID["bitaxe-03"].Latest, "Silent device appears without a sample")
	assert.Zero(t, byID["bitaxe-03"].Samples)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t, "bitaxe-01")
	ctx := context.Background()

	f.append(t, "bitaxe-01", 2*time.Minute, store.Metric{Hashrate: 1000, Power: 15, Uptime: 60})
	f.append(t, "bitaxe-01", time.Minute, store.Metric{Hashrate: 1100, Power: 16, Uptime: 120})

	var buf bytes.Buffer
	err := f.service.ExportCSV(ctx, "bitaxe-01", time.Time{}, time.Time{}, &buf)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "Header plus two samples")
	assert.Equal(t, "timestamp", records[0][0])
	assert.Equal(t, "bitaxe-01", records[1][1])
	assert.Equal(t, "1000", records[1][3])
	assert.Equal(t, "1100", records[2][3])

	err = f.service.ExportCSV(ctx, aggregate.Swarm, time.Time{}, time.Time{}, &buf)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidAggregation))
}
