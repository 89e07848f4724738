package store

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/mutker/axemon/internal/errors"
	"github.com/mattn/go-sqlite3"
)

const metricColumns = `
    id, device_id, timestamp, config_id,
    hashrate, power, voltage, current,
    asic_temp, vreg_temp, fan_speed, fan_rpm,
    shares_accepted, shares_rejected, uptime,
    efficiency_jth, efficiency_ghw, best_diff`

// AppendMetric persists one sample. The record must reference an
// existing device and configuration; a foreign key violation is
// surfaced as a referential integrity error and the sample is dropped
// by the caller, never retried. The timestamp is assigned server-side
// when the caller leaves it zero. Efficiency fields are recomputed here
// from the raw fields regardless of what the caller set.
func (s *Store) AppendMetric(ctx context.Context, m *Metric) error {
	errFactory := errors.New()

	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	// The driver binds time.Time as text in the value's own zone and
	// SQLite compares DATETIME text lexicographically, so every stored
	// timestamp must carry the same offset.
	m.Timestamp = m.Timestamp.UTC()
	m.EfficiencyJTH, m.EfficiencyGHW = Efficiency(m.Hashrate, m.Power)

	result, err := s.db.ExecContext(ctx, `
        INSERT INTO performance_metrics (
            device_id, timestamp, config_id,
            hashrate, power, voltage, current,
            asic_temp, vreg_temp, fan_speed, fan_rpm,
            shares_accepted, shares_rejected, uptime,
            efficiency_jth, efficiency_ghw, best_diff
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.DeviceID, m.Timestamp, m.ConfigID,
		m.Hashrate, m.Power, m.Voltage, m.Current,
		m.ASICTemp, m.VRegTemp, m.FanSpeed, m.FanRPM,
		m.SharesAccepted, m.SharesRejected, m.Uptime,
		m.EfficiencyJTH, m.EfficiencyGHW, m.BestDiff)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errFactory.WithData(ErrReferentialIntegrity, struct {
				DeviceID string
				ConfigID int64
			}{
				DeviceID: m.DeviceID,
				ConfigID: m.ConfigID,
			})
		}
		return errFactory.Wrap(ErrStoreUnavailable, err)
	}

	m.ID, _ = result.LastInsertId()

	return nil
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}

	return false
}

// LatestMetric returns the most recent sample for a device, or nil
// when the device has no history.
func (s *Store) LatestMetric(ctx context.Context, deviceID string) (*Metric, error) {
	errFactory := errors.New()

	row := s.db.QueryRowContext(ctx, `
        SELECT`+metricColumns+`
        FROM performance_metrics
        WHERE device_id = ?
        ORDER BY timestamp DESC
        LIMIT 1`, deviceID)

	m, err := scanMetric(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return m, nil
}

// MetricsInRange returns samples ordered by timestamp ascending.
// An empty deviceID selects all devices; zero from/to bounds are
// unbounded. The upper bound is exclusive.
func (s *Store) MetricsInRange(ctx context.Context, deviceID string, from, to time.Time) ([]*Metric, error) {
	errFactory := errors.New()

	query := "SELECT" + metricColumns + " FROM performance_metrics WHERE 1=1"
	var args []any
	if deviceID != "" {
		query += " AND device_id = ?"
		args = append(args, deviceID)
	}
	if !from.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += " AND timestamp < ?"
		args = append(args, to.UTC())
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var metrics []*Metric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, errFactory.Wrap(ErrStoreUnavailable, err)
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return metrics, nil
}

// MetricCount returns the number of stored samples, optionally filtered
// by device.
func (s *Store) MetricCount(ctx context.Context, deviceID string) (int64, error) {
	errFactory := errors.New()

	var count int64
	var err error
	if deviceID != "" {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM performance_metrics WHERE device_id = ?", deviceID).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM performance_metrics").Scan(&count)
	}
	if err != nil {
		return 0, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return count, nil
}

// UptimeSeries returns a device's reported uptime values in record
// order. Restart inference runs over this series.
func (s *Store) UptimeSeries(ctx context.Context, deviceID string) ([]int64, error) {
	errFactory := errors.New()

	rows, err := s.db.QueryContext(ctx, `
        SELECT uptime FROM performance_metrics
        WHERE device_id = ?
        ORDER BY timestamp ASC`, deviceID)
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var series []int64
	for rows.Next() {
		var uptime int64
		if err := rows.Scan(&uptime); err != nil {
			return nil, errFactory.Wrap(ErrStoreUnavailable, err)
		}
		series = append(series, uptime)
	}

	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return series, nil
}

// BestDifficulty returns the highest recorded share difficulty for a
// device, or zero when none was recorded.
func (s *Store) BestDifficulty(ctx context.Context, deviceID string) (float64, error) {
	errFactory := errors.New()

	var best sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
        SELECT MAX(best_diff) FROM performance_metrics
        WHERE device_id = ? AND best_diff > 0`, deviceID).Scan(&best)
	if err != nil {
		return 0, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return best.Float64, nil
}

// ConfigSummaries groups samples by clock configuration and aggregates
// each group, ordered by mean energy-per-hash ascending so the most
// efficient configuration comes first. An empty deviceID summarizes
// across all devices.
func (s *Store) ConfigSummaries(ctx context.Context, deviceID string) ([]*ConfigSummary, error) {
	errFactory := errors.New()

	query := `
        SELECT
            cc.id, cc.frequency, cc.core_voltage,
            COUNT(*),
            AVG(pm.hashrate), MIN(pm.hashrate), MAX(pm.hashrate),
            AVG(pm.power), MAX(pm.power),
            AVG(pm.efficiency_jth), AVG(pm.efficiency_ghw),
            AVG(pm.asic_temp), MAX(pm.asic_temp),
            AVG(pm.vreg_temp), MAX(pm.vreg_temp),
            AVG(pm.voltage), MIN(pm.voltage),
            MIN(pm.timestamp), MAX(pm.timestamp)
        FROM performance_metrics pm
        JOIN clock_configs cc ON pm.config_id = cc.id`
	var args []any
	if deviceID != "" {
		query += " WHERE pm.device_id = ?"
		args = append(args, deviceID)
	}
	query += `
        GROUP BY cc.id
        ORDER BY AVG(pm.efficiency_jth) ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var summaries []*ConfigSummary
	for rows.Next() {
		cs := &ConfigSummary{}
		// MIN/MAX over a DATETIME column loses the declared type, so the
		// driver hands the timestamps back as text.
		var firstSeen, lastSeen string
		if err := rows.Scan(
			&cs.ConfigID, &cs.Frequency, &cs.CoreVoltage,
			&cs.SampleCount,
			&cs.AvgHashrate, &cs.MinHashrate, &cs.MaxHashrate,
			&cs.AvgPower, &cs.MaxPower,
			&cs.AvgEfficiencyJTH, &cs.AvgEfficiencyGHW,
			&cs.AvgASICTemp, &cs.MaxASICTemp,
			&cs.AvgVRegTemp, &cs.MaxVRegTemp,
			&cs.AvgInputVoltage, &cs.MinInputVoltage,
			&firstSeen, &lastSeen); err != nil {
			return nil, errFactory.Wrap(ErrStoreUnavailable, err)
		}
		cs.FirstSeen = parseTimestamp(firstSeen)
		cs.LastSeen = parseTimestamp(lastSeen)
		summaries = append(summaries, cs)
	}

	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return summaries, nil
}

// sqliteTimestampFormats mirrors the formats the driver uses when
// binding time.Time values.
var sqliteTimestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTimestamp(value string) time.Time {
	for _, format := range sqliteTimestampFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}

	return time.Time{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetric(row rowScanner) (*Metric, error) {
	m := &Metric{}
	var bestDiff sql.NullFloat64
	err := row.Scan(
		&m.ID, &m.DeviceID, &m.Timestamp, &m.ConfigID,
		&m.Hashrate, &m.Power, &m.Voltage, &m.Current,
		&m.ASICTemp, &m.VRegTemp, &m.FanSpeed, &m.FanRPM,
		&m.SharesAccepted, &m.SharesRejected, &m.Uptime,
		&m.EfficiencyJTH, &m.EfficiencyGHW, &bestDiff)
	if err != nil {
		return nil, err
	}
	m.BestDiff = bestDiff.Float64

	return m, nil
}
