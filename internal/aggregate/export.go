package aggregate

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"codeberg.org/mutker/axemon/internal/errors"
)

var exportHeader = []string{
	"timestamp", "device_id", "config_id",
	"hashrate", "power", "voltage", "current", "asic_temp", "vreg_temp",
	"fan_speed", "fan_rpm", "shares_accepted", "shares_rejected",
	"uptime_seconds", "best_diff", "efficiency_jth", "efficiency_ghw",
}

// ExportCSV streams a device's raw samples within the range as CSV.
// The same range semantics as MetricsInRange apply: zero bounds are
// unbounded and the upper bound is exclusive.
func (s *Service) ExportCSV(ctx context.Context, deviceID string, from, to time.Time, w io.Writer) error {
	errFactory := errors.New()

	if deviceID == "" || deviceID == Swarm {
		return errFactory.WithMessage(errors.ErrInvalidAggregation, "export requires a single device")
	}

	metrics, err := s.store.MetricsInRange(ctx, deviceID, from, to)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return errFactory.Wrap(errors.ErrInvalidAggregation, err)
	}

	for _, m := range metrics {
		record := []string{
			m.Timestamp.UTC().Format(time.RFC3339),
			m.DeviceID,
			strconv.FormatInt(m.ConfigID, 10),
			formatFloat(m.Hashrate),
			formatFloat(m.Power),
			formatFloat(m.Voltage),
			formatFloat(m.Current),
			formatFloat(m.ASICTemp),
			formatFloat(m.VRegTemp),
			strconv.Itoa(m.FanSpeed),
			strconv.Itoa(m.FanRPM),
			strconv.FormatInt(m.SharesAccepted, 10),
			strconv.FormatInt(m.SharesRejected, 10),
			strconv.FormatInt(m.Uptime, 10),
			formatFloat(m.BestDiff),
			formatFloat(m.EfficiencyJTH),
			formatFloat(m.EfficiencyGHW),
		}
		if err := cw.Write(record); err != nil {
			return errFactory.Wrap(errors.ErrInvalidAggregation, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
