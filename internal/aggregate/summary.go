package aggregate

import (
	"context"
	"time"

	"codeberg.org/mutker/axemon/internal/errors"
	"codeberg.org/mutker/axemon/internal/store"
)

// UptimeSummary accumulates device uptime across restarts. Uptime
// counters reset to near zero on reboot; total time is the sum of the
// positive deltas between consecutive samples, with each restart
// contributing the new counter's value instead of a negative delta.
type UptimeSummary struct {
	DeviceID string
	Total    time.Duration
	Restarts int
}

func (s *Service) UptimeSummary(ctx context.Context, deviceID string) (*UptimeSummary, error) {
	if deviceID == "" || deviceID == Swarm {
		errFactory := errors.New()
		return nil, errFactory.WithMessage(errors.ErrInvalidAggregation, "uptime summary requires a single device")
	}

	series, err := s.store.UptimeSeries(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	sum := &UptimeSummary{DeviceID: deviceID}
	var prev int64
	for i, u := range series {
		switch {
		case i == 0:
			sum.Total += time.Duration(u) * time.Second
		case u < prev:
			sum.Restarts++
			sum.Total += time.Duration(u) * time.Second
		default:
			sum.Total += time.Duration(u-prev) * time.Second
		}
		prev = u
	}

	return sum, nil
}

// ConfigSummaries ranks the clock configurations a device has run
// under, best efficiency first. Target may be Swarm for a fleet-wide
// ranking.
func (s *Service) ConfigSummaries(ctx context.Context, target string) ([]*store.ConfigSummary, error) {
	deviceID := target
	if target == Swarm {
		deviceID = ""
	}

	return s.store.ConfigSummaries(ctx, deviceID)
}

// DeviceSummary is the current standing of one device in the fleet
// overview.
type DeviceSummary struct {
	Device    *store.Device
	Latest    *store.Metric
	Samples   int64
	BestDiff  float64
	Uptime    time.Duration
	Restarts  int
	SessionID int64
}

// FleetSummary is a point-in-time view of the whole swarm built from
// each device's most recent sample.
type FleetSummary struct {
	Devices       []*DeviceSummary
	TotalHashrate float64
	TotalPower    float64
	BestDiff      float64
}

// FleetOverview gathers per-device latest samples, lifetime counters
// and open sessions into one fleet-level summary. Devices that have
// never reported appear with a nil Latest.
func (s *Service) FleetOverview(ctx context.Context) (*FleetSummary, error) {
	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	out := &FleetSummary{Devices: make([]*DeviceSummary, 0, len(devices))}

	for _, d := range devices {
		ds := &DeviceSummary{Device: d}

		latest, err := s.store.LatestMetric(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		ds.Latest = latest

		if ds.Samples, err = s.store.MetricCount(ctx, d.ID); err != nil {
			return nil, err
		}
		if ds.BestDiff, err = s.store.BestDifficulty(ctx, d.ID); err != nil {
			return nil, err
		}

		up, err := s.UptimeSummary(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		ds.Uptime = up.Total
		ds.Restarts = up.Restarts

		session, err := s.store.OpenSession(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		if session != nil {
			ds.SessionID = session.ID
		}

		if latest != nil {
			out.TotalHashrate += latest.Hashrate
			out.TotalPower += latest.Power
		}
		if ds.BestDiff > out.BestDiff {
			out.BestDiff = ds.BestDiff
		}

		out.Devices = append(out.Devices, ds)
	}

	return out, nil
}
