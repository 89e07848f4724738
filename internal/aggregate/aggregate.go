// Package aggregate answers windowed, bucketed queries over the metric
// store. All operations are read-only, run concurrently with the
// pollers and tolerate gaps: a bucket without samples is reported as
// explicit absence, never as zero.
package aggregate

import (
	"time"

	"codeberg.org/mutker/axemon/internal/errors"
	"codeberg.org/mutker/axemon/internal/store"
)

// Swarm selects all devices treated as one logical unit.
const Swarm = "swarm"

// Field names a metric column that can be bucketed and averaged.
type Field string

const (
	FieldHashrate      Field = "hashrate"
	FieldPower         Field = "power"
	FieldASICTemp      Field = "asic_temp"
	FieldVRegTemp      Field = "vreg_temp"
	FieldFanRPM        Field = "fan_rpm"
	FieldEfficiencyJTH Field = "efficiency_jth"
	FieldEfficiencyGHW Field = "efficiency_ghw"
)

func (f Field) valid() bool {
	switch f {
	case FieldHashrate, FieldPower, FieldASICTemp, FieldVRegTemp,
		FieldFanRPM, FieldEfficiencyJTH, FieldEfficiencyGHW:
		return true
	default:
		return false
	}
}

func fieldValue(f Field, m *store.Metric) float64 {
	switch f {
	case FieldHashrate:
		return m.Hashrate
	case FieldPower:
		return m.Power
	case FieldASICTemp:
		return m.ASICTemp
	case FieldVRegTemp:
		return m.VRegTemp
	case FieldFanRPM:
		return float64(m.FanRPM)
	case FieldEfficiencyJTH:
		return m.EfficiencyJTH
	case FieldEfficiencyGHW:
		return m.EfficiencyGHW
	default:
		return 0
	}
}

// Point is one bucket of a trend. HasData distinguishes a true zero
// from an uninhabited bucket; consumers must not treat absence as zero
// load.
type Point struct {
	Timestamp time.Time
	Value     float64
	HasData   bool
}

// Trend is an ordered sequence of equal-width buckets covering a
// lookback window.
type Trend struct {
	Field       Field
	BucketWidth time.Duration
	Points      []Point
}

// Service is the read-only query layer over the store.
type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

func validateRequest(target string, window time.Duration, buckets int, field Field) error {
	errFactory := errors.New()

	if target == "" {
		return errFactory.WithMessage(errors.ErrInvalidAggregation, "target must be a device id or swarm")
	}
	if window <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidAggregation, "window must be positive")
	}
	if buckets <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidAggregation, "bucket count must be positive")
	}
	if !field.valid() {
		return errFactory.WithData(errors.ErrInvalidAggregation, string(field))
	}

	return nil
}
