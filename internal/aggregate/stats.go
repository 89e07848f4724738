package aggregate

import (
	"context"
	"math"
	"time"
)

// MovingAverage smooths a trend with a rolling mean over the trailing
// window of buckets. Empty buckets are skipped rather than counted as
// zero; a position whose whole window is empty stays empty. A window
// of zero or larger than the series averages over everything seen so
// far.
func MovingAverage(points []Point, window int) []Point {
	out := make([]Point, len(points))

	for i := range points {
		out[i].Timestamp = points[i].Timestamp

		start := 0
		if window > 0 && i+1 > window {
			start = i + 1 - window
		}

		var sum float64
		var count int
		for j := start; j <= i; j++ {
			if !points[j].HasData {
				continue
			}
			sum += points[j].Value
			count++
		}

		if count == 0 {
			continue
		}
		out[i].Value = sum / float64(count)
		out[i].HasData = true
	}

	return out
}

// WindowStability is the hashrate variability over one lookback window.
// CV is the coefficient of variation in percent; Samples counts the
// buckets that held data.
type WindowStability struct {
	Window  time.Duration
	CV      float64
	Samples int
}

// Stability measures how steady the target's hashrate has been over
// the window, as the coefficient of variation (stddev over mean, in
// percent) across the non-empty buckets. Fewer than two inhabited
// buckets, or a zero mean, yields 0.
func (s *Service) Stability(ctx context.Context, target string, window time.Duration, buckets int) (WindowStability, error) {
	trend, err := s.BucketedTrend(ctx, target, FieldHashrate, window, buckets)
	if err != nil {
		return WindowStability{}, err
	}

	ws := WindowStability{Window: window}
	ws.CV, ws.Samples = coefficientOfVariation(trend.Points)

	return ws, nil
}

// StabilityWindows evaluates Stability over several lookback windows at
// once, preserving the order of the input.
func (s *Service) StabilityWindows(ctx context.Context, target string, windows []time.Duration, buckets int) ([]WindowStability, error) {
	out := make([]WindowStability, 0, len(windows))

	for _, w := range windows {
		ws, err := s.Stability(ctx, target, w, buckets)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}

	return out, nil
}

func coefficientOfVariation(points []Point) (cv float64, samples int) {
	var sum float64
	for i := range points {
		if !points[i].HasData {
			continue
		}
		sum += points[i].Value
		samples++
	}
	if samples < 2 {
		return 0, samples
	}

	mean := sum / float64(samples)
	if mean == 0 {
		return 0, samples
	}

	var sq float64
	for i := range points {
		if !points[i].HasData {
			continue
		}
		d := points[i].Value - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(samples))

	return stddev / mean * 100, samples
}
