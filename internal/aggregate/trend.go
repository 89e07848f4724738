package aggregate

import (
	"context"
	"time"

	"codeberg.org/mutker/axemon/internal/store"
)

// BucketedTrend divides the lookback window [now-window, now) into
// equal half-open buckets and returns the per-bucket arithmetic mean
// of the requested field. The target is a device ID or Swarm. In swarm
// mode each bucket holds the sum of the per-device means over the
// devices that produced at least one sample in that bucket; devices
// silent for a bucket do not contribute.
func (s *Service) BucketedTrend(ctx context.Context, target string, field Field, window time.Duration, buckets int) (*Trend, error) {
	if err := validateRequest(target, window, buckets, field); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	from := now.Add(-window)
	width := window / time.Duration(buckets)

	deviceID := target
	if target == Swarm {
		deviceID = ""
	}

	metrics, err := s.store.MetricsInRange(ctx, deviceID, from, now)
	if err != nil {
		return nil, err
	}

	trend := &Trend{
		Field:       field,
		BucketWidth: width,
		Points:      make([]Point, buckets),
	}
	for i := range trend.Points {
		trend.Points[i].Timestamp = from.Add(time.Duration(i) * width)
	}

	if target == Swarm {
		fillSwarm(trend, metrics, field, from, width)
	} else {
		fillDevice(trend, metrics, field, from, width)
	}

	return trend, nil
}

func bucketIndex(ts, from time.Time, width time.Duration, buckets int) int {
	idx := int(ts.Sub(from) / width)
	if idx < 0 {
		idx = 0
	}
	if idx >= buckets {
		idx = buckets - 1
	}

	return idx
}

func fillDevice(trend *Trend, metrics []*store.Metric, field Field, from time.Time, width time.Duration) {
	n := len(trend.Points)
	sums := make([]float64, n)
	counts := make([]int, n)

	for _, m := range metrics {
		idx := bucketIndex(m.Timestamp, from, width, n)
		sums[idx] += fieldValue(field, m)
		counts[idx]++
	}

	for i := range trend.Points {
		if counts[i] == 0 {
			continue
		}
		trend.Points[i].Value = sums[i] / float64(counts[i])
		trend.Points[i].HasData = true
	}
}

func fillSwarm(trend *Trend, metrics []*store.Metric, field Field, from time.Time, width time.Duration) {
	n := len(trend.Points)

	type cell struct {
		sum   float64
		count int
	}
	perDevice := make([]map[string]*cell, n)
	for i := range perDevice {
		perDevice[i] = make(map[string]*cell)
	}

	for _, m := range metrics {
		idx := bucketIndex(m.Timestamp, from, width, n)
		c := perDevice[idx][m.DeviceID]
		if c == nil {
			c = &cell{}
			perDevice[idx][m.DeviceID] = c
		}
		c.sum += fieldValue(field, m)
		c.count++
	}

	for i := range trend.Points {
		if len(perDevice[i]) == 0 {
			continue
		}
		var total float64
		for _, c := range perDevice[i] {
			total += c.sum / float64(c.count)
		}
		trend.Points[i].Value = total
		trend.Points[i].HasData = true
	}
}
