package poller

import (
	"context"
	"time"
)

// Client fetches one telemetry sample from a device. Implementations
// must honor the context deadline; the actor bounds every fetch with
// its configured timeout.
type Client interface {
	Fetch(ctx context.Context) (*Sample, error)
}

// Sample is the parsed telemetry a device reports on one fetch.
type Sample struct {
	Hostname string
	Model    string

	Hashrate float64 // GH/s
	Power    float64 // W
	Voltage  float64 // input V
	Current  float64 // A

	Frequency   int // MHz
	CoreVoltage int // mV

	ASICTemp float64
	VRegTemp float64
	FanSpeed int
	FanRPM   int

	SharesAccepted int64
	SharesRejected int64
	Uptime         int64 // seconds since device boot

	BestDiff float64

	StratumURL  string
	StratumPort int
	StratumUser string
}

// Device identifies one polled unit.
type Device struct {
	ID      string
	Address string
}

// Status is the actor's current-state contract consumed by
// presentation layers. Offline is a poller-level signal, never a store
// write; stale metrics for an offline device are reported as offline,
// not as current values.
type Status struct {
	DeviceID            string
	Online              bool
	ConsecutiveFailures int
	LastError           string
	LastSuccess         time.Time
	ConfigChanges       int64
	Restarts            int64
}
