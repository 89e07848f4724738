// Package store provides SQLite persistence for the device registry,
// clock configuration registry, performance metrics time series and
// test sessions.
package store

import "time"

// Device represents a monitored unit. Registered at startup from
// configuration; never deleted at runtime.
type Device struct {
	ID          string
	IPAddress   string
	Hostname    string
	Model       string
	StratumURL  string
	StratumPort int
	StratumUser string
	AddedAt     time.Time
}

// ClockConfig is a (frequency, core_voltage) operating point. The pair
// is globally unique; rows accumulate and are never mutated.
type ClockConfig struct {
	ID          int64
	Frequency   int
	CoreVoltage int
}

// Metric is one immutable telemetry sample. EfficiencyJTH and
// EfficiencyGHW are derived from the raw fields at write time and are
// never edited independently.
type Metric struct {
	ID        int64
	DeviceID  string
	Timestamp time.Time
	ConfigID  int64

	Hashrate float64 // GH/s
	Power    float64 // W
	Voltage  float64 // input V
	Current  float64 // A

	ASICTemp float64
	VRegTemp float64
	FanSpeed int
	FanRPM   int

	SharesAccepted int64
	SharesRejected int64
	Uptime         int64 // device-reported seconds since boot

	EfficiencyJTH float64 // J/TH, energy per hash
	EfficiencyGHW float64 // GH/W, hash per energy

	BestDiff float64
}

// Session is an explicit test bracket for a device and configuration.
// EndedAt is zero while the session is open.
type Session struct {
	ID        int64
	DeviceID  string
	ConfigID  int64
	StartedAt time.Time
	EndedAt   time.Time
	Notes     string
}

// Open reports whether the session has not been closed yet.
func (s *Session) Open() bool {
	return s.EndedAt.IsZero()
}

// ConfigSummary aggregates a device's metrics for one configuration.
type ConfigSummary struct {
	ConfigID    int64
	Frequency   int
	CoreVoltage int
	SampleCount int64

	AvgHashrate float64
	MinHashrate float64
	MaxHashrate float64

	AvgPower         float64
	MaxPower         float64
	AvgEfficiencyJTH float64
	AvgEfficiencyGHW float64

	AvgASICTemp float64
	MaxASICTemp float64
	AvgVRegTemp float64
	MaxVRegTemp float64

	AvgInputVoltage float64
	MinInputVoltage float64

	FirstSeen time.Time
	LastSeen  time.Time
}

// Efficiency derives the energy-per-hash and hash-per-energy figures
// from raw hashrate (GH/s) and power (W). A zero hashrate yields zero
// energy-per-hash and a zero power yields zero hash-per-energy, so the
// derivation never divides by zero.
func Efficiency(hashrate, power float64) (jth, ghw float64) {
	if hashrate > 0 {
		jth = power / (hashrate / 1000)
	}
	if power > 0 {
		ghw = hashrate / power
	}

	return jth, ghw
}
