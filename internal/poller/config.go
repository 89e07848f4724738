package poller

import (
	"time"

	"codeberg.org/mutker/axemon/internal/errors"
)

type Config struct {
	// Interval is the tick cadence, measured from the start of one tick
	// to the start of the next.
	Interval time.Duration
	// FetchTimeout bounds each device fetch so an unreachable device
	// cannot stall its actor's schedule.
	FetchTimeout time.Duration
	// MaxBackoff caps the exponential backoff applied after failures.
	MaxBackoff time.Duration
	// OfflineThreshold is the number of consecutive failures after
	// which a device is reported offline.
	OfflineThreshold int
}

func DefaultConfig() Config {
	return Config{
		Interval:         30 * time.Second,
		FetchTimeout:     5 * time.Second,
		MaxBackoff:       5 * time.Minute,
		OfflineThreshold: 3,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.New(errors.ErrInvalidInterval)
	}
	if c.FetchTimeout <= 0 || c.MaxBackoff <= 0 || c.OfflineThreshold <= 0 {
		return errFactory.New(ErrInvalidConfig)
	}

	return nil
}
