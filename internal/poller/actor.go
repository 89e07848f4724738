package poller

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/axemon/internal/errors"
	"codeberg.org/mutker/axemon/internal/logger"
	"codeberg.org/mutker/axemon/internal/store"
)

// actor polls one device on its own schedule. Failures stay inside the
// actor: a fetch or store error adjusts backoff state and nothing else,
// so one bad device can never stall the rest of the fleet.
type actor struct {
	device Device
	client Client
	cfg    Config
	store  *store.Store

	mu     sync.Mutex
	status Status

	// Last successfully written record's config and uptime, owned by
	// this actor alone; config-change and restart comparisons happen
	// only here.
	lastConfigID int64
	lastUptime   int64
	primed       bool
}

func newActor(device Device, client Client, cfg Config, st *store.Store) *actor {
	return &actor{
		device: device,
		client: client,
		cfg:    cfg,
		store:  st,
		status: Status{DeviceID: device.ID},
	}
}

// run drives the tick loop until the context is cancelled. The cadence
// is measured start-to-start; a failed tick replaces the interval with
// the current backoff delay.
func (a *actor) run(ctx context.Context) {
	a.prime(ctx)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		tickStart := time.Now()
		a.tick(ctx)

		wait := a.nextDelay() - time.Since(tickStart)
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

// prime seeds change detection from the last persisted record so a
// process restart does not report a spurious config change or miss a
// device reboot that happened while we were down.
func (a *actor) prime(ctx context.Context) {
	last, err := a.store.LatestMetric(ctx, a.device.ID)
	if err != nil {
		logger.Debug().Err(err).Str("device", a.device.ID).Msg("Failed to load last metric")
		return
	}
	if last != nil {
		a.lastConfigID = last.ConfigID
		a.lastUptime = last.Uptime
		a.primed = true
	}
}

func (a *actor) tick(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	sample, err := a.client.Fetch(fetchCtx)
	cancel()

	if err != nil {
		a.recordFailure(err)
		return
	}

	a.recordSuccess(ctx, sample)
}

// nextDelay returns the time from this tick's start to the next one:
// the configured interval while healthy, exponential backoff capped at
// the ceiling while failing.
func (a *actor) nextDelay() time.Duration {
	a.mu.Lock()
	failures := a.status.ConsecutiveFailures
	a.mu.Unlock()

	if failures == 0 {
		return a.cfg.Interval
	}

	delay := a.cfg.Interval
	for i := 1; i < failures && delay < a.cfg.MaxBackoff; i++ {
		delay *= 2
	}
	if delay > a.cfg.MaxBackoff {
		delay = a.cfg.MaxBackoff
	}

	return delay
}

func (a *actor) recordFailure(err error) {
	a.mu.Lock()
	a.status.ConsecutiveFailures++
	a.status.LastError = err.Error()
	wentOffline := a.status.ConsecutiveFailures == a.cfg.OfflineThreshold
	if a.status.ConsecutiveFailures >= a.cfg.OfflineThreshold {
		a.status.Online = false
	}
	failures := a.status.ConsecutiveFailures
	a.mu.Unlock()

	if wentOffline {
		logger.Warn().
			Str("device", a.device.ID).
			Int("consecutive_failures", failures).
			Msg("Device marked offline")
	} else {
		logger.Debug().
			Str("device", a.device.ID).
			Int("consecutive_failures", failures).
			Err(err).
			Msg("Fetch failed")
	}
}

func (a *actor) recordSuccess(ctx context.Context, sample *Sample) {
	a.mu.Lock()
	wasOffline := !a.status.Online && a.status.ConsecutiveFailures >= a.cfg.OfflineThreshold
	a.status.ConsecutiveFailures = 0
	a.status.LastError = ""
	a.status.Online = true
	a.status.LastSuccess = time.Now()
	a.mu.Unlock()

	if wasOffline {
		logger.Info().Str("device", a.device.ID).Msg("Device back online")
	}

	a.persist(ctx, sample)
}

// persist resolves the active configuration, flags config changes and
// restarts, and appends the sample. A failed append drops the sample;
// the next tick supersedes it.
func (a *actor) persist(ctx context.Context, sample *Sample) {
	if err := a.store.RegisterDevice(ctx, &store.Device{
		ID:          a.device.ID,
		IPAddress:   a.device.Address,
		Hostname:    sample.Hostname,
		Model:       sample.Model,
		StratumURL:  sample.StratumURL,
		StratumPort: sample.StratumPort,
		StratumUser: sample.StratumUser,
	}); err != nil {
		logger.Warn().Err(err).Str("device", a.device.ID).Msg("Device registration failed, dropping sample")
		return
	}

	configID, err := a.store.ResolveConfig(ctx, sample.Frequency, sample.CoreVoltage)
	if err != nil {
		logger.Warn().Err(err).Str("device", a.device.ID).Msg("Config resolution failed, dropping sample")
		return
	}

	if a.primed && a.lastConfigID != configID {
		a.mu.Lock()
		a.status.ConfigChanges++
		a.mu.Unlock()
		logger.Info().
			Str("device", a.device.ID).
			Int64("old_config", a.lastConfigID).
			Int64("new_config", configID).
			Int("frequency", sample.Frequency).
			Int("core_voltage", sample.CoreVoltage).
			Msg("Configuration changed")
	}
	if a.primed && sample.Uptime < a.lastUptime {
		a.mu.Lock()
		a.status.Restarts++
		a.mu.Unlock()
		logger.Info().
			Str("device", a.device.ID).
			Int64("previous_uptime", a.lastUptime).
			Int64("reported_uptime", sample.Uptime).
			Msg("Device restart detected")
	}

	metric := &store.Metric{
		DeviceID:       a.device.ID,
		ConfigID:       configID,
		Hashrate:       sample.Hashrate,
		Power:          sample.Power,
		Voltage:        sample.Voltage,
		Current:        sample.Current,
		ASICTemp:       sample.ASICTemp,
		VRegTemp:       sample.VRegTemp,
		FanSpeed:       sample.FanSpeed,
		FanRPM:         sample.FanRPM,
		SharesAccepted: sample.SharesAccepted,
		SharesRejected: sample.SharesRejected,
		Uptime:         sample.Uptime,
		BestDiff:       sample.BestDiff,
	}

	if err := a.store.AppendMetric(ctx, metric); err != nil {
		if errors.IsCode(err, errors.ErrReferentialIntegrity) {
			logger.Error().Err(err).Str("device", a.device.ID).Msg("Sample references unknown device or config, dropped")
		} else {
			logger.Warn().Err(err).Str("device", a.device.ID).Msg("Append failed, sample dropped")
		}
		return
	}

	a.lastConfigID = configID
	a.lastUptime = sample.Uptime
	a.primed = true

	logger.Info().
		Str("device", a.device.ID).
		Float64("hashrate_ghs", sample.Hashrate).
		Float64("asic_temp", sample.ASICTemp).
		Float64("power_w", sample.Power).
		Float64("efficiency_jth", metric.EfficiencyJTH).
		Int("frequency", sample.Frequency).
		Int("core_voltage", sample.CoreVoltage).
		Msg("Sample stored")
}

// currentStatus returns a copy of the actor's status.
func (a *actor) currentStatus() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.status
}
