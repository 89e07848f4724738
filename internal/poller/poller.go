// Package poller runs one polling actor per device and exposes the
// fleet's current status to presentation layers.
package poller

import (
	"context"

	"codeberg.org/mutker/axemon/internal/errors"
	"codeberg.org/mutker/axemon/internal/logger"
	"codeberg.org/mutker/axemon/internal/store"
	"golang.org/x/sync/errgroup"
)

// Fleet owns the per-device actors. Actors run on independent
// schedules and never block on each other; the only cross-actor
// serialization point is the store's config resolution.
type Fleet struct {
	cfg    Config
	store  *store.Store
	actors map[string]*actor
	order  []string
}

func NewFleet(cfg Config, st *store.Store) (*Fleet, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	return &Fleet{
		cfg:    cfg,
		store:  st,
		actors: make(map[string]*actor),
	}, nil
}

// Add registers a device with its telemetry client. Must be called
// before Run; the fleet is fixed once running.
func (f *Fleet) Add(device Device, client Client) {
	f.actors[device.ID] = newActor(device, client, f.cfg, f.store)
	f.order = append(f.order, device.ID)
}

// Run starts all actors and blocks until the context is cancelled.
// Actors only ever return on cancellation; device and store failures
// are absorbed inside each actor.
func (f *Fleet) Run(ctx context.Context) error {
	logger.Info().
		Int("devices", len(f.actors)).
		Dur("interval", f.cfg.Interval).
		Msg("Starting pollers")

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range f.order {
		a := f.actors[id]
		g.Go(func() error {
			a.run(gctx)
			return nil
		})
	}

	return g.Wait()
}

// Status returns the current status for one device.
func (f *Fleet) Status(deviceID string) (Status, error) {
	a, ok := f.actors[deviceID]
	if !ok {
		return Status{}, errors.New().WithData(ErrUnknownDevice, deviceID)
	}

	return a.currentStatus(), nil
}

// Statuses returns the status of every device in registration order.
func (f *Fleet) Statuses() []Status {
	statuses := make([]Status, 0, len(f.order))
	for _, id := range f.order {
		statuses = append(statuses, f.actors[id].currentStatus())
	}

	return statuses
}

// Snapshot returns the latest stored record for a device, or a
// device-offline error so callers report absence instead of stale
// values.
func (f *Fleet) Snapshot(ctx context.Context, deviceID string) (*store.Metric, error) {
	errFactory := errors.New()

	status, err := f.Status(deviceID)
	if err != nil {
		return nil, err
	}
	if !status.Online {
		return nil, errFactory.WithData(ErrDeviceOffline, deviceID)
	}

	return f.store.LatestMetric(ctx, deviceID)
}
