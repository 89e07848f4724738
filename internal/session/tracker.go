// Package session brackets test windows for a device and clock
// configuration. Sessions label the record stream for reporting; they
// never constrain what the pollers write.
package session

import (
	"context"
	"time"

	"codeberg.org/mutker/axemon/internal/logger"
	"codeberg.org/mutker/axemon/internal/store"
)

type Tracker struct {
	store *store.Store
}

func NewTracker(st *store.Store) *Tracker {
	return &Tracker{store: st}
}

// Start opens a session for the device at the given operating point,
// resolving the configuration through the registry first. An already
// open session for the device is superseded: it is closed with an end
// time equal to this session's start.
func (t *Tracker) Start(ctx context.Context, deviceID string, frequency, coreVoltage int, notes string) (int64, error) {
	configID, err := t.store.ResolveConfig(ctx, frequency, coreVoltage)
	if err != nil {
		return 0, err
	}

	startedAt := time.Now()
	id, err := t.store.StartSession(ctx, deviceID, configID, startedAt, notes)
	if err != nil {
		return 0, err
	}

	logger.Info().
		Str("device", deviceID).
		Int64("session", id).
		Int("frequency", frequency).
		Int("core_voltage", coreVoltage).
		Msg("Session started")

	return id, nil
}

// End closes the device's open session. Returns a no-open-session
// error when there is nothing to close.
func (t *Tracker) End(ctx context.Context, deviceID string) error {
	if err := t.store.EndSession(ctx, deviceID, time.Now()); err != nil {
		return err
	}

	logger.Info().Str("device", deviceID).Msg("Session ended")

	return nil
}

// Current returns the device's open session, or nil.
func (t *Tracker) Current(ctx context.Context, deviceID string) (*store.Session, error) {
	return t.store.OpenSession(ctx, deviceID)
}

// History returns all sessions for a device, oldest first.
func (t *Tracker) History(ctx context.Context, deviceID string) ([]*store.Session, error) {
	return t.store.ListSessions(ctx, deviceID)
}
