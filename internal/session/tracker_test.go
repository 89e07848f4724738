package session_test

import (
	"context"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/axemon/internal/errors"
	"codeberg.org/mutker/axemon/internal/session"
	"codeberg.org/mutker/axemon/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*session.Tracker, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	err = st.RegisterDevice(context.Background(), &store.Device{ID: "bitaxe-01", IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	return session.NewTracker(st), st
}

func TestTrackerLifecycle(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()

	id, err := tracker.Start(ctx, "bitaxe-01", 575, 1200, "baseline")
	require.NoError(t, err)
	assert.NotZero(t, id)

	current, err := tracker.Current(ctx, "bitaxe-01")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, id, current.ID)
	assert.Equal(t, "baseline", current.Notes)
	assert.True(t, current.Open())

	require.NoError(t, tracker.End(ctx, "bitaxe-01"))

	current, err = tracker.Current(ctx, "bitaxe-01")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestTrackerSupersede(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()

	first, err := tracker.Start(ctx, "bitaxe-01", 575, 1200, "")
	require.NoError(t, err)

	second, err := tracker.Start(ctx, "bitaxe-01", 600, 1250, "overclock")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	history, err := tracker.History(ctx, "bitaxe-01")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Open(), "Starting a new session closes the previous one")
	assert.True(t, history[1].Open())
	assert.Equal(t, history[1].StartedAt.Unix(), history[0].EndedAt.Unix(),
		"Superseded session ends where the new one starts")
}

func TestTrackerEndWithoutOpen(t *testing.T) {
	tracker, _ := newTracker(t)

	err := tracker.End(context.Background(), "bitaxe-01")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNoOpenSession))
}

func TestTrackerResolvesConfig(t *testing.T) {
	tracker, st := newTracker(t)
	ctx := context.Background()

	_, err := tracker.Start(ctx, "bitaxe-01", 575, 1200, "")
	require.NoError(t, err)

	current, err := tracker.Current(ctx, "bitaxe-01")
	require.NoError(t, err)
	require.NotNil(t, current)

	cc, err := st.GetConfig(ctx, current.ConfigID)
	require.NoError(t, err)
	require.NotNil(t, cc)
	assert.Equal(t, 575, cc.Frequency)
	assert.Equal(t, 1200, cc.CoreVoltage)
}
