package store

import (
	"context"
	"database/sql"

	"codeberg.org/mutker/axemon/internal/errors"
)

// ResolveConfig returns the id for a (frequency, core_voltage) pair,
// creating the row on first observation. The insert is an
// insert-if-absent against the UNIQUE(frequency, core_voltage)
// constraint, so concurrent resolvers of the same new pair converge on
// a single row. Idempotent; there is no update or delete.
func (s *Store) ResolveConfig(ctx context.Context, frequency, coreVoltage int) (int64, error) {
	errFactory := errors.New()

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO clock_configs (frequency, core_voltage) VALUES (?, ?)
        ON CONFLICT(frequency, core_voltage) DO NOTHING`,
		frequency, coreVoltage)
	if err != nil {
		return 0, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM clock_configs WHERE frequency = ? AND core_voltage = ?",
		frequency, coreVoltage).Scan(&id)
	if err != nil {
		return 0, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return id, nil
}

// GetConfig returns a clock configuration by id, or nil when unknown.
func (s *Store) GetConfig(ctx context.Context, id int64) (*ClockConfig, error) {
	errFactory := errors.New()

	cc := &ClockConfig{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, frequency, core_voltage FROM clock_configs WHERE id = ?",
		id).Scan(&cc.ID, &cc.Frequency, &cc.CoreVoltage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return cc, nil
}
