package store

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/mutker/axemon/internal/errors"
)

// StartSession opens a test session for a device. Any session still
// open for the device is closed first with an end time equal to the new
// session's start, inside one transaction, so at most one open session
// per device ever exists.
func (s *Store) StartSession(ctx context.Context, deviceID string, configID int64, startedAt time.Time, notes string) (int64, error) {
	errFactory := errors.New()

	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	// Stored as UTC text like every other timestamp column.
	startedAt = startedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errFactory.Wrap(ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
        UPDATE sessions SET ended_at = ?
        WHERE device_id = ? AND ended_at IS NULL`,
		startedAt, deviceID); err != nil {
		return 0, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	result, err := tx.ExecContext(ctx, `
        INSERT INTO sessions (device_id, config_id, started_at, notes)
        VALUES (?, ?, ?, ?)`,
		deviceID, configID, startedAt, notes)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, errFactory.WithData(ErrReferentialIntegrity, deviceID)
		}
		return 0, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	id, _ := result.LastInsertId()

	if err := tx.Commit(); err != nil {
		return 0, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return id, nil
}

// EndSession closes the open session for a device. Returns a
// no-open-session error when the device has none.
func (s *Store) EndSession(ctx context.Context, deviceID string, endedAt time.Time) error {
	errFactory := errors.New()

	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	endedAt = endedAt.UTC()

	result, err := s.db.ExecContext(ctx, `
        UPDATE sessions SET ended_at = ?
        WHERE device_id = ? AND ended_at IS NULL`,
		endedAt, deviceID)
	if err != nil {
		return errFactory.Wrap(ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errFactory.Wrap(ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return errFactory.WithData(ErrNoOpenSession, deviceID)
	}

	return nil
}

// OpenSession returns the device's currently open session, or nil.
func (s *Store) OpenSession(ctx context.Context, deviceID string) (*Session, error) {
	errFactory := errors.New()

	row := s.db.QueryRowContext(ctx, `
        SELECT id, device_id, config_id, started_at, ended_at, notes
        FROM sessions
        WHERE device_id = ? AND ended_at IS NULL`, deviceID)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return session, nil
}

// ListSessions returns all sessions for a device, oldest first.
func (s *Store) ListSessions(ctx context.Context, deviceID string) ([]*Session, error) {
	errFactory := errors.New()

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, device_id, config_id, started_at, ended_at, notes
        FROM sessions
        WHERE device_id = ?
        ORDER BY started_at ASC`, deviceID)
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, errFactory.Wrap(ErrStoreUnavailable, err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return sessions, nil
}

func scanSession(row rowScanner) (*Session, error) {
	session := &Session{}
	var endedAt sql.NullTime
	var notes sql.NullString
	err := row.Scan(&session.ID, &session.DeviceID, &session.ConfigID,
		&session.StartedAt, &endedAt, &notes)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		session.EndedAt = endedAt.Time
	}
	session.Notes = notes.String

	return session, nil
}
