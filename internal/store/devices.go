package store

import (
	"context"
	"database/sql"

	"codeberg.org/mutker/axemon/internal/errors"
)

// RegisterDevice inserts or refreshes a device row. Device identity is
// the configured name; the network address and pool fields may change
// between runs.
func (s *Store) RegisterDevice(ctx context.Context, d *Device) error {
	errFactory := errors.New()

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO devices (id, ip_address, hostname, model, stratum_url, stratum_port, stratum_user)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            ip_address = excluded.ip_address,
            hostname = excluded.hostname,
            model = excluded.model,
            stratum_url = excluded.stratum_url,
            stratum_port = excluded.stratum_port,
            stratum_user = excluded.stratum_user`,
		d.ID, d.IPAddress, d.Hostname, d.Model, d.StratumURL, d.StratumPort, d.StratumUser)
	if err != nil {
		return errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return nil
}

// GetDevice returns a device by id, or nil when unknown.
func (s *Store) GetDevice(ctx context.Context, id string) (*Device, error) {
	errFactory := errors.New()

	d := &Device{}
	var hostname, model, stratumURL, stratumUser sql.NullString
	var stratumPort sql.NullInt64
	var addedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
        SELECT id, ip_address, hostname, model, stratum_url, stratum_port, stratum_user, added_at
        FROM devices WHERE id = ?`, id).Scan(
		&d.ID, &d.IPAddress, &hostname, &model, &stratumURL, &stratumPort, &stratumUser, &addedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	d.Hostname = hostname.String
	d.Model = model.String
	d.StratumURL = stratumURL.String
	d.StratumPort = int(stratumPort.Int64)
	d.StratumUser = stratumUser.String
	d.AddedAt = addedAt.Time

	return d, nil
}

// ListDevices returns all registered devices in registration order.
func (s *Store) ListDevices(ctx context.Context) ([]*Device, error) {
	errFactory := errors.New()

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, ip_address, hostname, model, stratum_url, stratum_port, stratum_user, added_at
        FROM devices ORDER BY added_at`)
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		d := &Device{}
		var hostname, model, stratumURL, stratumUser sql.NullString
		var stratumPort sql.NullInt64
		var addedAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.IPAddress, &hostname, &model, &stratumURL, &stratumPort, &stratumUser, &addedAt); err != nil {
			return nil, errFactory.Wrap(ErrStoreUnavailable, err)
		}
		d.Hostname = hostname.String
		d.Model = model.String
		d.StratumURL = stratumURL.String
		d.StratumPort = int(stratumPort.Int64)
		d.StratumUser = stratumUser.String
		d.AddedAt = addedAt.Time
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	return devices, nil
}
