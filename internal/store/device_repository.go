package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MrEthical07/matchauth/device"
)

// TrustedDeviceRepository implements device.Store over "trusted_devices".
type TrustedDeviceRepository struct {
	db *DB
}

// Upsert inserts d or moves trusted_until of the existing (username, device_id) row.
func (r *TrustedDeviceRepository) Upsert(ctx context.Context, d device.Device) error {
	query, args, err := r.db.sb.Insert("trusted_devices").
		Columns("username", "device_id", "trusted_until", "created_at").
		Values(d.Username, d.DeviceID, millis(d.TrustedUntil), millis(d.CreatedAt)).
		Suffix("ON CONFLICT (username, device_id) DO UPDATE SET trusted_until = excluded.trusted_until").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return dbError(ctx, "*TrustedDeviceRepository.Upsert", err)
	}
	return nil
}

// Get loads one device or returns device.ErrNotFound.
func (r *TrustedDeviceRepository) Get(ctx context.Context, username, deviceID string) (device.Device, error) {
	query, args, err := r.db.sb.Select("username", "device_id", "trusted_until", "created_at").
		From("trusted_devices").
		Where(sq.Eq{"username": username, "device_id": deviceID}).
		ToSql()
	if err != nil {
		return device.Device{}, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return device.Device{}, device.ErrNotFound
	}
	if err != nil {
		return device.Device{}, dbError(ctx, "*TrustedDeviceRepository.Get", err)
	}
	return d, nil
}

// List returns all devices of username, expired ones included.
func (r *TrustedDeviceRepository) List(ctx context.Context, username string) ([]device.Device, error) {
	query, args, err := r.db.sb.Select("username", "device_id", "trusted_until", "created_at").
		From("trusted_devices").
		Where(sq.Eq{"username": username}).
		OrderBy("trusted_until DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(ctx, "*TrustedDeviceRepository.List", err)
	}
	defer rows.Close()

	var out []device.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, dbError(ctx, "*TrustedDeviceRepository.List", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(ctx, "*TrustedDeviceRepository.List", err)
	}
	return out, nil
}

// Delete removes a device, returning device.ErrNotFound when nothing matched.
func (r *TrustedDeviceRepository) Delete(ctx context.Context, username, deviceID string) error {
	query, args, err := r.db.sb.Delete("trusted_devices").
		Where(sq.Eq{"username": username, "device_id": deviceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return dbError(ctx, "*TrustedDeviceRepository.Delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(ctx, "*TrustedDeviceRepository.Delete", err)
	}
	if n == 0 {
		return device.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (device.Device, error) {
	var (
		d                       device.Device
		trustedUntil, createdAt int64
	)
	if err := row.Scan(&d.Username, &d.DeviceID, &trustedUntil, &createdAt); err != nil {
		return device.Device{}, err
	}
	d.TrustedUntil = fromMillis(trustedUntil)
	d.CreatedAt = fromMillis(createdAt)
	return d, nil
}
