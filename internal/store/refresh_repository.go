package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MrEthical07/matchauth/refresh"
)

// RefreshTokenRepository implements refresh.Store over "refresh_tokens".
type RefreshTokenRepository struct {
	db *DB
}

var refreshColumns = []string{
	"id", "username", "token_hash", "nonce_hash", "issued_at", "expires_at", "revoked_at", "rotated_from",
}

// Insert stores a new live record.
func (r *RefreshTokenRepository) Insert(ctx context.Context, rec refresh.Record) error {
	return r.insert(ctx, r.db, rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *RefreshTokenRepository) insert(ctx context.Context, ex execer, rec refresh.Record) error {
	var rotatedFrom any
	if rec.RotatedFrom != "" {
		rotatedFrom = rec.RotatedFrom
	}
	query, args, err := r.db.sb.Insert("refresh_tokens").
		Columns(refreshColumns...).
		Values(rec.ID, rec.Principal, rec.TokenHash, rec.NonceHash,
			millis(rec.IssuedAt), millis(rec.ExpiresAt), nil, rotatedFrom).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return dbError(ctx, "*RefreshTokenRepository.insert", err)
	}
	return nil
}

// FindByTokenHash loads the record for tokenHash, revoked or not.
func (r *RefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (refresh.Record, error) {
	query, args, err := r.db.sb.Select(refreshColumns...).
		From("refresh_tokens").
		Where(sq.Eq{"token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return refresh.Record{}, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	var (
		rec                 refresh.Record
		issuedAt, expiresAt int64
		revokedAt           sql.NullInt64
		rotatedFrom         sql.NullString
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID, &rec.Principal, &rec.TokenHash, &rec.NonceHash,
		&issuedAt, &expiresAt, &revokedAt, &rotatedFrom,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return refresh.Record{}, refresh.ErrRecordNotFound
	}
	if err != nil {
		return refresh.Record{}, dbError(ctx, "*RefreshTokenRepository.FindByTokenHash", err)
	}

	rec.IssuedAt = fromMillis(issuedAt)
	rec.ExpiresAt = fromMillis(expiresAt)
	rec.RevokedAt = nullableMillis(revokedAt)
	rec.RotatedFrom = rotatedFrom.String
	return rec, nil
}

// Rotate revokes oldID if it is still live and inserts next, atomically. A record
// that is already revoked yields refresh.ErrRotationConflict and nothing is written.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldID string, revokedAt time.Time, next refresh.Record) error {
	query, args, err := r.db.sb.Update("refresh_tokens").
		Set("revoked_at", millis(revokedAt)).
		Where(sq.Eq{"id": oldID, "revoked_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return dbError(ctx, "*RefreshTokenRepository.Rotate", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return dbError(ctx, "*RefreshTokenRepository.Rotate", err)
		}
		if n != 1 {
			return refresh.ErrRotationConflict
		}
		return r.insert(ctx, tx, next)
	})
}

// RevokeByTokenHash revokes the live record for tokenHash, if any.
func (r *RefreshTokenRepository) RevokeByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	_, err := r.revokeWhere(ctx, "*RefreshTokenRepository.RevokeByTokenHash", sq.Eq{"token_hash": tokenHash, "revoked_at": nil}, revokedAt)
	return err
}

// RevokeAllForPrincipal revokes every live record of principal.
func (r *RefreshTokenRepository) RevokeAllForPrincipal(ctx context.Context, principal string, revokedAt time.Time) (int64, error) {
	return r.revokeWhere(ctx, "*RefreshTokenRepository.RevokeAllForPrincipal", sq.Eq{"username": principal, "revoked_at": nil}, revokedAt)
}

func (r *RefreshTokenRepository) revokeWhere(ctx context.Context, fn string, where sq.Eq, at time.Time) (int64, error) {
	query, args, err := r.db.sb.Update("refresh_tokens").
		Set("revoked_at", millis(at)).
		Where(where).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dbError(ctx, fn, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbError(ctx, fn, err)
	}
	return n, nil
}

// DeleteExpired removes records that expired before cutoff. Revoked rows are kept
// until they expire so reuse of a rotated token is still recognised.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := r.db.sb.Delete("refresh_tokens").
		Where(sq.Lt{"expires_at": millis(cutoff)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dbError(ctx, "*RefreshTokenRepository.DeleteExpired", err)
	}
	return res.RowsAffected()
}
