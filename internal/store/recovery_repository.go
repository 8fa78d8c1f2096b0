package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MrEthical07/matchauth/mfa"
)

// RecoveryCodeRepository implements mfa.RecoveryStore over "mfa_recovery_codes".
type RecoveryCodeRepository struct {
	db *DB
}

// ReplaceCodes deletes every code of username and inserts codes in one transaction.
func (r *RecoveryCodeRepository) ReplaceCodes(ctx context.Context, username string, codes []mfa.RecoveryCode) error {
	delQuery, delArgs, err := r.db.sb.Delete("mfa_recovery_codes").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	ins := r.db.sb.Insert("mfa_recovery_codes").
		Columns("id", "username", "code_hash", "created_at", "consumed_at")
	for _, c := range codes {
		ins = ins.Values(c.ID, username, c.Hash, millis(c.CreatedAt), nil)
	}
	insQuery, insArgs, err := ins.ToSql()
	if len(codes) > 0 && err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
			return dbError(ctx, "*RecoveryCodeRepository.ReplaceCodes", err)
		}
		if len(codes) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
			return dbError(ctx, "*RecoveryCodeRepository.ReplaceCodes", err)
		}
		return nil
	})
}

// ConsumeCode marks the unconsumed code with codeHash consumed. It is a single
// conditional UPDATE, so concurrent callers cannot both succeed.
func (r *RecoveryCodeRepository) ConsumeCode(ctx context.Context, codeHash string, at time.Time) (bool, error) {
	return r.consume(ctx, sq.Eq{"code_hash": codeHash, "consumed_at": nil}, at)
}

// ConsumeCodeFor is ConsumeCode restricted to username's codes.
func (r *RecoveryCodeRepository) ConsumeCodeFor(ctx context.Context, username, codeHash string, at time.Time) (bool, error) {
	return r.consume(ctx, sq.Eq{"username": username, "code_hash": codeHash, "consumed_at": nil}, at)
}

func (r *RecoveryCodeRepository) consume(ctx context.Context, where sq.Eq, at time.Time) (bool, error) {
	query, args, err := r.db.sb.Update("mfa_recovery_codes").
		Set("consumed_at", millis(at)).
		Where(where).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, dbError(ctx, "*RecoveryCodeRepository.consume", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbError(ctx, "*RecoveryCodeRepository.consume", err)
	}
	return n > 0, nil
}

// ListCodes returns every code of username, consumed ones included.
func (r *RecoveryCodeRepository) ListCodes(ctx context.Context, username string) ([]mfa.RecoveryCode, error) {
	query, args, err := r.db.sb.Select("id", "username", "code_hash", "created_at", "consumed_at").
		From("mfa_recovery_codes").
		Where(sq.Eq{"username": username}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(ctx, "*RecoveryCodeRepository.ListCodes", err)
	}
	defer rows.Close()

	var out []mfa.RecoveryCode
	for rows.Next() {
		var (
			c          mfa.RecoveryCode
			createdAt  int64
			consumedAt sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Username, &c.Hash, &createdAt, &consumedAt); err != nil {
			return nil, dbError(ctx, "*RecoveryCodeRepository.ListCodes", err)
		}
		c.CreatedAt = fromMillis(createdAt)
		c.ConsumedAt = nullableMillis(consumedAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(ctx, "*RecoveryCodeRepository.ListCodes", err)
	}
	return out, nil
}
