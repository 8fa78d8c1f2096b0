package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/MrEthical07/matchauth"
	"github.com/MrEthical07/matchauth/mfa"
)

// PrincipalRepository reads principals and their MFA columns from "principals".
// It implements matchauth.PrincipalStore and mfa.SecretStore.
type PrincipalRepository struct {
	db *DB
}

// CreatePrincipal inserts p. A duplicate username yields ErrPrincipalExists.
func (r *PrincipalRepository) CreatePrincipal(ctx context.Context, p matchauth.Principal) error {
	query, args, err := r.db.sb.Insert("principals").
		Columns("username", "password_hash", "roles", "email_verified", "mfa_enabled", "created_at").
		Values(p.Username, p.PasswordHash, strings.Join(p.Roles, ","), p.EmailVerified, false, millis(p.CreatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrPrincipalExists
		}
		return dbError(ctx, "*PrincipalRepository.CreatePrincipal", err)
	}
	return nil
}

// FindPrincipal loads username or returns mfa.ErrPrincipalNotFound.
func (r *PrincipalRepository) FindPrincipal(ctx context.Context, username string) (matchauth.Principal, error) {
	query, args, err := r.db.sb.
		Select("username", "password_hash", "roles", "email_verified", "mfa_enabled", "created_at").
		From("principals").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return matchauth.Principal{}, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	var (
		p         matchauth.Principal
		roles     string
		createdAt int64
	)
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&p.Username, &p.PasswordHash, &roles, &p.EmailVerified, &p.MFAEnabled, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return matchauth.Principal{}, mfa.ErrPrincipalNotFound
	}
	if err != nil {
		return matchauth.Principal{}, dbError(ctx, "*PrincipalRepository.FindPrincipal", err)
	}

	p.Roles = splitRoles(roles)
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

// SetEmailVerified flips the email_verified flag.
func (r *PrincipalRepository) SetEmailVerified(ctx context.Context, username string, verified bool) error {
	return r.update(ctx, "*PrincipalRepository.SetEmailVerified", username, map[string]any{"email_verified": verified})
}

// MFAState returns the principal's TOTP secret and enabled flag.
func (r *PrincipalRepository) MFAState(ctx context.Context, username string) (mfa.State, error) {
	query, args, err := r.db.sb.Select("mfa_secret", "mfa_enabled").
		From("principals").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return mfa.State{}, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	var (
		secret sql.NullString
		st     mfa.State
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&secret, &st.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return mfa.State{}, mfa.ErrPrincipalNotFound
	}
	if err != nil {
		return mfa.State{}, dbError(ctx, "*PrincipalRepository.MFAState", err)
	}
	st.Secret = secret.String
	return st, nil
}

// SetSecretIfEmpty writes secret only while mfa_secret is NULL and returns whatever
// secret is stored afterwards.
func (r *PrincipalRepository) SetSecretIfEmpty(ctx context.Context, username, secret string) (string, error) {
	query, args, err := r.db.sb.Update("principals").
		Set("mfa_secret", secret).
		Where(sq.Eq{"username": username, "mfa_secret": nil}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", dbError(ctx, "*PrincipalRepository.SetSecretIfEmpty", err)
	}

	st, err := r.MFAState(ctx, username)
	if err != nil {
		return "", err
	}
	return st.Secret, nil
}

// SetEnabled sets mfa_enabled.
func (r *PrincipalRepository) SetEnabled(ctx context.Context, username string, enabled bool) error {
	return r.update(ctx, "*PrincipalRepository.SetEnabled", username, map[string]any{"mfa_enabled": enabled})
}

func (r *PrincipalRepository) update(ctx context.Context, fn, username string, set map[string]any) error {
	query, args, err := r.db.sb.Update("principals").SetMap(set).Where(sq.Eq{"username": username}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return dbError(ctx, fn, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(ctx, fn, err)
	}
	if n == 0 {
		return mfa.ErrPrincipalNotFound
	}
	return nil
}

func splitRoles(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
