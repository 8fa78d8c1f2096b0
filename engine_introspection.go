package matchauth

import (
	"context"
	"errors"
)

// Authenticate verifies an access token and returns its subject.
func (e *Engine) Authenticate(_ context.Context, accessToken string) (string, error) {
	claims, err := e.tokens.Parse(accessToken)
	if err != nil {
		return "", newError(KindUnauthorized, err)
	}
	return claims.Subject, nil
}

// Me verifies an access token and returns the principal's current identity. Tokens
// of deleted principals are rejected.
func (e *Engine) Me(ctx context.Context, accessToken string) (*Identity, error) {
	username, err := e.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	p, err := e.principals.FindPrincipal(ctx, username)
	if errors.Is(err, ErrPrincipalNotFound) {
		return nil, newError(KindUnauthorized, err)
	}
	if err != nil {
		return nil, newError(KindPersistence, err)
	}
	return &Identity{
		Username: p.Username,
		Roles:    append([]string(nil), p.Roles...),
	}, nil
}
