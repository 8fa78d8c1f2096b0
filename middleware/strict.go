package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/matchauth"
)

// IdentityResolver verifies an access token and loads the principal behind it.
// *matchauth.Engine implements it.
type IdentityResolver interface {
	Me(ctx context.Context, accessToken string) (*matchauth.Identity, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by RequireIdentity.
func IdentityFromContext(ctx context.Context) (*matchauth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*matchauth.Identity)
	return id, ok
}

// RequireIdentity is Guard plus a principal lookup on every request.
func RequireIdentity(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				unauthorized(w)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			id, err := resolver.Me(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			ctx = context.WithValue(ctx, principalContextKey{}, id.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
