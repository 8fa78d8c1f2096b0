// Package jwt issues and verifies the stateless access tokens handed out after a successful
// login or refresh. Tokens carry the principal in "sub" and are checked for algorithm,
// signature, issuer, audience and expiry.
package jwt
