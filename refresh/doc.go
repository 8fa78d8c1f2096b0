// Package refresh manages opaque, rotating refresh tokens.
//
// # Token format
//
// A refresh credential is a pair of independent random values, the token and its nonce,
// each 32 bytes encoded as unpadded base64url. Only SHA-256 hashes of both are persisted.
// The plaintext pair is returned exactly once, at creation.
//
// # Rotation
//
// A validated record is revoked and its replacement inserted in one store transaction.
// The revoke is conditional on the record still being live, so of two concurrent rotations
// of the same record exactly one succeeds.
//
// # Failures
//
// Unknown, revoked, expired and nonce-mismatched credentials all surface as
// [ErrInvalidRefreshToken]. Storage failures surface as [ErrPersistence].
package refresh
