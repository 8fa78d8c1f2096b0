// Package middleware exposes HTTP guards that authenticate requests against a
// matchauth Engine.
//
// # Guards
//
//   - [Guard] verifies the bearer access token only. No storage call is made.
//   - [RequireIdentity] also loads the principal, so tokens of deleted principals
//     are rejected.
//
// Both guards read the Authorization header, delegate the decision to the Engine
// and store the result in the request context. Rejections are answered with 401
// and {"error":"unauthorized"}.
package middleware
