// Package matchauth authenticates players and organizers of the meetup service.
// It issues short-lived JWT access tokens and single-use rotating refresh tokens, and it
// gates logins behind TOTP or recovery codes when MFA is enabled.
//
// An [Engine] is assembled with [New] and [Builder.Build]. All methods are safe for
// concurrent use after Build returns.
//
// # Flows
//
// [Engine.Login] checks the anti-abuse gatekeeper and the password verifier. The result
// is either a [TokenPair] or an MFA challenge to finish through [Engine.CompleteMFA].
// [Engine.Refresh] rotates a refresh token bound to its client nonce. Presenting an
// already rotated token revokes the whole chain for the principal.
//
// # Errors
//
// Every failure is an [*Error] with a [Kind]. Callers branch on [KindOf] and read
// [RetryAfterOf] for rate-limited requests. Messages never reveal whether a username
// exists.
//
// # Boundaries
//
// Persistence, captcha checks and metrics are injected through the interfaces in
// collaborators.go. Concrete SQL and Redis stores live under internal/ and import this
// package, never the other way round.
package matchauth
