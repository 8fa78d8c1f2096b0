// Package stores keeps short-lived MFA login challenges.
//
// # Design
//
// A challenge is created when a login passes the password check but still needs a
// second factor. It carries the principal, the device the login came from and a
// failure counter, and expires after a TTL.
//
// Two implementations share the [ChallengeStore] contract: [RedisChallengeStore]
// persists a versioned binary record with a TTL and updates the failure counter in a
// WATCH/MULTI transaction; [MemoryChallengeStore] keeps records in process for
// single-instance deployments and tests.
//
// Delete reports whether a record was removed so a challenge can be completed at
// most once even under concurrent requests.
package stores
