// Package rate implements fixed-window counters for the login and refresh throttles.
//
// # Window semantics
//
// A window starts on the first hit for a key and lasts for the configured duration.
// The Redis backend uses INCR followed by EXPIRE when the count is 1; the memory
// backend keeps the same semantics in a map swept by a janitor goroutine.
//
// Keys have the form "rl:<action>:<subject>".
//
// # Failure policy
//
// A backend error is never silent: FailOpen allows the request and logs, FailClosed
// rejects it as rate limited.
package rate
