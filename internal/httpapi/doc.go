// Package httpapi exposes the matchauth Engine over HTTP/JSON.
//
// Every response carries Cache-Control: no-store. Requests are tagged with a trace
// id (X-Trace-ID, generated when absent) that is attached to the request logger.
// Rejected attempts are answered with 429, a Retry-After header and
// {"error":"too_many_requests","retryAfter":N}.
package httpapi
