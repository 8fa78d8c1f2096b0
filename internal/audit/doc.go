// Package audit delivers security audit events without ever blocking the caller.
//
// # Components
//
//   - [Event] is one append-only record: type, actor, IP, time and metadata.
//   - [Sink] consumes events. [LogSink] writes them through zerolog and counts them.
//   - [Dispatcher] relays events to a sink from a bounded buffer on a background
//     goroutine. A full buffer drops the event and counts the drop; a panicking sink
//     is recovered.
//
// This package does not decide which events to emit; the engine does.
package audit
