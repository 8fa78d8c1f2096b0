package audit

import (
	"context"
	"time"

	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/metrics"
)

// Event types.
const (
	LoginSuccess             = "loginSuccess"
	LoginFailure             = "loginFailure"
	LoginLocked              = "loginLocked"
	RefreshIssued            = "refreshIssued"
	Logout                   = "logout"
	PasswordChanged          = "passwordChanged"
	PasswordReset            = "passwordReset"
	VerificationSucceeded    = "verificationSucceeded"
	EmailChangeRequested     = "emailChangeRequested"
	EmailChangeConfirmed     = "emailChangeConfirmed"
	SuspiciousActivity       = "suspiciousActivity"
	MFAChallengeIssued       = "mfaChallengeIssued"
	MFASucceeded             = "mfaSucceeded"
	MFAFailed                = "mfaFailed"
	MFAEnrolled              = "mfaEnrolled"
	MFAEnabled               = "mfaEnabled"
	MFADisabled              = "mfaDisabled"
	RecoveryCodesRegenerated = "recoveryCodesRegenerated"
	RecoveryCodeUsed         = "recoveryCodeUsed"
	DeviceTrusted            = "deviceTrusted"
	DeviceRevoked            = "deviceRevoked"
	MFABypassed              = "mfaBypassed"
	RefreshReuseDetected     = "refreshReuseDetected"
)

var knownTypes = map[string]struct{}{
	LoginSuccess: {}, LoginFailure: {}, LoginLocked: {}, RefreshIssued: {}, Logout: {},
	PasswordChanged: {}, PasswordReset: {}, VerificationSucceeded: {}, EmailChangeRequested: {},
	EmailChangeConfirmed: {}, SuspiciousActivity: {}, MFAChallengeIssued: {}, MFASucceeded: {},
	MFAFailed: {}, MFAEnrolled: {}, MFAEnabled: {}, MFADisabled: {}, RecoveryCodesRegenerated: {},
	RecoveryCodeUsed: {}, DeviceTrusted: {}, DeviceRevoked: {}, MFABypassed: {}, RefreshReuseDetected: {},
}

// Known reports whether eventType is one of the defined event types.
func Known(eventType string) bool {
	_, ok := knownTypes[eventType]
	return ok
}

// Event is one security audit record. Metadata must never carry secrets.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	Actor     string            `json:"actor,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// LogSink writes each event as one structured log line and increments the
// per-event counter.
type LogSink struct {
	logger  *logger.Logger
	counter metrics.Counter
}

func NewLogSink(log *logger.Logger, counter metrics.Counter) *LogSink {
	if counter == nil {
		counter = metrics.Nop{}
	}
	return &LogSink{logger: log, counter: counter}
}

func (s *LogSink) Emit(_ context.Context, event Event) {
	e := s.logger.Info().
		Str("event", event.Type).
		Time("at", event.Timestamp)
	if event.Actor != "" {
		e = e.Str("actor", event.Actor)
	}
	if event.IP != "" {
		e = e.Str("ip", event.IP)
	}
	if len(event.Metadata) > 0 {
		e = e.Interface("metadata", event.Metadata)
	}
	e.Msg("security audit event")

	s.counter.Inc(event.Type)
}
