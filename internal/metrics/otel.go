package metrics

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var ErrNilMeter = errors.New("nil meter")

// OTel reports events through an OpenTelemetry Int64Counter with an "event" attribute.
type OTel struct {
	meter        metric.Meter
	events       metric.Int64Counter
	registration metric.Registration
}

// NewOTel creates the instruments on meter.
func NewOTel(meter metric.Meter) (*OTel, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	events, err := meter.Int64Counter(
		namespace+"_security_events_total",
		metric.WithDescription("Security audit events by type."),
	)
	if err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	return &OTel{meter: meter, events: events}, nil
}

// Inc implements Counter.
func (o *OTel) Inc(event string) {
	o.events.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", event)))
}

// RegisterDropped observes fn as matchauth_audit_dropped_total on every collection.
func (o *OTel) RegisterDropped(fn func() uint64) error {
	dropped, err := o.meter.Int64ObservableCounter(
		namespace+"_audit_dropped_total",
		metric.WithDescription("Audit events dropped due to dispatcher backpressure."),
	)
	if err != nil {
		return fmt.Errorf("create audit dropped counter: %w", err)
	}
	reg, err := o.meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(dropped, int64(fn()))
		return nil
	}, dropped)
	if err != nil {
		return fmt.Errorf("register callback: %w", err)
	}
	o.registration = reg
	return nil
}

// Close unregisters the dropped-events callback.
func (o *OTel) Close() error {
	if o == nil || o.registration == nil {
		return nil
	}
	return o.registration.Unregister()
}
