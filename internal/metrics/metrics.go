package metrics

import "fmt"

// Counter increments the per-event counter for event. Implementations must be safe for
// concurrent use and must never block.
type Counter interface {
	Inc(event string)
}

// Nop discards every increment.
type Nop struct{}

// Inc implements Counter.
func (Nop) Inc(string) {}

const (
	ExporterPrometheus = "prometheus"
	ExporterOTel       = "otel"
	ExporterNone       = "none"
)

// ValidateExporter reports whether name is a known exporter.
func ValidateExporter(name string) error {
	switch name {
	case ExporterPrometheus, ExporterOTel, ExporterNone:
		return nil
	default:
		return fmt.Errorf("unknown metrics exporter %q", name)
	}
}
