package matchauth

import (
	"context"
	"fmt"

	"github.com/MrEthical07/matchauth/internal/audit"
)

func (e *Engine) emit(ctx context.Context, eventType, actor, ip string, metadata map[string]string) {
	if e.audit == nil {
		return
	}
	e.audit.Emit(ctx, audit.Event{
		Timestamp: e.now().UTC(),
		Type:      eventType,
		Actor:     actor,
		IP:        ip,
		Metadata:  metadata,
	})
}

// RecordEvent lets flows living outside the Engine (password change, e-mail change)
// write to the same audit sink. Unknown event types are rejected.
func (e *Engine) RecordEvent(ctx context.Context, eventType, actor, ip string, metadata map[string]string) error {
	if !audit.Known(eventType) {
		return fmt.Errorf("unknown audit event type %q", eventType)
	}
	var meta map[string]string
	if len(metadata) > 0 {
		meta = make(map[string]string, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}
	e.emit(ctx, eventType, actor, ip, meta)
	return nil
}
