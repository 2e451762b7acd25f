package sessionguard

import (
	"context"
	"time"

	"github.com/google/uuid"
)

func (g *Guard) emitAudit(ctx context.Context, eventType string, success bool, userID, target string, err error, metadata map[string]string) {
	if g == nil || g.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Target:    target,
		Success:   success,
		Metadata:  metadata,
	}
	if g.navigator != nil {
		event.Location = g.navigator.Location()
	}
	if err != nil {
		event.Error = err.Error()
	}

	g.audit.Emit(ctx, event)
}
