package audit

import (
	"context"
	"time"

	"github.com/platinummonkey/tartalacrm/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// Close flushes and releases the logger
	Close() error
}

// NewEvent creates an event stamped with the current time and the request
// id carried by ctx.
func NewEvent(ctx context.Context, eventType EventType, status EventStatus) *AuditEvent {
	return &AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: contextkeys.GetRequestID(ctx),
	}
}

// WithUser sets the actor of the event.
func (e *AuditEvent) WithUser(id int64, username string) *AuditEvent {
	e.UserID = &id
	e.Username = username
	return e
}

// NoOp returns a logger that drops every event
func NoOp() Logger {
	return noOpLogger{}
}

type noOpLogger struct{}

func (noOpLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }

func (noOpLogger) Close() error { return nil }
