package audit

import (
	"context"

	"github.com/platinummonkey/tartalacrm/pkg/observability"
)

// LogLogger writes audit events as structured log lines
type LogLogger struct {
	logger *observability.Logger
}

// NewLogLogger creates an audit logger on top of a structured logger
func NewLogLogger(logger *observability.Logger) *LogLogger {
	return &LogLogger{logger: logger.WithField("component", "audit")}
}

// Log writes event at info level, or warn level for failures and denials.
func (l *LogLogger) Log(ctx context.Context, event *AuditEvent) error {
	fields := map[string]interface{}{
		"event_type": event.EventType,
		"status":     event.Status,
	}
	if event.UserID != nil {
		fields["user_id"] = *event.UserID
	}
	if event.Username != "" {
		fields["username"] = event.Username
	}
	if event.Permission != "" {
		fields["permission"] = event.Permission
	}
	if event.ResourceType != "" {
		fields["resource_type"] = event.ResourceType
	}
	if event.ResourceID != "" {
		fields["resource_id"] = event.ResourceID
	}
	if event.IPAddress != "" {
		fields["ip_address"] = event.IPAddress
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	entry := l.logger.WithFields(fields)
	if event.Status == EventStatusSuccess {
		entry.Info(event.Message)
	} else {
		entry.Warn(event.Message)
	}
	return nil
}

// Close is a no-op
func (l *LogLogger) Close() error {
	return nil
}
