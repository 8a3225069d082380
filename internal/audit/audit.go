// Package audit records admin actions.
package audit

import (
	"context"
	"time"

	"financing-workers/internal/common/logger"
	"financing-workers/internal/common/metrics"
	"financing-workers/internal/models"

	"github.com/google/uuid"
)

// Sink persists admin actions.
type Sink interface {
	Record(ctx context.Context, action models.AdminAction) error
}

// NewAction builds an entry for admin acting on resourceType/resourceID.
func NewAction(admin models.AdminProfile, action models.AdminActionType, resourceType, resourceID string, details map[string]interface{}, at time.Time) models.AdminAction {
	return models.AdminAction{
		ID:           uuid.NewString(),
		AdminID:      admin.ID,
		AdminRole:    admin.Role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		Timestamp:    at.UTC(),
	}
}

// LogSink writes entries to the structured log. Used when no search cluster is configured.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log.WithFields(map[string]interface{}{"component": "audit"})}
}

func (s *LogSink) Record(_ context.Context, a models.AdminAction) error {
	s.log.Info("admin action", map[string]interface{}{
		"auditId":      a.ID,
		"adminId":      a.AdminID,
		"adminRole":    string(a.AdminRole),
		"action":       string(a.Action),
		"resourceType": a.ResourceType,
		"resourceId":   a.ResourceID,
		"details":      a.Details,
		"timestamp":    a.Timestamp.Format(time.RFC3339),
	})
	metrics.AuditWrites.WithLabelValues("log", "ok").Inc()
	return nil
}
