package searchauditlog

import (
	"time"

	"financing-workers/internal/models"
)

type Input struct {
	// AdminID is the admin asking; the filters below select whose actions are returned.
	AdminID      string     `json:"adminId" validate:"required"`
	ActorID      string     `json:"actorId,omitempty"`
	Action       string     `json:"action,omitempty"`
	ResourceType string     `json:"resourceType,omitempty"`
	ResourceID   string     `json:"resourceId,omitempty"`
	Since        *time.Time `json:"since,omitempty"`
	Until        *time.Time `json:"until,omitempty"`
	From         int        `json:"from,omitempty" validate:"min=0"`
	Size         int        `json:"size,omitempty" validate:"min=0,max=100"`
}

type Output struct {
	Success           bool                 `json:"success"`
	Total             int64                `json:"total"`
	Actions           []models.AdminAction `json:"actions,omitempty"`
	ErrorCode         string               `json:"errorCode,omitempty"`
	Message           string               `json:"message,omitempty"`
	RetryAfterSeconds int                  `json:"retryAfterSeconds,omitempty"`
}
