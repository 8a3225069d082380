// internal/workers/application/send-notification/models.go
package sendnotification

import "financing-workers/internal/models"

type Input struct {
	RecipientID   string `json:"recipientId" validate:"required_unless=RecipientType business"`
	RecipientType string `json:"recipientType" validate:"required,oneof=business investor admin"`
	Event         string `json:"event" validate:"required"`
	// ApplicationID locates a business recipient's contact details.
	ApplicationID string                 `json:"applicationId,omitempty" validate:"required_if=RecipientType business"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

type Output struct {
	NotificationID string                `json:"notificationId"`
	Status         string                `json:"status"` // "sent", "failed", "disabled"
	SentAt         string                `json:"sentAt"` // ISO 8601
	Deliveries     []models.Notification `json:"deliveries,omitempty"`
}
