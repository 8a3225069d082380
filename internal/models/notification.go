// internal/models/notification.go
package models

// NotificationEvent identifies a one-way notification.
type NotificationEvent string

const (
	EventApplicationApproved        NotificationEvent = "application_approved"
	EventApplicationRejected        NotificationEvent = "application_rejected"
	EventMoreInfoRequested          NotificationEvent = "more_info_requested"
	EventApplicationUnderReview     NotificationEvent = "application_under_review"
	EventDualAuthorizationRequested NotificationEvent = "dual_authorization_requested"
	EventInvestmentConfirmed        NotificationEvent = "investment_confirmed"
	EventProfitDistributed          NotificationEvent = "profit_distributed"
	EventReviewerAssigned           NotificationEvent = "reviewer_assigned"
)

// Notification is the outcome of a send attempt.
type Notification struct {
	RecipientID   string            `json:"recipientId"`
	RecipientType string            `json:"recipientType"` // business, investor, admin
	Event         NotificationEvent `json:"event"`
	Channel       string            `json:"channel"` // email, sms
	Status        string            `json:"status"`  // sent, failed, disabled
	MessageID     string            `json:"messageId,omitempty"`
	Error         string            `json:"error,omitempty"`
}
