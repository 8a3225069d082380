package resubmitapplication

type Input struct {
	ApplicationID string `json:"applicationId" validate:"required"`
	BusinessID    string `json:"businessId" validate:"required"`
	TargetStatus  string `json:"targetStatus,omitempty" validate:"omitempty,oneof=pending"`
}

type Output struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ErrorCode      string `json:"errorCode,omitempty"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	Status         string `json:"status,omitempty"`
}
