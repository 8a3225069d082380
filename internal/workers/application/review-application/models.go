package reviewapplication

import (
	"time"

	"financing-workers/internal/approval"
)

type Input struct {
	ApplicationID        string `json:"applicationId" validate:"required"`
	AdminID              string `json:"adminId" validate:"required"`
	Action               string `json:"action" validate:"required,oneof=start_review request_changes approve reject"`
	Reason               string `json:"reason,omitempty" validate:"max=2000"`
	AdminMessage         string `json:"adminMessage,omitempty" validate:"max=2000"`
	AllowResubmit        *bool  `json:"allowResubmit,omitempty"`
	HasRequiredDocuments *bool  `json:"hasRequiredDocuments,omitempty"`
	DueDiligenceComplete *bool  `json:"dueDiligenceComplete,omitempty"`
}

func (in *Input) request() approval.ReviewRequest {
	return approval.ReviewRequest{
		ApplicationID:        in.ApplicationID,
		AdminID:              in.AdminID,
		Action:               approval.Action(in.Action),
		Reason:               in.Reason,
		AdminMessage:         in.AdminMessage,
		AllowResubmit:        in.AllowResubmit,
		HasRequiredDocuments: in.HasRequiredDocuments,
		DueDiligenceComplete: in.DueDiligenceComplete,
	}
}

type Output struct {
	Success                   bool       `json:"success"`
	Message                   string     `json:"message"`
	ErrorCode                 string     `json:"errorCode,omitempty"`
	PreviousStatus            string     `json:"previousStatus,omitempty"`
	Status                    string     `json:"status,omitempty"`
	Warning                   string     `json:"warning,omitempty"`
	DualAuthorizationRequired bool       `json:"dualAuthorizationRequired"`
	RequiredBy                *time.Time `json:"requiredBy,omitempty"`
}

func outputFrom(o *approval.Outcome) *Output {
	return &Output{
		Success:                   o.Success,
		Message:                   o.Message,
		ErrorCode:                 string(o.Code),
		PreviousStatus:            string(o.PreviousStatus),
		Status:                    string(o.Status),
		Warning:                   o.Warning,
		DualAuthorizationRequired: o.DualAuthorizationRequired,
		RequiredBy:                o.RequiredBy,
	}
}
