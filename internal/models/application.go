// internal/models/application.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionApplications holds business financing applications.
const CollectionApplications = "business_applications"

// ApplicationStatus is the lifecycle status of a financing application.
type ApplicationStatus string

const (
	StatusNew      ApplicationStatus = "new"
	StatusPending  ApplicationStatus = "pending"
	StatusReview   ApplicationStatus = "review"
	StatusApproved ApplicationStatus = "approved"
	StatusRejected ApplicationStatus = "rejected"
	StatusMoreInfo ApplicationStatus = "more-info"
)

// Application is a business's request for financing.
type Application struct {
	ID                      string            `json:"id"`
	BusinessID              string            `json:"businessId"`
	BusinessName            string            `json:"businessName"`
	ContactEmail            string            `json:"contactEmail,omitempty"`
	ContactPhone            string            `json:"contactPhone,omitempty"`
	RequestedAmount         decimal.Decimal   `json:"requestedAmount"`
	ContractType            ContractType      `json:"contractType"`
	Status                  ApplicationStatus `json:"status"`
	RejectionReason         string            `json:"rejectionReason,omitempty"`
	RejectionAllowsResubmit *bool             `json:"rejectionAllowsResubmit,omitempty"`
	AdminMessage            string            `json:"adminMessage,omitempty"`
	ReviewerID              string            `json:"reviewerId,omitempty"`
	ApprovedBy              string            `json:"approvedBy,omitempty"`
	HasRequiredDocuments    *bool             `json:"hasRequiredDocuments,omitempty"`
	DueDiligenceComplete    *bool             `json:"dueDiligenceComplete,omitempty"`
	ResubmissionCount       int               `json:"resubmissionCount"`
	StatusRevision          int64             `json:"statusRevision"`
	SubmittedAt             time.Time         `json:"submittedAt"`
	UpdatedAt               time.Time         `json:"updatedAt"`
}

// SetStatus moves the application to status. StatusRevision counts actual
// status changes, so records taken against one revision can detect later moves.
func (a *Application) SetStatus(status ApplicationStatus, at time.Time) {
	if a.Status != status {
		a.Status = status
		a.StatusRevision++
	}
	a.UpdatedAt = at
}

// Investor is the contact profile of a member who invests.
type Investor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Type  string `json:"type,omitempty"`
}

// CollectionInvestors holds investor contact profiles.
const CollectionInvestors = "investors"

// Bool returns a pointer to b, for tri-state flags.
func Bool(b bool) *bool {
	return &b
}
