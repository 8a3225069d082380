// internal/models/dual_authorization.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionDualAuthorizations is keyed by application id.
const CollectionDualAuthorizations = "dual_authorizations"

type DualAuthorizationStatus string

const (
	DualPendingSecondary DualAuthorizationStatus = "pending_secondary"
	DualApproved         DualAuthorizationStatus = "approved"
	DualRejected         DualAuthorizationStatus = "rejected"
)

// DualAuthorization is the secondary-approval record for a high-value approval.
// It binds to the application's StatusRevision at the time of the primary approval.
type DualAuthorization struct {
	ApplicationID       string                  `json:"applicationId"`
	RequestedAmount     decimal.Decimal         `json:"requestedAmount"`
	ApplicationRevision int64                   `json:"applicationRevision"`
	PrimaryApproverID   string                  `json:"primaryApproverId"`
	PrimaryApprovalAt   time.Time               `json:"primaryApprovalAt"`
	Notes               string                  `json:"notes,omitempty"`
	SecondaryApproverID string                  `json:"secondaryApproverId,omitempty"`
	SecondaryApprovalAt *time.Time              `json:"secondaryApprovalAt,omitempty"`
	SecondaryNotes      string                  `json:"secondaryNotes,omitempty"`
	Status              DualAuthorizationStatus `json:"status"`
	RequiredBy          time.Time               `json:"requiredBy"`
	CreatedAt           time.Time               `json:"createdAt"`
	UpdatedAt           time.Time               `json:"updatedAt"`
}

// Matches reports whether the record was taken against app as it stands now.
func (d DualAuthorization) Matches(app Application) bool {
	return d.ApplicationRevision == app.StatusRevision && d.RequestedAmount.Equal(app.RequestedAmount)
}
