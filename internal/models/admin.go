// internal/models/admin.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionAdminProfiles holds staff identities.
const CollectionAdminProfiles = "admin_profiles"

// Role is a staff role. The set is closed; see permissions.ParseRole.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleReviewer   Role = "reviewer"
	RoleApprover   Role = "approver"
	RoleManager    Role = "manager"
	RoleSuperAdmin Role = "super_admin"
)

// DefaultMaxWorkload is applied when a profile has no maxWorkload.
const DefaultMaxWorkload = 10

// AdminProfile is a staff account.
type AdminProfile struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	Role            Role            `json:"role"`
	ApprovalLimit   decimal.Decimal `json:"approvalLimit"`
	IsActive        bool            `json:"isActive"`
	CurrentWorkload int             `json:"currentWorkload"`
	MaxWorkload     int             `json:"maxWorkload"`
	Specializations []string        `json:"specializations,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Capacity returns maxWorkload, or the default when unset.
func (a AdminProfile) Capacity() int {
	if a.MaxWorkload <= 0 {
		return DefaultMaxWorkload
	}
	return a.MaxWorkload
}

// HasSpecialization reports whether the admin lists area.
func (a AdminProfile) HasSpecialization(area string) bool {
	for _, s := range a.Specializations {
		if s == area {
			return true
		}
	}
	return false
}
