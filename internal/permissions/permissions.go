// Package permissions derives admin capabilities from a fixed role table and
// enforces approval limits, separation of duties and dual authorization.
package permissions

import (
	"errors"
	"fmt"
	"strings"

	"financing-workers/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownRole        = errors.New("INVALID_ROLE")
	ErrSeparationOfDuties = errors.New("SEPARATION_OF_DUTIES_VIOLATION")
)

// MsgSeparationOfDuties is shown when a reviewer tries to approve their own review.
const MsgSeparationOfDuties = "Separation of duties violation: Reviewer cannot approve their own review"

// Dual authorization thresholds.
var (
	DualAuthorizationAbsolute = decimal.NewFromInt(50_000_000)
	DualAuthorizationReviewer = decimal.NewFromInt(5_000_000)
)

// Capability names a single permission flag.
type Capability string

const (
	CanViewApplications   Capability = "canViewApplications"
	CanReviewDueDiligence Capability = "canReviewDueDiligence"
	CanRequestChanges     Capability = "canRequestChanges"
	CanApprove            Capability = "canApprove"
	CanAssignReviews      Capability = "canAssignReviews"
	CanManageAdmins       Capability = "canManageAdmins"
	CanAccessSystemConfig Capability = "canAccessSystemConfig"
	CanDistributeProfits  Capability = "canDistributeProfits"
	CanViewReports        Capability = "canViewReports"
	CanExportData         Capability = "canExportData"
	CanAccessAuditLogs    Capability = "canAccessAuditLogs"
	CanManageInvestors    Capability = "canManageInvestors"
)

// Limit is an approval limit. The zero value approves nothing.
type Limit struct {
	Amount    decimal.Decimal `json:"amount"`
	Unbounded bool            `json:"unbounded"`
}

// Allows reports whether amount is within the limit.
func (l Limit) Allows(amount decimal.Decimal) bool {
	return l.Unbounded || amount.LessThanOrEqual(l.Amount)
}

// Min returns the tighter of l and o.
func (l Limit) Min(o Limit) Limit {
	switch {
	case l.Unbounded:
		return o
	case o.Unbounded:
		return l
	case o.Amount.LessThan(l.Amount):
		return o
	}
	return l
}

func (l Limit) String() string {
	if l.Unbounded {
		return "unbounded"
	}
	return l.Amount.String()
}

// Permissions is the fixed capability set of a role.
type Permissions struct {
	CanViewApplications   bool  `json:"canViewApplications"`
	CanReviewDueDiligence bool  `json:"canReviewDueDiligence"`
	CanRequestChanges     bool  `json:"canRequestChanges"`
	CanApprove            bool  `json:"canApprove"`
	ApprovalLimit         Limit `json:"approvalLimit"`
	CanAssignReviews      bool  `json:"canAssignReviews"`
	CanManageAdmins       bool  `json:"canManageAdmins"`
	CanAccessSystemConfig bool  `json:"canAccessSystemConfig"`
	CanDistributeProfits  bool  `json:"canDistributeProfits"`
	CanViewReports        bool  `json:"canViewReports"`
	CanExportData         bool  `json:"canExportData"`
	CanAccessAuditLogs    bool  `json:"canAccessAuditLogs"`
	CanManageInvestors    bool  `json:"canManageInvestors"`
}

// Has reports whether the capability flag is set.
func (p Permissions) Has(c Capability) bool {
	switch c {
	case CanViewApplications:
		return p.CanViewApplications
	case CanReviewDueDiligence:
		return p.CanReviewDueDiligence
	case CanRequestChanges:
		return p.CanRequestChanges
	case CanApprove:
		return p.CanApprove
	case CanAssignReviews:
		return p.CanAssignReviews
	case CanManageAdmins:
		return p.CanManageAdmins
	case CanAccessSystemConfig:
		return p.CanAccessSystemConfig
	case CanDistributeProfits:
		return p.CanDistributeProfits
	case CanViewReports:
		return p.CanViewReports
	case CanExportData:
		return p.CanExportData
	case CanAccessAuditLogs:
		return p.CanAccessAuditLogs
	case CanManageInvestors:
		return p.CanManageInvestors
	}
	return false
}

var levels = map[models.Role]int{
	models.RoleViewer:     1,
	models.RoleReviewer:   2,
	models.RoleApprover:   3,
	models.RoleManager:    4,
	models.RoleSuperAdmin: 5,
}

var table = buildTable()

func buildTable() map[models.Role]Permissions {
	viewer := Permissions{
		CanViewApplications: true,
		CanViewReports:      true,
	}

	reviewer := viewer
	reviewer.CanReviewDueDiligence = true
	reviewer.CanRequestChanges = true
	reviewer.CanExportData = true

	approver := reviewer
	approver.CanApprove = true
	approver.ApprovalLimit = Limit{Amount: decimal.NewFromInt(50_000_000)}
	approver.CanAccessAuditLogs = true
	approver.CanManageInvestors = true

	manager := approver
	manager.ApprovalLimit = Limit{Amount: decimal.NewFromInt(100_000_000)}
	manager.CanAssignReviews = true
	manager.CanManageAdmins = true
	manager.CanAccessSystemConfig = true
	manager.CanDistributeProfits = true

	superAdmin := manager
	superAdmin.ApprovalLimit = Limit{Unbounded: true}

	return map[models.Role]Permissions{
		models.RoleViewer:     viewer,
		models.RoleReviewer:   reviewer,
		models.RoleApprover:   approver,
		models.RoleManager:    manager,
		models.RoleSuperAdmin: superAdmin,
	}
}

// ParseRole converts s into a known role. Unknown roles are rejected.
func ParseRole(s string) (models.Role, error) {
	r := models.Role(strings.TrimSpace(s))
	if _, ok := levels[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// PermissionsFor returns the capability set of role.
func PermissionsFor(role models.Role) (Permissions, error) {
	p, ok := table[role]
	if !ok {
		return Permissions{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return p, nil
}

// Level returns the ordinal of role in the hierarchy, or 0 if unknown.
func Level(role models.Role) int {
	return levels[role]
}

// HasRoleLevel reports whether an active profile's role is at least minRole.
func HasRoleLevel(profile models.AdminProfile, minRole models.Role) bool {
	if !profile.IsActive {
		return false
	}
	lvl := Level(profile.Role)
	return lvl > 0 && lvl >= Level(minRole)
}

// Can reports whether an active profile holds capability c.
func Can(profile models.AdminProfile, c Capability) bool {
	if !profile.IsActive {
		return false
	}
	p, err := PermissionsFor(profile.Role)
	if err != nil {
		return false
	}
	return p.Has(c)
}

// EffectiveApprovalLimit is the role limit, lowered to the profile's stored
// limit when that is positive. super_admin is always unbounded.
func EffectiveApprovalLimit(profile models.AdminProfile) Limit {
	p, err := PermissionsFor(profile.Role)
	if err != nil || !p.CanApprove {
		return Limit{}
	}
	if profile.Role == models.RoleSuperAdmin {
		return Limit{Unbounded: true}
	}
	if profile.ApprovalLimit.IsPositive() {
		return p.ApprovalLimit.Min(Limit{Amount: profile.ApprovalLimit})
	}
	return p.ApprovalLimit
}

// CanApproveAmount reports whether profile may approve amount.
func CanApproveAmount(profile models.AdminProfile, amount decimal.Decimal) bool {
	if !Can(profile, CanApprove) {
		return false
	}
	return EffectiveApprovalLimit(profile).Allows(amount)
}

// ValidateSeparationOfDuties fails when the reviewer and approver are the same person.
func ValidateSeparationOfDuties(reviewerID, approverID string) error {
	if reviewerID != "" && reviewerID == approverID {
		return fmt.Errorf("%w: %s", ErrSeparationOfDuties, MsgSeparationOfDuties)
	}
	return nil
}

// RequiresDualAuthorization reports whether an approval of amount by a
// primaryRole admin needs a second, distinct approver.
func RequiresDualAuthorization(amount decimal.Decimal, primaryRole models.Role) bool {
	if amount.GreaterThan(DualAuthorizationAbsolute) {
		return true
	}
	return primaryRole == models.RoleReviewer && amount.GreaterThan(DualAuthorizationReviewer)
}
