package permissions

import "financing-workers/internal/models"

var actionCapabilities = map[models.AdminActionType]Capability{
	models.ActionViewApplication:    CanViewApplications,
	models.ActionReviewApplication:  CanReviewDueDiligence,
	models.ActionApproveApplication: CanApprove,
	models.ActionRejectApplication:  CanApprove,
	models.ActionRequestChanges:     CanRequestChanges,
	models.ActionAssignReviewer:     CanAssignReviews,
	models.ActionReassignReviewer:   CanAssignReviews,
	models.ActionUpdateDueDiligence: CanReviewDueDiligence,
	models.ActionDistributeProfit:   CanDistributeProfits,
	models.ActionCreateAdmin:        CanManageAdmins,
	models.ActionUpdateAdmin:        CanManageAdmins,
	models.ActionDeactivateAdmin:    CanManageAdmins,
	models.ActionExportData:         CanExportData,
	models.ActionAccessAuditLogs:    CanAccessAuditLogs,
	models.ActionUpdateSystemConfig: CanAccessSystemConfig,
}

// RequiredCapability returns the capability an admin action needs.
func RequiredCapability(action models.AdminActionType) (Capability, bool) {
	c, ok := actionCapabilities[action]
	return c, ok
}

// CanPerform reports whether profile may perform action.
func CanPerform(profile models.AdminProfile, action models.AdminActionType) bool {
	c, ok := RequiredCapability(action)
	if !ok {
		return false
	}
	return Can(profile, c)
}
