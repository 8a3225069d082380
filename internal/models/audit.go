// internal/models/audit.go
package models

import "time"

// AdminActionType names an auditable admin action.
type AdminActionType string

const (
	ActionViewApplication    AdminActionType = "view_application"
	ActionReviewApplication  AdminActionType = "review_application"
	ActionApproveApplication AdminActionType = "approve_application"
	ActionRejectApplication  AdminActionType = "reject_application"
	ActionRequestChanges     AdminActionType = "request_changes"
	ActionAssignReviewer     AdminActionType = "assign_reviewer"
	ActionReassignReviewer   AdminActionType = "reassign_reviewer"
	ActionUpdateDueDiligence AdminActionType = "update_due_diligence"
	ActionDistributeProfit   AdminActionType = "distribute_profit"
	ActionCreateAdmin        AdminActionType = "create_admin"
	ActionUpdateAdmin        AdminActionType = "update_admin"
	ActionDeactivateAdmin    AdminActionType = "deactivate_admin"
	ActionExportData         AdminActionType = "export_data"
	ActionAccessAuditLogs    AdminActionType = "access_audit_logs"
	ActionUpdateSystemConfig AdminActionType = "update_system_config"
)

// AdminAction is one entry of the admin action log.
type AdminAction struct {
	ID           string                 `json:"id"`
	AdminID      string                 `json:"adminId"`
	AdminRole    Role                   `json:"adminRole,omitempty"`
	Action       AdminActionType        `json:"action"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}
