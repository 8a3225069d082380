// internal/models/assignment.go
package models

import "time"

const (
	CollectionAssignments       = "assignments"
	CollectionAssignmentHistory = "assignment_history"
)

type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentInReview   AssignmentStatus = "in_review"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentReassigned AssignmentStatus = "reassigned"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Assignment links an application to the reviewer responsible for it.
type Assignment struct {
	ID            string           `json:"id"`
	ApplicationID string           `json:"applicationId"`
	AssignedTo    string           `json:"assignedTo"`
	AssignedBy    string           `json:"assignedBy"`
	Status        AssignmentStatus `json:"status"`
	Priority      Priority         `json:"priority"`
	DueDate       time.Time        `json:"dueDate"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
}

type HistoryAction string

const (
	HistoryAssigned   HistoryAction = "assigned"
	HistoryReassigned HistoryAction = "reassigned"
	HistoryUnassigned HistoryAction = "unassigned"
	HistoryCompleted  HistoryAction = "completed"
	HistoryEscalated  HistoryAction = "escalated"
)

// AssignmentHistory is an append-only record of assignment changes.
type AssignmentHistory struct {
	ID            string        `json:"id"`
	AssignmentID  string        `json:"assignmentId"`
	ApplicationID string        `json:"applicationId"`
	Action        HistoryAction `json:"action"`
	FromAdminID   string        `json:"fromAdminId,omitempty"`
	ToAdminID     string        `json:"toAdminId,omitempty"`
	PerformedBy   string        `json:"performedBy"`
	Reason        string        `json:"reason,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}
