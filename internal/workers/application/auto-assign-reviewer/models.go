package autoassignreviewer

import "time"

type Input struct {
	ApplicationID  string     `json:"applicationId" validate:"required"`
	AssignedBy     string     `json:"assignedBy,omitempty"`
	Priority       string     `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Specialization string     `json:"specialization,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	Notes          string     `json:"notes,omitempty" validate:"max=2000"`
}

type Output struct {
	Assigned     bool       `json:"assigned"`
	AssignmentID string     `json:"assignmentId,omitempty"`
	ReviewerID   string     `json:"reviewerId,omitempty"`
	Priority     string     `json:"priority,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	SLAState     string     `json:"slaState,omitempty"`
	ErrorCode    string     `json:"errorCode,omitempty"`
	Message      string     `json:"message,omitempty"`
	Workload     *Workload  `json:"workload,omitempty"`
}

// Workload summarises reviewer load when nobody could be assigned.
type Workload struct {
	Reviewers          int `json:"reviewers"`
	AvailableReviewers int `json:"availableReviewers"`
	TotalCurrent       int `json:"totalCurrent"`
	TotalCapacity      int `json:"totalCapacity"`
}
