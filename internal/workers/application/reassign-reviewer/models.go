package reassignreviewer

type Input struct {
	ApplicationID string `json:"applicationId" validate:"required"`
	ToAdminID     string `json:"toAdminId" validate:"required"`
	PerformedBy   string `json:"performedBy" validate:"required"`
	Reason        string `json:"reason,omitempty" validate:"max=2000"`
}

type Output struct {
	Reassigned         bool   `json:"reassigned"`
	AssignmentID       string `json:"assignmentId,omitempty"`
	ReviewerID         string `json:"reviewerId,omitempty"`
	PreviousReviewerID string `json:"previousReviewerId,omitempty"`
	SLAState           string `json:"slaState,omitempty"`
	HistoryCount       int    `json:"historyCount"`
	ErrorCode          string `json:"errorCode,omitempty"`
	Message            string `json:"message,omitempty"`
}
