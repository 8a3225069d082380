// Package statemachine validates lifecycle transitions of financing applications.
// All functions are pure; callers persist a new status only after a valid result.
package statemachine

import (
	"fmt"
	"strings"

	"financing-workers/internal/models"
)

// Context carries facts about the application that gate specific edges.
// A nil flag means "not stated" and never blocks a transition.
type Context struct {
	RejectionAllowsResubmit *bool `json:"rejectionAllowsResubmit,omitempty"`
	HasRequiredDocuments    *bool `json:"hasRequiredDocuments,omitempty"`
	DueDiligenceComplete    *bool `json:"dueDiligenceComplete,omitempty"`
	HasRejectionReason      *bool `json:"hasRejectionReason,omitempty"`
}

// Result is the outcome of a transition check.
type Result struct {
	Valid          bool   `json:"valid"`
	Error          string `json:"error,omitempty"`
	Warning        string `json:"warning,omitempty"`
	IsResubmission bool   `json:"isResubmission,omitempty"`
}

const (
	msgUnchanged          = "Status unchanged"
	msgPermanentRejection = "This rejected application cannot be resubmitted (permanent rejection)"
	msgMissingDocuments   = "Cannot approve: required documents not submitted"
	msgDueDiligence       = "Cannot approve: due diligence not completed"
	msgRejectionReason    = "Rejection reason is required"
	msgBusinessPending    = "Applications can only be resubmitted from rejected or more-info"
	msgBusinessTarget     = "Businesses can only resubmit an application to pending"
)

var adminEdges = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.StatusNew:      {models.StatusReview, models.StatusRejected, models.StatusMoreInfo},
	models.StatusPending:  {models.StatusReview, models.StatusRejected, models.StatusMoreInfo},
	models.StatusReview:   {models.StatusApproved, models.StatusRejected, models.StatusMoreInfo},
	models.StatusMoreInfo: {models.StatusReview, models.StatusRejected},
	models.StatusApproved: {models.StatusRejected},
	models.StatusRejected: {models.StatusReview},
}

// businessEdges holds the only moves a business owner may make.
var businessEdges = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.StatusMoreInfo: {models.StatusPending},
	models.StatusRejected: {models.StatusPending},
}

var labels = map[models.ApplicationStatus]string{
	models.StatusNew:      "New",
	models.StatusPending:  "Pending Review",
	models.StatusReview:   "Under Review",
	models.StatusApproved: "Approved",
	models.StatusRejected: "Rejected",
	models.StatusMoreInfo: "More Information Required",
}

// ParseStatus converts s into a known status.
func ParseStatus(s string) (models.ApplicationStatus, error) {
	st := models.ApplicationStatus(strings.TrimSpace(s))
	if _, ok := adminEdges[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// ValidateTransition checks an administrator-driven status change.
func ValidateTransition(current, proposed models.ApplicationStatus, ctx Context) Result {
	return validate(adminEdges, current, proposed, ctx)
}

// ValidateBusinessTransition checks a change requested by the business owner.
// The only target a business may ask for is pending, from rejected or more-info.
func ValidateBusinessTransition(current, proposed models.ApplicationStatus, ctx Context) Result {
	if proposed != models.StatusPending {
		return Result{Valid: false, Error: fmt.Sprintf("Invalid transition: %s → %s. %s", current, proposed, msgBusinessTarget)}
	}
	if current == proposed {
		return Result{Valid: true, Warning: msgUnchanged}
	}
	if !contains(businessEdges[current], proposed) {
		return Result{Valid: false, Error: msgBusinessPending}
	}

	res := validate(businessEdges, current, proposed, ctx)
	if res.Valid {
		res.IsResubmission = true
	}
	return res
}

func validate(edges map[models.ApplicationStatus][]models.ApplicationStatus, current, proposed models.ApplicationStatus, ctx Context) Result {
	if current == proposed {
		return Result{Valid: true, Warning: msgUnchanged}
	}

	permanent := current == models.StatusRejected && isFalse(ctx.RejectionAllowsResubmit)
	allowed := edges[current]
	if !contains(allowed, proposed) {
		if permanent {
			allowed = nil
		}
		return Result{Valid: false, Error: invalidTransitionMessage(current, proposed, allowed)}
	}
	if permanent {
		return Result{Valid: false, Error: msgPermanentRejection}
	}

	switch proposed {
	case models.StatusApproved:
		if isFalse(ctx.HasRequiredDocuments) {
			return Result{Valid: false, Error: msgMissingDocuments}
		}
		if isFalse(ctx.DueDiligenceComplete) {
			return Result{Valid: false, Error: msgDueDiligence}
		}
	case models.StatusRejected:
		if isFalse(ctx.HasRejectionReason) {
			return Result{Valid: false, Error: msgRejectionReason}
		}
	}

	return Result{Valid: true}
}

// ValidNextStatuses lists the statuses an administrator may move current to.
// A permanently rejected application has none.
func ValidNextStatuses(current models.ApplicationStatus, ctx Context) []models.ApplicationStatus {
	if current == models.StatusRejected && isFalse(ctx.RejectionAllowsResubmit) {
		return []models.ApplicationStatus{}
	}
	next := adminEdges[current]
	out := make([]models.ApplicationStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(status models.ApplicationStatus, ctx Context) bool {
	return len(ValidNextStatuses(status, ctx)) == 0
}

// RequiresBusinessAction reports whether the business owner must act next.
func RequiresBusinessAction(status models.ApplicationStatus, ctx Context) bool {
	switch status {
	case models.StatusMoreInfo:
		return true
	case models.StatusRejected:
		return !isFalse(ctx.RejectionAllowsResubmit)
	}
	return false
}

// IsActive reports whether the application is still moving through review.
func IsActive(status models.ApplicationStatus) bool {
	switch status {
	case models.StatusNew, models.StatusPending, models.StatusReview, models.StatusMoreInfo:
		return true
	}
	return false
}

// Label returns a human-readable status name.
func Label(status models.ApplicationStatus) string {
	if l, ok := labels[status]; ok {
		return l
	}
	return string(status)
}

func invalidTransitionMessage(current, proposed models.ApplicationStatus, allowed []models.ApplicationStatus) string {
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	list := "none"
	if len(names) > 0 {
		list = strings.Join(names, ", ")
	}
	return fmt.Sprintf("Invalid transition: %s → %s. Allowed transitions: %s", current, proposed, list)
}

func isFalse(b *bool) bool {
	return b != nil && !*b
}

func contains(list []models.ApplicationStatus, s models.ApplicationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
