package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/metrics"
	"financing-workers/internal/models"
	"financing-workers/internal/permissions"
	"financing-workers/internal/statemachine"
	"financing-workers/internal/store"
)

// Action is an admin review decision.
type Action string

const (
	ActionStartReview    Action = "start_review"
	ActionRequestChanges Action = "request_changes"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
)

type actionSpec struct {
	target models.ApplicationStatus
	audit  models.AdminActionType
	event  models.NotificationEvent
}

var actions = map[Action]actionSpec{
	ActionStartReview:    {models.StatusReview, models.ActionReviewApplication, models.EventApplicationUnderReview},
	ActionRequestChanges: {models.StatusMoreInfo, models.ActionRequestChanges, models.EventMoreInfoRequested},
	ActionApprove:        {models.StatusApproved, models.ActionApproveApplication, models.EventApplicationApproved},
	ActionReject:         {models.StatusRejected, models.ActionRejectApplication, models.EventApplicationRejected},
}

// ReviewRequest is an admin decision on an application. Nil flags leave the
// stored values in place.
type ReviewRequest struct {
	ApplicationID        string `json:"applicationId" validate:"required"`
	AdminID              string `json:"adminId" validate:"required"`
	Action               Action `json:"action" validate:"required,oneof=start_review request_changes approve reject"`
	Reason               string `json:"reason,omitempty" validate:"max=2000"`
	AdminMessage         string `json:"adminMessage,omitempty" validate:"max=2000"`
	AllowResubmit        *bool  `json:"allowResubmit,omitempty"`
	HasRequiredDocuments *bool  `json:"hasRequiredDocuments,omitempty"`
	DueDiligenceComplete *bool  `json:"dueDiligenceComplete,omitempty"`
}

// Review applies an admin decision. Refusals come back as an Outcome;
// malformed requests, version conflicts and store failures as errors.
func (s *Service) Review(ctx context.Context, req ReviewRequest) (*Outcome, error) {
	spec, ok := actions[req.Action]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("Unknown review action %q", req.Action), "action")
	}
	if req.ApplicationID == "" || req.AdminID == "" {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			"Application id and admin id are required", "")
	}

	out, err := s.review(ctx, req, spec)
	if out != nil {
		result := "ok"
		if !out.Success {
			result = string(out.Code)
		}
		metrics.ApprovalDecisions.WithLabelValues(string(req.Action), result).Inc()
	}
	return out, err
}

func (s *Service) review(ctx context.Context, req ReviewRequest, spec actionSpec) (*Outcome, error) {
	admin, _, refusal, err := s.loadAdmin(ctx, req.AdminID)
	if refusal != nil || err != nil {
		return refusal, err
	}
	if !permissions.CanPerform(*admin, spec.audit) {
		return refuse(errors.ErrCodePermissionDenied, MsgNotPermitted), nil
	}

	app, appVersion, refusal, err := s.loadApplication(ctx, req.ApplicationID)
	if refusal != nil || err != nil {
		return refusal, err
	}

	now := s.now()
	if req.HasRequiredDocuments != nil {
		app.HasRequiredDocuments = req.HasRequiredDocuments
	}
	if req.DueDiligenceComplete != nil {
		app.DueDiligenceComplete = req.DueDiligenceComplete
	}

	if req.Action == ActionApprove {
		if err := permissions.ValidateSeparationOfDuties(app.ReviewerID, admin.ID); err != nil {
			return refuse(errors.ErrCodeSeparationOfDuties, permissions.MsgSeparationOfDuties), nil
		}
		if refusal := s.approvalGate(admin, app.RequestedAmount, now); refusal != nil {
			return refusal, nil
		}
	}

	tctx := statemachine.Context{
		RejectionAllowsResubmit: app.RejectionAllowsResubmit,
		HasRequiredDocuments:    app.HasRequiredDocuments,
		DueDiligenceComplete:    app.DueDiligenceComplete,
	}
	if req.Action == ActionReject {
		tctx.HasRejectionReason = models.Bool(strings.TrimSpace(req.Reason) != "")
	}
	check := statemachine.ValidateTransition(app.Status, spec.target, tctx)
	if !check.Valid {
		return refuse(errors.ErrCodeInvalidTransition, check.Error), nil
	}
	if check.Warning != "" {
		s.log.Warn("review leaves status unchanged", map[string]interface{}{
			"applicationId": app.ID,
			"status":        string(app.Status),
			"action":        string(req.Action),
		})
	}

	previous := app.Status
	if req.Action == ActionApprove && previous != models.StatusApproved &&
		permissions.RequiresDualAuthorization(app.RequestedAmount, admin.Role) {
		return s.requestSecondApproval(ctx, req, admin, app, appVersion, now)
	}

	switch req.Action {
	case ActionStartReview:
		if app.ReviewerID == "" {
			app.ReviewerID = admin.ID
		}
	case ActionRequestChanges:
		app.AdminMessage = req.AdminMessage
	case ActionApprove:
		app.ApprovedBy = admin.ID
	case ActionReject:
		app.RejectionReason = strings.TrimSpace(req.Reason)
		app.RejectionAllowsResubmit = req.AllowResubmit
		app.AdminMessage = req.AdminMessage
	}
	app.SetStatus(spec.target, now)

	if _, err := s.store.Set(ctx, models.CollectionApplications, app.ID, app, appVersion); err != nil {
		return nil, err
	}
	if previous != app.Status {
		s.withdrawSecondary(ctx, app.ID, now)
		s.syncAssignment(ctx, app, admin.ID)
	}

	s.log.Info("application reviewed", map[string]interface{}{
		"applicationId":  app.ID,
		"adminId":        admin.ID,
		"action":         string(req.Action),
		"previousStatus": string(previous),
		"status":         string(app.Status),
	})
	s.record(ctx, admin, spec.audit, app, map[string]interface{}{
		"previousStatus": string(previous),
		"status":         string(app.Status),
		"reason":         app.RejectionReason,
	})
	if previous != app.Status {
		s.notifyBusiness(ctx, app, spec.event, map[string]interface{}{
			"reason":  app.RejectionReason,
			"message": app.AdminMessage,
		})
	}

	return &Outcome{
		Success:        true,
		Message:        fmt.Sprintf("Application moved to %s", statemachine.Label(app.Status)),
		PreviousStatus: previous,
		Status:         app.Status,
		Warning:        check.Warning,
	}, nil
}

// requestSecondApproval records the primary approval and leaves the application in review.
// The application write goes first so a lost race leaves no record behind.
func (s *Service) requestSecondApproval(ctx context.Context, req ReviewRequest, admin *models.AdminProfile, app *models.Application, appVersion int64, now time.Time) (*Outcome, error) {
	var existing models.DualAuthorization
	dualVersion, err := store.Load(ctx, s.store, models.CollectionDualAuthorizations, app.ID, &existing)
	switch {
	case store.IsNotFound(err):
		dualVersion = 0
	case err != nil:
		return nil, err
	case existing.Status == models.DualPendingSecondary && now.Before(existing.RequiredBy) && existing.Matches(*app):
		return refuse(errors.ErrCodeDualAuthorizationInvalid, MsgSecondaryPending), nil
	}

	// flags supplied with the approval are kept for the secondary approver
	app.UpdatedAt = now
	if _, err := s.store.Set(ctx, models.CollectionApplications, app.ID, app, appVersion); err != nil {
		return nil, err
	}

	requiredBy := now.Add(s.config.DualAuthorizationWindow)
	dual := models.DualAuthorization{
		ApplicationID:       app.ID,
		RequestedAmount:     app.RequestedAmount,
		ApplicationRevision: app.StatusRevision,
		PrimaryApproverID:   admin.ID,
		PrimaryApprovalAt:   now,
		Notes:               req.AdminMessage,
		Status:              models.DualPendingSecondary,
		RequiredBy:          requiredBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if _, err := s.store.Set(ctx, models.CollectionDualAuthorizations, app.ID, dual, dualVersion); err != nil {
		return nil, err
	}

	s.log.Info("secondary approval requested", map[string]interface{}{
		"applicationId": app.ID,
		"adminId":       admin.ID,
		"amount":        app.RequestedAmount.String(),
		"requiredBy":    requiredBy.Format(time.RFC3339),
	})
	s.record(ctx, admin, models.ActionApproveApplication, app, map[string]interface{}{
		"stage":      "primary",
		"amount":     app.RequestedAmount.String(),
		"requiredBy": requiredBy.Format(time.RFC3339),
	})

	return &Outcome{
		Success:                   true,
		Message:                   "Primary approval recorded. A second approver must confirm this approval.",
		PreviousStatus:            app.Status,
		Status:                    app.Status,
		DualAuthorizationRequired: true,
		RequiredBy:                &requiredBy,
	}, nil
}

// SecondaryRequest confirms or declines a pending dual authorization.
type SecondaryRequest struct {
	ApplicationID string `json:"applicationId" validate:"required"`
	AdminID       string `json:"adminId" validate:"required"`
	Approve       bool   `json:"approve"`
	Notes         string `json:"notes,omitempty" validate:"max=2000"`
}

// RecordSecondaryApproval completes a dual authorization. Approving moves the
// application to approved; declining leaves it in review.
func (s *Service) RecordSecondaryApproval(ctx context.Context, req SecondaryRequest) (*Outcome, error) {
	if req.ApplicationID == "" || req.AdminID == "" {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			"Application id and admin id are required", "")
	}

	out, err := s.recordSecondary(ctx, req)
	if out != nil {
		result := "ok"
		if !out.Success {
			result = string(out.Code)
		}
		metrics.ApprovalDecisions.WithLabelValues("secondary_approval", result).Inc()
	}
	return out, err
}

func (s *Service) recordSecondary(ctx context.Context, req SecondaryRequest) (*Outcome, error) {
	admin, _, refusal, err := s.loadAdmin(ctx, req.AdminID)
	if refusal != nil || err != nil {
		return refusal, err
	}

	var dual models.DualAuthorization
	dualVersion, err := store.Load(ctx, s.store, models.CollectionDualAuthorizations, req.ApplicationID, &dual)
	if store.IsNotFound(err) {
		return refuse(errors.ErrCodeDualAuthorizationInvalid, MsgNoPendingSecondary), nil
	}
	if err != nil {
		return nil, err
	}
	if dual.Status != models.DualPendingSecondary {
		return refuse(errors.ErrCodeDualAuthorizationInvalid, MsgNoPendingSecondary), nil
	}

	now := s.now()
	if now.After(dual.RequiredBy) {
		return refuse(errors.ErrCodeDualAuthorizationInvalid, MsgSecondaryExpired), nil
	}
	if dual.PrimaryApproverID == admin.ID {
		return refuse(errors.ErrCodeSeparationOfDuties, MsgSameApprover), nil
	}

	app, appVersion, refusal, err := s.loadApplication(ctx, req.ApplicationID)
	if refusal != nil || err != nil {
		return refusal, err
	}
	previous := app.Status

	if !dual.Matches(*app) {
		s.expireSecondary(ctx, dual, dualVersion, now)
		return refuse(errors.ErrCodeDualAuthorizationInvalid, MsgPrimaryStale), nil
	}

	if req.Approve {
		if err := permissions.ValidateSeparationOfDuties(app.ReviewerID, admin.ID); err != nil {
			return refuse(errors.ErrCodeSeparationOfDuties, permissions.MsgSeparationOfDuties), nil
		}
		if refusal := s.approvalGate(admin, dual.RequestedAmount, now); refusal != nil {
			return refusal, nil
		}
		check := statemachine.ValidateTransition(app.Status, models.StatusApproved, statemachine.Context{
			RejectionAllowsResubmit: app.RejectionAllowsResubmit,
			HasRequiredDocuments:    app.HasRequiredDocuments,
			DueDiligenceComplete:    app.DueDiligenceComplete,
		})
		if !check.Valid {
			return refuse(errors.ErrCodeInvalidTransition, check.Error), nil
		}

		app.ApprovedBy = admin.ID
		app.SetStatus(models.StatusApproved, now)
		if _, err := s.store.Set(ctx, models.CollectionApplications, app.ID, app, appVersion); err != nil {
			return nil, err
		}
		dual.Status = models.DualApproved
	} else {
		if !permissions.Can(*admin, permissions.CanApprove) {
			return refuse(errors.ErrCodePermissionDenied, MsgNotPermitted), nil
		}
		dual.Status = models.DualRejected
	}

	dual.SecondaryApproverID = admin.ID
	dual.SecondaryApprovalAt = &now
	dual.SecondaryNotes = req.Notes
	dual.UpdatedAt = now
	if _, err := s.store.Set(ctx, models.CollectionDualAuthorizations, dual.ApplicationID, dual, dualVersion); err != nil {
		return nil, err
	}

	s.log.Info("secondary approval recorded", map[string]interface{}{
		"applicationId": app.ID,
		"adminId":       admin.ID,
		"decision":      string(dual.Status),
	})
	s.record(ctx, admin, models.ActionApproveApplication, app, map[string]interface{}{
		"stage":    "secondary",
		"decision": string(dual.Status),
		"primary":  dual.PrimaryApproverID,
	})

	if !req.Approve {
		return &Outcome{
			Success:        true,
			Message:        "Secondary approval declined. The application remains under review.",
			PreviousStatus: previous,
			Status:         app.Status,
		}, nil
	}
	if previous != app.Status {
		s.syncAssignment(ctx, app, admin.ID)
		s.notifyBusiness(ctx, app, models.EventApplicationApproved, nil)
	}
	return &Outcome{
		Success:        true,
		Message:        fmt.Sprintf("Application moved to %s", statemachine.Label(app.Status)),
		PreviousStatus: previous,
		Status:         app.Status,
	}, nil
}

// withdrawSecondary rejects a pending dual authorization once the application
// has left the state it was granted in. Failures are logged; recordSecondary
// refuses stale records on its own.
func (s *Service) withdrawSecondary(ctx context.Context, applicationID string, now time.Time) {
	var dual models.DualAuthorization
	v, err := store.Load(ctx, s.store, models.CollectionDualAuthorizations, applicationID, &dual)
	if store.IsNotFound(err) {
		return
	}
	if err != nil {
		s.log.Warn("pending secondary approval not withdrawn", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
		return
	}
	if dual.Status != models.DualPendingSecondary {
		return
	}
	s.expireSecondary(ctx, dual, v, now)
}

func (s *Service) expireSecondary(ctx context.Context, dual models.DualAuthorization, version int64, now time.Time) {
	dual.Status = models.DualRejected
	dual.SecondaryNotes = "withdrawn: application status changed"
	dual.UpdatedAt = now
	if _, err := s.store.Set(ctx, models.CollectionDualAuthorizations, dual.ApplicationID, dual, version); err != nil {
		s.log.Warn("pending secondary approval not withdrawn", map[string]interface{}{
			"applicationId": dual.ApplicationID,
			"error":         err.Error(),
		})
		return
	}
	s.log.Info("pending secondary approval withdrawn", map[string]interface{}{
		"applicationId": dual.ApplicationID,
		"primary":       dual.PrimaryApproverID,
	})
}

// syncAssignment starts the assignment when review begins and completes it on
// a final decision, which releases the reviewer's workload slot. Applications
// without an assignment are skipped and failures are logged.
func (s *Service) syncAssignment(ctx context.Context, app *models.Application, adminID string) {
	if s.assignments == nil {
		return
	}
	var err error
	switch app.Status {
	case models.StatusReview:
		_, err = s.assignments.Start(ctx, app.ID)
	case models.StatusApproved, models.StatusRejected:
		_, err = s.assignments.Complete(ctx, app.ID, adminID)
	default:
		return
	}
	if err == nil {
		return
	}
	if stdErr, ok := errors.As(err); ok && stdErr.Code == errors.ErrCodeAssignmentNotFound {
		return
	}
	s.log.Warn("assignment not updated", map[string]interface{}{
		"applicationId": app.ID,
		"status":        string(app.Status),
		"error":         err.Error(),
	})
}

// ResubmitRequest is a business owner sending an application back for review.
type ResubmitRequest struct {
	ApplicationID string                   `json:"applicationId" validate:"required"`
	BusinessID    string                   `json:"businessId" validate:"required"`
	Target        models.ApplicationStatus `json:"target,omitempty"`
}

// Resubmit moves a rejected or more-info application back to pending.
func (s *Service) Resubmit(ctx context.Context, req ResubmitRequest) (*Outcome, error) {
	if req.ApplicationID == "" || req.BusinessID == "" {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			"Application id and business id are required", "")
	}
	target := req.Target
	if target == "" {
		target = models.StatusPending
	}
	if _, err := statemachine.ParseStatus(string(target)); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidStatus, "Unknown application status", string(target))
	}
	if target != models.StatusPending {
		return refuse(errors.ErrCodeInvalidTransition, MsgBusinessTarget), nil
	}

	app, appVersion, refusal, err := s.loadApplication(ctx, req.ApplicationID)
	if refusal != nil || err != nil {
		return refusal, err
	}
	if app.BusinessID != req.BusinessID {
		return refuse(errors.ErrCodePermissionDenied, MsgNotOwner), nil
	}

	check := statemachine.ValidateBusinessTransition(app.Status, target, statemachine.Context{
		RejectionAllowsResubmit: app.RejectionAllowsResubmit,
	})
	if !check.Valid {
		return refuse(errors.ErrCodeInvalidTransition, check.Error), nil
	}

	previous := app.Status
	if check.IsResubmission {
		app.ResubmissionCount++
		app.RejectionReason = ""
		app.AdminMessage = ""
	}
	app.SetStatus(target, s.now())
	if _, err := s.store.Set(ctx, models.CollectionApplications, app.ID, app, appVersion); err != nil {
		return nil, err
	}

	s.log.Info("application resubmitted", map[string]interface{}{
		"applicationId":     app.ID,
		"previousStatus":    string(previous),
		"status":            string(app.Status),
		"resubmissionCount": app.ResubmissionCount,
	})
	return &Outcome{
		Success:        true,
		Message:        fmt.Sprintf("Application moved to %s", statemachine.Label(app.Status)),
		PreviousStatus: previous,
		Status:         app.Status,
		Warning:        check.Warning,
	}, nil
}
