// Package assignment routes applications to reviewers and keeps their
// workload counters in step with the assignments they hold.
package assignment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"financing-workers/internal/audit"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"
	"financing-workers/internal/permissions"
	"financing-workers/internal/store"

	"github.com/google/uuid"
)

const (
	// DefaultDueIn is the review deadline when the caller gives none.
	DefaultDueIn = 72 * time.Hour
	// DueSoonWindow marks an assignment as due soon.
	DueSoonWindow = 24 * time.Hour

	workloadAttempts = 5
)

const (
	MsgNoEligibleReviewer  = "No eligible reviewer available"
	MsgAllAtCapacity       = "All eligible reviewers are at capacity"
	MsgAssignmentNotFound  = "Assignment not found"
	MsgAssignmentCompleted = "Assignment is already completed"
	MsgSameReviewer        = "Application is already assigned to this reviewer"
)

type Service struct {
	store store.Store
	audit audit.Sink
	dueIn time.Duration
	now   func() time.Time
	log   logger.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithDueIn(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dueIn = d
		}
	}
}

// NewService builds the service. auditSink may be nil.
func NewService(s store.Store, auditSink audit.Sink, log logger.Logger, opts ...Option) *Service {
	svc := &Service{
		store: s,
		audit: auditSink,
		dueIn: DefaultDueIn,
		now:   time.Now,
		log:   log.WithFields(map[string]interface{}{"component": "assignment"}),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type AutoAssignRequest struct {
	ApplicationID  string          `json:"applicationId" validate:"required"`
	AssignedBy     string          `json:"assignedBy" validate:"required"`
	Priority       models.Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Specialization string          `json:"specialization,omitempty"`
	DueDate        *time.Time      `json:"dueDate,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// AutoAssign gives the application to the eligible reviewer with the lowest
// workload. An application that already has an open assignment keeps it.
func (s *Service) AutoAssign(ctx context.Context, req AutoAssignRequest) (*models.Assignment, error) {
	if req.ApplicationID == "" || req.AssignedBy == "" {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			"Application id and assigner are required", "")
	}

	var existing models.Assignment
	version, err := store.Load(ctx, s.store, models.CollectionAssignments, req.ApplicationID, &existing)
	switch {
	case store.IsNotFound(err):
		version = 0
	case err != nil:
		return nil, err
	case existing.Status != models.AssignmentCompleted:
		s.log.Info("application already assigned", map[string]interface{}{
			"applicationId": req.ApplicationID,
			"assignedTo":    existing.AssignedTo,
		})
		return &existing, nil
	}

	candidates, err := s.eligible(ctx, req.Specialization)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.NewStateError(errors.ErrCodeNoEligibleReviewer, MsgNoEligibleReviewer)
	}
	open := candidates[:0]
	for _, c := range candidates {
		if c.CurrentWorkload < c.Capacity() {
			open = append(open, c)
		}
	}
	if len(open) == 0 {
		return nil, errors.NewStateError(errors.ErrCodeNoEligibleReviewer, MsgAllAtCapacity)
	}
	chosen := open[0]

	now := s.now()
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	due := now.Add(s.dueIn)
	if req.DueDate != nil {
		due = *req.DueDate
	}
	a := models.Assignment{
		ID:            uuid.NewString(),
		ApplicationID: req.ApplicationID,
		AssignedTo:    chosen.ID,
		AssignedBy:    req.AssignedBy,
		Status:        models.AssignmentPending,
		Priority:      priority,
		DueDate:       due,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.store.Set(ctx, models.CollectionAssignments, a.ApplicationID, a, version); err != nil {
		return nil, err
	}
	if err := s.adjustWorkload(ctx, chosen.ID, 1); err != nil {
		return nil, err
	}

	s.appendHistory(ctx, a, models.HistoryAssigned, "", chosen.ID, req.AssignedBy, "")
	s.record(ctx, req.AssignedBy, models.ActionAssignReviewer, a, map[string]interface{}{
		"assignedTo": chosen.ID,
		"priority":   string(priority),
	})
	s.log.Info("reviewer assigned", map[string]interface{}{
		"applicationId": a.ApplicationID,
		"assignedTo":    chosen.ID,
		"workload":      chosen.CurrentWorkload + 1,
		"capacity":      chosen.Capacity(),
	})
	return &a, nil
}

// eligible lists active admins at reviewer level or above, lowest workload first.
func (s *Service) eligible(ctx context.Context, specialization string) ([]models.AdminProfile, error) {
	docs, err := s.store.List(ctx, models.CollectionAdminProfiles, store.Filter{"isActive": true})
	if err != nil {
		return nil, err
	}
	out := make([]models.AdminProfile, 0, len(docs))
	for i := range docs {
		var p models.AdminProfile
		if err := docs[i].Decode(&p); err != nil {
			s.log.Warn("skipping undecodable admin profile", map[string]interface{}{"key": docs[i].Key, "error": err.Error()})
			continue
		}
		if !reviewerEligible(p) {
			continue
		}
		if specialization != "" && !p.HasSpecialization(specialization) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CurrentWorkload != out[j].CurrentWorkload {
			return out[i].CurrentWorkload < out[j].CurrentWorkload
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func reviewerEligible(p models.AdminProfile) bool {
	return p.IsActive &&
		permissions.HasRoleLevel(p, models.RoleReviewer) &&
		permissions.Can(p, permissions.CanReviewDueDiligence)
}

type ReassignRequest struct {
	ApplicationID string `json:"applicationId" validate:"required"`
	ToAdminID     string `json:"toAdminId" validate:"required"`
	PerformedBy   string `json:"performedBy" validate:"required"`
	Reason        string `json:"reason,omitempty"`
}

// Reassign moves an open assignment to another reviewer. The performer needs
// the assign-reviews capability.
func (s *Service) Reassign(ctx context.Context, req ReassignRequest) (*models.Assignment, error) {
	if req.ApplicationID == "" || req.ToAdminID == "" || req.PerformedBy == "" {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			"Application id, target reviewer and performer are required", "")
	}

	var performer models.AdminProfile
	if _, err := store.Load(ctx, s.store, models.CollectionAdminProfiles, req.PerformedBy, &performer); err != nil {
		if store.IsNotFound(err) {
			return nil, errors.NewStateError(errors.ErrCodeAdminNotFound, "Admin not found")
		}
		return nil, err
	}
	if !permissions.CanPerform(performer, models.ActionReassignReviewer) {
		return nil, errors.NewStateError(errors.ErrCodePermissionDenied, "You do not have permission to reassign reviews")
	}

	a, version, err := s.load(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	if a.Status == models.AssignmentCompleted {
		return nil, errors.NewStateError(errors.ErrCodeInvalidStatus, MsgAssignmentCompleted)
	}
	if a.AssignedTo == req.ToAdminID {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed, MsgSameReviewer, req.ToAdminID)
	}

	var target models.AdminProfile
	if _, err := store.Load(ctx, s.store, models.CollectionAdminProfiles, req.ToAdminID, &target); err != nil {
		if store.IsNotFound(err) {
			return nil, errors.NewStateError(errors.ErrCodeAdminNotFound, "Admin not found")
		}
		return nil, err
	}
	if !reviewerEligible(target) {
		return nil, errors.NewStateError(errors.ErrCodeNoEligibleReviewer,
			fmt.Sprintf("Admin %s cannot review applications", target.ID))
	}
	if target.CurrentWorkload >= target.Capacity() {
		return nil, errors.NewStateError(errors.ErrCodeCapacityExceeded,
			fmt.Sprintf("Admin %s is at capacity (%d/%d)", target.ID, target.CurrentWorkload, target.Capacity()))
	}

	from := a.AssignedTo
	a.AssignedTo = target.ID
	a.UpdatedAt = s.now()
	if _, err := s.store.Set(ctx, models.CollectionAssignments, a.ApplicationID, a, version); err != nil {
		return nil, err
	}
	if err := s.adjustWorkload(ctx, target.ID, 1); err != nil {
		return nil, err
	}
	if err := s.adjustWorkload(ctx, from, -1); err != nil && !store.IsNotFound(err) {
		return nil, err
	}

	s.appendHistory(ctx, *a, models.HistoryReassigned, from, target.ID, req.PerformedBy, req.Reason)
	s.record(ctx, req.PerformedBy, models.ActionReassignReviewer, *a, map[string]interface{}{
		"from":   from,
		"to":     target.ID,
		"reason": req.Reason,
	})
	s.log.Info("assignment reassigned", map[string]interface{}{
		"applicationId": a.ApplicationID,
		"from":          from,
		"to":            target.ID,
	})
	return a, nil
}

// Start marks an assignment as being worked on.
func (s *Service) Start(ctx context.Context, applicationID string) (*models.Assignment, error) {
	a, version, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.AssignmentPending {
		return a, nil
	}
	a.Status = models.AssignmentInReview
	a.UpdatedAt = s.now()
	if _, err := s.store.Set(ctx, models.CollectionAssignments, applicationID, a, version); err != nil {
		return nil, err
	}
	return a, nil
}

// Complete closes the assignment and releases the reviewer's workload slot.
// Completing twice is a no-op.
func (s *Service) Complete(ctx context.Context, applicationID, performedBy string) (*models.Assignment, error) {
	a, version, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a.Status == models.AssignmentCompleted {
		return a, nil
	}

	now := s.now()
	a.Status = models.AssignmentCompleted
	a.CompletedAt = &now
	a.UpdatedAt = now
	if _, err := s.store.Set(ctx, models.CollectionAssignments, applicationID, a, version); err != nil {
		return nil, err
	}
	if err := s.adjustWorkload(ctx, a.AssignedTo, -1); err != nil && !store.IsNotFound(err) {
		return nil, err
	}
	s.appendHistory(ctx, *a, models.HistoryCompleted, a.AssignedTo, "", performedBy, "")
	return a, nil
}

func (s *Service) load(ctx context.Context, applicationID string) (*models.Assignment, int64, error) {
	var a models.Assignment
	v, err := store.Load(ctx, s.store, models.CollectionAssignments, applicationID, &a)
	if store.IsNotFound(err) {
		return nil, 0, errors.NewStateError(errors.ErrCodeAssignmentNotFound, MsgAssignmentNotFound)
	}
	if err != nil {
		return nil, 0, err
	}
	return &a, v, nil
}

// adjustWorkload applies delta to an admin's workload with version-checked
// writes, clamping at zero.
func (s *Service) adjustWorkload(ctx context.Context, adminID string, delta int) error {
	var lastErr error
	for attempt := 0; attempt < workloadAttempts; attempt++ {
		var p models.AdminProfile
		v, err := store.Load(ctx, s.store, models.CollectionAdminProfiles, adminID, &p)
		if err != nil {
			return err
		}
		p.CurrentWorkload += delta
		if p.CurrentWorkload < 0 {
			p.CurrentWorkload = 0
		}
		p.UpdatedAt = s.now()
		_, err = s.store.Set(ctx, models.CollectionAdminProfiles, adminID, p, v)
		if err == nil {
			return nil
		}
		if !store.IsConflict(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (s *Service) appendHistory(ctx context.Context, a models.Assignment, action models.HistoryAction, from, to, by, reason string) {
	h := models.AssignmentHistory{
		ID:            uuid.NewString(),
		AssignmentID:  a.ID,
		ApplicationID: a.ApplicationID,
		Action:        action,
		FromAdminID:   from,
		ToAdminID:     to,
		PerformedBy:   by,
		Reason:        reason,
		Timestamp:     s.now(),
	}
	if _, err := s.store.Set(ctx, models.CollectionAssignmentHistory, h.ID, h, 0); err != nil {
		s.log.Warn("assignment history write failed", map[string]interface{}{
			"applicationId": a.ApplicationID,
			"action":        string(action),
			"error":         err.Error(),
		})
	}
}

// History returns the history entries of an application, oldest first.
func (s *Service) History(ctx context.Context, applicationID string) ([]models.AssignmentHistory, error) {
	docs, err := s.store.List(ctx, models.CollectionAssignmentHistory, store.Filter{"applicationId": applicationID})
	if err != nil {
		return nil, err
	}
	out := make([]models.AssignmentHistory, 0, len(docs))
	for i := range docs {
		var h models.AssignmentHistory
		if err := docs[i].Decode(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Service) record(ctx context.Context, adminID string, action models.AdminActionType, a models.Assignment, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	var admin models.AdminProfile
	if _, err := store.Load(ctx, s.store, models.CollectionAdminProfiles, adminID, &admin); err != nil {
		admin = models.AdminProfile{ID: adminID}
	}
	if err := s.audit.Record(ctx, audit.NewAction(admin, action, "application", a.ApplicationID, details, s.now())); err != nil {
		s.log.Warn("audit write failed", map[string]interface{}{
			"applicationId": a.ApplicationID,
			"error":         err.Error(),
		})
	}
}
