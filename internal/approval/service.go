// Package approval applies admin review decisions to financing applications,
// combining the status state machine with role permissions and dual authorization.
package approval

import (
	"context"
	"fmt"
	"time"

	"financing-workers/internal/audit"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"
	"financing-workers/internal/notify"
	"financing-workers/internal/permissions"
	"financing-workers/internal/store"

	"github.com/shopspring/decimal"
)

// DefaultDualAuthorizationWindow is how long a secondary approver has to act.
const DefaultDualAuthorizationWindow = 48 * time.Hour

const (
	MsgAdminNotFound       = "Admin not found"
	MsgAdminInactive       = "Admin account is inactive"
	MsgApplicationNotFound = "Application not found"
	MsgNotPermitted        = "You do not have permission to perform this action"
	MsgNoPendingSecondary  = "No pending secondary approval for this application"
	MsgSecondaryExpired    = "The secondary approval window has expired"
	MsgSameApprover        = "Secondary approval must come from a different admin"
	MsgSecondaryPending    = "A secondary approval is already pending for this application"
	MsgNotOwner            = "Application does not belong to this business"
	MsgBusinessTarget      = "Businesses can only resubmit an application to pending"
	MsgPrimaryStale        = "The application changed after the primary approval. It must be approved again."
)

// Notifier delivers one-way notifications.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) ([]models.Notification, error)
}

// Assignments tracks the reviewer assignment an application is worked under.
type Assignments interface {
	Start(ctx context.Context, applicationID string) (*models.Assignment, error)
	Complete(ctx context.Context, applicationID, performedBy string) (*models.Assignment, error)
}

type Config struct {
	BusinessHours           permissions.BusinessHours
	DualAuthorizationWindow time.Duration
}

type Service struct {
	store       store.Store
	audit       audit.Sink
	notifier    Notifier
	assignments Assignments
	config      Config
	now         func() time.Time
	log         logger.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAssignments keeps reviewer assignments in step with review decisions.
func WithAssignments(a Assignments) Option {
	return func(s *Service) { s.assignments = a }
}

// NewService builds the service. auditSink and notifier may be nil.
func NewService(s store.Store, auditSink audit.Sink, notifier Notifier, config Config, log logger.Logger, opts ...Option) *Service {
	if config.DualAuthorizationWindow <= 0 {
		config.DualAuthorizationWindow = DefaultDualAuthorizationWindow
	}
	if config.BusinessHours.Location == nil {
		config.BusinessHours = permissions.DefaultBusinessHours(time.UTC)
	}
	svc := &Service{
		store:    s,
		audit:    auditSink,
		notifier: notifier,
		config:   config,
		now:      time.Now,
		log:      log.WithFields(map[string]interface{}{"component": "approval"}),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Outcome is the result of a review action. Refusals have Success=false.
type Outcome struct {
	Success                   bool                     `json:"success"`
	Message                   string                   `json:"message"`
	Code                      errors.ErrorCode         `json:"code,omitempty"`
	PreviousStatus            models.ApplicationStatus `json:"previousStatus,omitempty"`
	Status                    models.ApplicationStatus `json:"status,omitempty"`
	Warning                   string                   `json:"warning,omitempty"`
	DualAuthorizationRequired bool                     `json:"dualAuthorizationRequired"`
	RequiredBy                *time.Time               `json:"requiredBy,omitempty"`
}

func refuse(code errors.ErrorCode, message string) *Outcome {
	return &Outcome{Success: false, Code: code, Message: message}
}

func (s *Service) loadAdmin(ctx context.Context, id string) (*models.AdminProfile, int64, *Outcome, error) {
	var admin models.AdminProfile
	v, err := store.Load(ctx, s.store, models.CollectionAdminProfiles, id, &admin)
	if store.IsNotFound(err) {
		return nil, 0, refuse(errors.ErrCodeAdminNotFound, MsgAdminNotFound), nil
	}
	if err != nil {
		return nil, 0, nil, err
	}
	if !admin.IsActive {
		return nil, 0, refuse(errors.ErrCodePermissionDenied, MsgAdminInactive), nil
	}
	if _, err := permissions.ParseRole(string(admin.Role)); err != nil {
		return nil, 0, refuse(errors.ErrCodeInvalidRole, fmt.Sprintf("Unknown admin role %q", admin.Role)), nil
	}
	return &admin, v, nil, nil
}

func (s *Service) loadApplication(ctx context.Context, id string) (*models.Application, int64, *Outcome, error) {
	var app models.Application
	v, err := store.Load(ctx, s.store, models.CollectionApplications, id, &app)
	if store.IsNotFound(err) {
		return nil, 0, refuse(errors.ErrCodeApplicationNotFound, MsgApplicationNotFound), nil
	}
	if err != nil {
		return nil, 0, nil, err
	}
	return &app, v, nil, nil
}

// approvalGate checks everything an approval of amount by admin needs besides the state machine.
func (s *Service) approvalGate(admin *models.AdminProfile, amount decimal.Decimal, now time.Time) *Outcome {
	if !permissions.Can(*admin, permissions.CanApprove) {
		return refuse(errors.ErrCodePermissionDenied, MsgNotPermitted)
	}
	if !permissions.CanApproveAmount(*admin, amount) {
		limit := permissions.EffectiveApprovalLimit(*admin)
		return refuse(errors.ErrCodePermissionDenied,
			fmt.Sprintf("Amount %s exceeds your approval limit of %s", models.FormatNaira(amount), models.FormatNaira(limit.Amount)))
	}
	if d := s.config.BusinessHours.CanApproveHighValue(amount, now); !d.Allowed {
		return refuse(errors.ErrCodeOutsideBusinessHours, d.Reason)
	}
	return nil
}

func (s *Service) record(ctx context.Context, admin *models.AdminProfile, action models.AdminActionType, app *models.Application, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := audit.NewAction(*admin, action, "application", app.ID, details, s.now())
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("audit write failed", map[string]interface{}{
			"applicationId": app.ID,
			"action":        string(action),
			"error":         err.Error(),
		})
	}
}

func (s *Service) notifyBusiness(ctx context.Context, app *models.Application, event models.NotificationEvent, data map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["applicationId"] = app.ID
	data["amount"] = models.FormatNaira(app.RequestedAmount)

	msg := notify.Message{
		Recipient: notify.Recipient{
			ID:    app.BusinessID,
			Type:  notify.RecipientBusiness,
			Name:  app.BusinessName,
			Email: app.ContactEmail,
			Phone: app.ContactPhone,
		},
		Event: event,
		Data:  data,
	}
	if _, err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Warn("notification failed", map[string]interface{}{
			"applicationId": app.ID,
			"event":         string(event),
			"error":         err.Error(),
		})
	}
}
