// internal/workers/application/send-notification/handler.go
package sendnotification

import (
	"context"
	"time"

	"financing-workers/internal/common/camunda"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"
	"financing-workers/internal/notify"
	"financing-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-notification"
)

type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) ([]models.Notification, error)
}

type Handler struct {
	config   *Config
	notifier Notifier
	store    store.Store
	now      func() time.Time
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, notifier Notifier, s store.Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		notifier: notifier,
		store:    s,
		now:      time.Now,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := camunda.DecodeVariables(job, h.config.Activity, &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		// send failures are dependency errors and go back to Zeebe with retries
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// Execute resolves the recipient's contact details and sends the event. A
// recipient that no longer exists completes as disabled.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	output := &Output{
		NotificationID: uuid.New().String(),
		Status:         notify.StatusDisabled,
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}

	recipient, err := h.recipient(ctx, input)
	if store.IsNotFound(err) {
		h.logger.Warn("recipient not found", map[string]interface{}{
			"recipientId":   input.RecipientID,
			"type":          input.RecipientType,
			"applicationId": input.ApplicationID,
		})
		return output, nil
	}
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{}
	if input.ApplicationID != "" {
		data["applicationId"] = input.ApplicationID
	}
	for k, v := range input.Data {
		data[k] = v
	}

	deliveries, err := h.notifier.Notify(ctx, notify.Message{
		Recipient: recipient,
		Event:     models.NotificationEvent(input.Event),
		Data:      data,
	})
	if err != nil {
		return nil, err
	}

	output.Deliveries = deliveries
	output.Status = overallStatus(deliveries)

	h.logger.Info("notification processed", map[string]interface{}{
		"notificationId": output.NotificationID,
		"event":          input.Event,
		"status":         output.Status,
	})
	return output, nil
}

func (h *Handler) recipient(ctx context.Context, input *Input) (notify.Recipient, error) {
	switch input.RecipientType {
	case notify.RecipientBusiness:
		var app models.Application
		if _, err := store.Load(ctx, h.store, models.CollectionApplications, input.ApplicationID, &app); err != nil {
			return notify.Recipient{}, err
		}
		return notify.Recipient{
			ID:    app.BusinessID,
			Type:  notify.RecipientBusiness,
			Name:  app.BusinessName,
			Email: app.ContactEmail,
			Phone: app.ContactPhone,
		}, nil
	case notify.RecipientInvestor:
		var inv models.Investor
		if _, err := store.Load(ctx, h.store, models.CollectionInvestors, input.RecipientID, &inv); err != nil {
			return notify.Recipient{}, err
		}
		return notify.Recipient{
			ID:    inv.ID,
			Type:  notify.RecipientInvestor,
			Name:  inv.Name,
			Email: inv.Email,
			Phone: inv.Phone,
		}, nil
	case notify.RecipientAdmin:
		var admin models.AdminProfile
		if _, err := store.Load(ctx, h.store, models.CollectionAdminProfiles, input.RecipientID, &admin); err != nil {
			return notify.Recipient{}, err
		}
		return notify.Recipient{
			ID:    admin.ID,
			Type:  notify.RecipientAdmin,
			Name:  admin.Name,
			Email: admin.Email,
			Phone: admin.Phone,
		}, nil
	}
	return notify.Recipient{}, errors.NewValidationError(errors.ErrCodeValidationFailed,
		"Unknown recipient type", input.RecipientType)
}

// overallStatus is sent if any channel delivered, disabled otherwise.
func overallStatus(deliveries []models.Notification) string {
	for _, d := range deliveries {
		if d.Status == notify.StatusSent {
			return notify.StatusSent
		}
	}
	return notify.StatusDisabled
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
