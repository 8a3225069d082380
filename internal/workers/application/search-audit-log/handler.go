package searchauditlog

import (
	"context"
	"fmt"
	"math"
	"time"

	"financing-workers/internal/audit"
	"financing-workers/internal/common/camunda"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"
	"financing-workers/internal/permissions"
	"financing-workers/internal/ratelimit"
	"financing-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "search-audit-log"
)

const (
	MsgAdminNotFound = "Admin not found"
	MsgAdminInactive = "Admin account is inactive"
	MsgNotPermitted  = "You do not have permission to access audit logs"
)

type Searcher interface {
	Search(ctx context.Context, q audit.Query) (*audit.SearchResult, error)
}

type Handler struct {
	config   *Config
	searcher Searcher
	store    store.Store
	limiter  ratelimit.Limiter
	sink     audit.Sink
	now      func() time.Time
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

// NewHandler builds the handler. limiter and sink may be nil.
func NewHandler(config *Config, searcher Searcher, s store.Store, limiter ratelimit.Limiter, sink audit.Sink, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		searcher: searcher,
		store:    s,
		limiter:  limiter,
		sink:     sink,
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
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func refuse(code errors.ErrorCode, message string) *Output {
	return &Output{Success: false, ErrorCode: string(code), Message: message}
}

// Execute checks the requester may read audit logs, applies the per-admin
// limit and returns one page of matching actions, newest first. The search
// itself is recorded as an audit entry.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var admin models.AdminProfile
	if _, err := store.Load(ctx, h.store, models.CollectionAdminProfiles, input.AdminID, &admin); err != nil {
		if store.IsNotFound(err) {
			return refuse(errors.ErrCodeAdminNotFound, MsgAdminNotFound), nil
		}
		return nil, err
	}
	if !admin.IsActive {
		return refuse(errors.ErrCodePermissionDenied, MsgAdminInactive), nil
	}
	if !permissions.CanPerform(admin, models.ActionAccessAuditLogs) {
		return refuse(errors.ErrCodePermissionDenied, MsgNotPermitted), nil
	}

	if h.limiter != nil {
		decision, err := h.limiter.Allow(ctx, ratelimit.APIKey(TaskType, admin.ID), h.config.Rule)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			out := refuse(errors.ErrCodeRateLimited,
				fmt.Sprintf("Too many audit searches. Try again in %s.", ratelimit.FormatWait(decision.ResetIn)))
			out.RetryAfterSeconds = int(math.Ceil(decision.ResetIn.Seconds()))
			return out, nil
		}
	}

	q := audit.Query{
		AdminID:      input.ActorID,
		Action:       models.AdminActionType(input.Action),
		ResourceType: input.ResourceType,
		ResourceID:   input.ResourceID,
		From:         input.From,
		Size:         input.Size,
	}
	if input.Since != nil {
		q.Since = *input.Since
	}
	if input.Until != nil {
		q.Until = *input.Until
	}
	if !q.Since.IsZero() && !q.Until.IsZero() && !q.Since.Before(q.Until) {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			"since must be before until", q.Since.Format(time.RFC3339))
	}

	res, err := h.searcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	h.recordAccess(ctx, admin, q, res.Total)
	h.logger.Info("audit log searched", map[string]interface{}{
		"adminId": admin.ID,
		"total":   res.Total,
	})
	return &Output{Success: true, Total: res.Total, Actions: res.Actions}, nil
}

func (h *Handler) recordAccess(ctx context.Context, admin models.AdminProfile, q audit.Query, total int64) {
	if h.sink == nil {
		return
	}
	entry := audit.NewAction(admin, models.ActionAccessAuditLogs, "audit_log", "", map[string]interface{}{
		"actorId":      q.AdminID,
		"action":       string(q.Action),
		"resourceType": q.ResourceType,
		"resourceId":   q.ResourceID,
		"total":        total,
	}, h.now())
	if err := h.sink.Record(ctx, entry); err != nil {
		h.logger.Warn("audit write failed", map[string]interface{}{
			"adminId": admin.ID,
			"error":   err.Error(),
		})
	}
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
