// Package investment applies a single investment to an investor wallet and an
// opportunity. The writes span several documents and are not atomic; every
// write carries a version token and progress is journaled so that an
// interrupted investment can be rolled forward or compensated by Reconcile.
package investment

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/common/metrics"
	"financing-workers/internal/models"
	"financing-workers/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MsgOpportunityNotFound = "Investment opportunity not found"
	MsgOpportunityInactive = "This opportunity is no longer active"
	MsgWalletNotFound      = "Wallet not found. Please deposit funds first."
	MsgDeadlinePassed      = "Campaign deadline has passed"
	MsgAlreadyProcessed    = "Investment already processed"
	MsgNeedsReview         = "This investment is awaiting manual review"

	DefaultInvestorType = "individual"

	defaultReconcileAfter       = 5 * time.Minute
	defaultCompensationAttempts = 5
)

var (
	errInProgress = stderrors.New("investment in progress")

	idempotencyNamespace = uuid.MustParse("5b0f4e8c-2a57-4d3e-9c61-7e1d0a4b8f23")
)

// Request is a single investment instruction.
type Request struct {
	InvestorID     string          `json:"investorId"`
	InvestorType   string          `json:"investorType,omitempty"`
	OpportunityID  string          `json:"opportunityId"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
}

// Result reports the outcome. Refusals have Success=false and a user-facing Message.
type Result struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	Code         errors.ErrorCode `json:"code,omitempty"`
	InvestmentID string           `json:"investmentId,omitempty"`
	Projection   *Projection      `json:"projection,omitempty"`
	Replayed     bool             `json:"replayed,omitempty"`
}

type Processor struct {
	store                store.Store
	log                  logger.Logger
	now                  func() time.Time
	loc                  *time.Location
	reconcileAfter       time.Duration
	compensationAttempts int
}

type Option func(*Processor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithLocation sets the location campaign deadlines are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(p *Processor) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithReconcileAfter sets how long a journal entry must be idle before it is
// considered abandoned. It must exceed the longest time a single
// ProcessInvestment call can run.
func WithReconcileAfter(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.reconcileAfter = d
		}
	}
}

// WithCompensationAttempts bounds the compare-and-set retries of a wallet refund.
func WithCompensationAttempts(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.compensationAttempts = n
		}
	}
}

func NewProcessor(s store.Store, log logger.Logger, opts ...Option) *Processor {
	p := &Processor{
		store:                s,
		log:                  log.WithFields(map[string]interface{}{"component": "investment"}),
		now:                  time.Now,
		loc:                  time.UTC,
		reconcileAfter:       defaultReconcileAfter,
		compensationAttempts: defaultCompensationAttempts,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// InvestmentID derives the id for req. With an idempotency key the id is
// stable across retries; without one it is time based.
func (p *Processor) InvestmentID(req Request) string {
	if req.IdempotencyKey != "" {
		return "inv_" + uuid.NewSHA1(idempotencyNamespace, []byte(req.InvestorID+":"+req.IdempotencyKey)).String()
	}
	prefix := req.InvestorID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("inv_%d_%s", p.now().UnixMilli(), prefix)
}

func ledgerID(investmentID string) string {
	return "txn_" + strings.TrimPrefix(investmentID, "inv_")
}

func compensationRef(investmentID string) string {
	return "cmp_" + strings.TrimPrefix(investmentID, "inv_")
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.InvestorID) == "" {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "Investor id is required", "investorId")
	}
	if strings.TrimSpace(req.OpportunityID) == "" {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "Opportunity id is required", "opportunityId")
	}
	if !req.Amount.IsPositive() {
		return errors.NewValidationError(errors.ErrCodeInvalidAmount, "Investment amount must be positive", req.Amount.String())
	}
	return nil
}

// entry is a journal document together with its version token.
type entry struct {
	j       models.InvestmentJournal
	version int64
}

// snapshot is what the precondition checks read, with version tokens.
type snapshot struct {
	opportunity   models.Opportunity
	oppVersion    int64
	wallet        models.Wallet
	walletVersion int64
}

// ProcessInvestment checks every precondition, then debits the wallet, credits
// the opportunity and records the investment and its ledger entry.
//
// Refusals return a Result with Success=false and no mutation. A stale version
// token returns a retryable conflict error; if the wallet was already debited
// it is refunded first.
func (p *Processor) ProcessInvestment(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.InvestorType == "" {
		req.InvestorType = DefaultInvestorType
	}

	id := p.InvestmentID(req)
	log := p.log.WithFields(map[string]interface{}{
		"investmentId":  id,
		"investorId":    req.InvestorID,
		"opportunityId": req.OpportunityID,
	})

	var prior *entry
	if req.IdempotencyKey != "" {
		e, err := p.loadJournal(ctx, id)
		switch {
		case err == nil:
			if e.j.OpportunityID != req.OpportunityID || !e.j.Amount.Equal(req.Amount) {
				return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
					"Idempotency key was already used for a different investment", id)
			}
			res, err := p.resume(ctx, e)
			if res != nil || err != nil {
				return res, err
			}
			prior = e
		case !store.IsNotFound(err):
			return nil, err
		}
	}

	snap, refusal, err := p.precheck(ctx, req)
	if err != nil {
		return nil, err
	}
	if refusal != nil {
		metrics.InvestmentsProcessed.WithLabelValues(string(refusal.Code)).Inc()
		log.Info("investment refused", map[string]interface{}{"code": string(refusal.Code), "reason": refusal.Message})
		return refusal, nil
	}

	now := p.now()
	e := &entry{}
	if prior != nil {
		e.version = prior.version
	}
	e.j = models.InvestmentJournal{
		InvestmentID:       id,
		IdempotencyKey:     req.IdempotencyKey,
		InvestorID:         req.InvestorID,
		InvestorType:       req.InvestorType,
		OpportunityID:      req.OpportunityID,
		Amount:             req.Amount,
		WalletVersion:      snap.walletVersion,
		OpportunityVersion: snap.oppVersion,
		CreatedAt:          now,
	}
	if err := p.writeJournal(ctx, e, models.StagePending, ""); err != nil {
		return nil, err
	}

	wallet := snap.wallet
	wallet.Debit(req.Amount, id, now)
	if _, err := p.store.Set(ctx, models.CollectionWallets, req.InvestorID, wallet, snap.walletVersion); err != nil {
		if errors.IsConflict(err) {
			p.bestEffort(ctx, e, models.StageAborted, err)
			metrics.InvestmentsProcessed.WithLabelValues(string(errors.ErrCodeVersionConflict)).Inc()
			log.Warn("wallet changed during investment", nil)
			return nil, err
		}
		p.bestEffort(ctx, e, e.j.Stage, err)
		return nil, err
	}
	if err := p.writeJournal(ctx, e, models.StageWalletDebited, ""); err != nil {
		return nil, err
	}

	opp := snap.opportunity
	opp.Credit(req.Amount, id, now)
	if _, err := p.store.Set(ctx, models.CollectionOpportunities, req.OpportunityID, opp, snap.oppVersion); err != nil {
		if !errors.IsConflict(err) {
			p.bestEffort(ctx, e, e.j.Stage, err)
			return nil, err
		}
		metrics.InvestmentsProcessed.WithLabelValues(string(errors.ErrCodeVersionConflict)).Inc()
		log.Warn("opportunity changed during investment, refunding wallet", nil)
		e.j.Compensate = true
		p.bestEffort(ctx, e, e.j.Stage, err)
		if cerr := p.compensate(ctx, e); cerr != nil {
			log.Error("wallet refund failed, left for reconciliation", map[string]interface{}{"error": cerr.Error()})
		}
		return nil, err
	}
	if err := p.writeJournal(ctx, e, models.StageOpportunityCredited, ""); err != nil {
		return nil, err
	}

	if err := p.finish(ctx, e, opp); err != nil {
		return nil, err
	}

	proj := CalculateReturns(req.Amount, opp.ExpectedReturnMin, opp.ExpectedReturnMax, opp.TermMonths)
	metrics.InvestmentsProcessed.WithLabelValues("success").Inc()
	metrics.InvestedAmount.WithLabelValues(string(opp.ContractType)).Add(req.Amount.InexactFloat64())
	log.Info("investment completed", map[string]interface{}{
		"amount": req.Amount.String(),
		"funded": opp.Status == models.OpportunityFunded,
	})

	name := opp.BusinessName
	if name == "" {
		name = req.OpportunityID
	}
	return &Result{
		Success:      true,
		Message:      fmt.Sprintf("Successfully invested %s in %s", models.FormatNaira(req.Amount), name),
		InvestmentID: id,
		Projection:   &proj,
	}, nil
}

func refuse(code errors.ErrorCode, message string) *Result {
	return &Result{Success: false, Code: code, Message: message}
}

func (p *Processor) precheck(ctx context.Context, req Request) (*snapshot, *Result, error) {
	var s snapshot

	v, err := store.Load(ctx, p.store, models.CollectionOpportunities, req.OpportunityID, &s.opportunity)
	if store.IsNotFound(err) {
		return nil, refuse(errors.ErrCodeOpportunityNotFound, MsgOpportunityNotFound), nil
	}
	if err != nil {
		return nil, nil, err
	}
	s.oppVersion = v
	opp := s.opportunity

	if opp.Status != models.OpportunityActive {
		return nil, refuse(errors.ErrCodeOpportunityInactive, MsgOpportunityInactive), nil
	}

	v, err = store.Load(ctx, p.store, models.CollectionWallets, req.InvestorID, &s.wallet)
	if store.IsNotFound(err) {
		return nil, refuse(errors.ErrCodeWalletNotFound, MsgWalletNotFound), nil
	}
	if err != nil {
		return nil, nil, err
	}
	s.walletVersion = v

	if s.wallet.AvailableBalance.LessThan(req.Amount) {
		return nil, refuse(errors.ErrCodeInsufficientBalance,
			fmt.Sprintf("Insufficient balance. Available: %s", models.FormatNaira(s.wallet.AvailableBalance))), nil
	}
	if req.Amount.LessThan(opp.MinimumInvestment) {
		return nil, refuse(errors.ErrCodeBelowMinimumInvestment,
			fmt.Sprintf("Minimum investment is %s", models.FormatNaira(opp.MinimumInvestment))), nil
	}
	if remaining := opp.Remaining(); req.Amount.GreaterThan(remaining) {
		return nil, refuse(errors.ErrCodeCapacityExceeded,
			fmt.Sprintf("Remaining capacity exceeded: only %s remaining to fund", models.FormatNaira(remaining))), nil
	}

	if opp.CampaignDeadline != "" {
		deadline, err := opp.Deadline(p.loc)
		if err != nil {
			return nil, nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
				"Opportunity has an invalid campaign deadline", err.Error())
		}
		y, m, d := p.now().In(p.loc).Date()
		if deadline.Before(time.Date(y, m, d, 0, 0, 0, 0, p.loc)) {
			return nil, refuse(errors.ErrCodeCampaignClosed, MsgDeadlinePassed), nil
		}
	}

	return &s, nil, nil
}

// resume decides what a repeated idempotency key means. A nil Result and nil
// error mean the earlier attempt left nothing behind and the request may run again.
func (p *Processor) resume(ctx context.Context, e *entry) (*Result, error) {
	id := e.j.InvestmentID
	if !e.j.Stage.Terminal() {
		if p.now().Sub(e.j.UpdatedAt) < p.reconcileAfter {
			return nil, errors.NewConflictError(models.CollectionInvestmentJournal+"/"+id, errInProgress)
		}
		if _, err := p.Reconcile(ctx, id); err != nil {
			return nil, err
		}
		reloaded, err := p.loadJournal(ctx, id)
		if err != nil {
			return nil, err
		}
		*e = *reloaded
	}

	switch e.j.Stage {
	case models.StageCompleted:
		return &Result{Success: true, Message: MsgAlreadyProcessed, InvestmentID: id, Replayed: true}, nil
	case models.StageNeedsReview:
		return &Result{Success: false, Code: errors.ErrCodeInvestmentAlreadyRecorded, Message: MsgNeedsReview, InvestmentID: id}, nil
	}
	return nil, nil
}

// finish writes the investment record and ledger entry, both create-only, and
// closes the journal. Existing records from an earlier attempt are kept.
func (p *Processor) finish(ctx context.Context, e *entry, opp models.Opportunity) error {
	j := e.j
	inv := models.InvestmentTransaction{
		ID:                j.InvestmentID,
		InvestorID:        j.InvestorID,
		InvestorType:      j.InvestorType,
		OpportunityID:     j.OpportunityID,
		Amount:            j.Amount,
		ContractType:      opp.ContractType,
		ExpectedReturnMin: opp.ExpectedReturnMin,
		ExpectedReturnMax: opp.ExpectedReturnMax,
		TermMonths:        opp.TermMonths,
		Status:            models.InvestmentActive,
		TransactionDate:   j.CreatedAt,
		IdempotencyKey:    j.IdempotencyKey,
	}
	if _, err := p.store.Set(ctx, models.CollectionInvestments, inv.ID, inv, 0); err != nil && !store.IsConflict(err) {
		return err
	}

	tx := models.Transaction{
		ID:          ledgerID(j.InvestmentID),
		UserID:      j.InvestorID,
		Type:        models.TxInvestment,
		Amount:      j.Amount,
		Status:      models.TxCompleted,
		Reference:   j.InvestmentID,
		Description: "Investment in " + opp.BusinessName,
		CreatedAt:   j.CreatedAt,
	}
	if _, err := p.store.Set(ctx, models.CollectionTransactions, tx.ID, tx, 0); err != nil && !store.IsConflict(err) {
		return err
	}

	return p.writeJournal(ctx, e, models.StageCompleted, "")
}

// compensate refunds the wallet debit. Each credit is preceded by a journal
// claim naming the wallet version it is written against, and followed by a
// create-only refund ledger record, so a refund lands at most once.
func (p *Processor) compensate(ctx context.Context, e *entry) error {
	ref := compensationRef(e.j.InvestmentID)

	if e.j.Stage == models.StageCompensating {
		settled, err := p.settleRefund(ctx, e, ref)
		if settled || err != nil {
			return err
		}
	}

	for attempt := 0; attempt < p.compensationAttempts; attempt++ {
		var w models.Wallet
		v, err := store.Load(ctx, p.store, models.CollectionWallets, e.j.InvestorID, &w)
		if err != nil {
			return err
		}
		e.j.RefundVersion = v
		if err := p.writeJournal(ctx, e, models.StageCompensating, e.j.LastError); err != nil {
			return err
		}

		w.Credit(e.j.Amount, ref, p.now())
		_, err = p.store.Set(ctx, models.CollectionWallets, e.j.InvestorID, w, v)
		switch {
		case err == nil:
			return p.closeRefund(ctx, e, ref)
		case !errors.IsConflict(err):
			return err
		}
	}
	return errors.NewConflictError(models.CollectionWallets+"/"+e.j.InvestorID,
		fmt.Errorf("refund of %s gave up after %d attempts", e.j.InvestmentID, p.compensationAttempts))
}

// settleRefund resolves a claim left by an interrupted compensate. It returns
// false when the claimed wallet version is still current, so the credit never
// landed and may be retried.
func (p *Processor) settleRefund(ctx context.Context, e *entry, ref string) (bool, error) {
	var w models.Wallet
	v, err := store.Load(ctx, p.store, models.CollectionWallets, e.j.InvestorID, &w)
	if err != nil {
		return false, err
	}
	if v == e.j.RefundVersion {
		return false, nil
	}

	applied := w.LastTransactionID == ref
	if !applied {
		var tx models.Transaction
		_, err := store.Load(ctx, p.store, models.CollectionTransactions, ref, &tx)
		switch {
		case err == nil:
			applied = true
		case !store.IsNotFound(err):
			return false, err
		}
	}
	if applied {
		return true, p.closeRefund(ctx, e, ref)
	}
	return true, p.writeJournal(ctx, e, models.StageNeedsReview, "wallet changed while a refund was in flight")
}

// closeRefund records the refund in the ledger and closes the journal.
func (p *Processor) closeRefund(ctx context.Context, e *entry, ref string) error {
	tx := models.Transaction{
		ID:          ref,
		UserID:      e.j.InvestorID,
		Type:        models.TxRefund,
		Amount:      e.j.Amount,
		Status:      models.TxCompleted,
		Reference:   e.j.InvestmentID,
		Description: "Refund of interrupted investment",
		CreatedAt:   p.now(),
	}
	if _, err := p.store.Set(ctx, models.CollectionTransactions, ref, tx, 0); err != nil && !store.IsConflict(err) {
		return err
	}
	return p.writeJournal(ctx, e, models.StageCompensated, e.j.LastError)
}

func (p *Processor) loadJournal(ctx context.Context, id string) (*entry, error) {
	e := &entry{}
	v, err := store.Load(ctx, p.store, models.CollectionInvestmentJournal, id, &e.j)
	if err != nil {
		return nil, err
	}
	e.version = v
	return e, nil
}

func (p *Processor) writeJournal(ctx context.Context, e *entry, stage models.JournalStage, lastError string) error {
	e.j.Stage = stage
	e.j.LastError = lastError
	e.j.UpdatedAt = p.now()

	v, err := p.store.Set(ctx, models.CollectionInvestmentJournal, e.j.InvestmentID, e.j, e.version)
	if err != nil {
		return err
	}
	e.version = v
	return nil
}

// bestEffort records a failure on the journal without masking the original error.
func (p *Processor) bestEffort(ctx context.Context, e *entry, stage models.JournalStage, cause error) {
	if err := p.writeJournal(ctx, e, stage, cause.Error()); err != nil {
		p.log.Warn("journal update failed", map[string]interface{}{
			"investmentId": e.j.InvestmentID,
			"stage":        string(stage),
			"error":        err.Error(),
		})
	}
}
