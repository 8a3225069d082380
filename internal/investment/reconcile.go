package investment

import (
	"context"
	"time"

	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/metrics"
	"financing-workers/internal/models"
	"financing-workers/internal/store"
)

// ReconcileResult reports the stage a journal entry moved from and to.
type ReconcileResult struct {
	InvestmentID string              `json:"investmentId"`
	FromStage    models.JournalStage `json:"fromStage"`
	Stage        models.JournalStage `json:"stage"`
}

// ReconcileSummary aggregates a ReconcilePending sweep.
type ReconcileSummary struct {
	Examined int                         `json:"examined"`
	Failed   int                         `json:"failed"`
	Outcomes map[models.JournalStage]int `json:"outcomes"`
}

var openStages = []models.JournalStage{
	models.StagePending,
	models.StageWalletDebited,
	models.StageOpportunityCredited,
	models.StageCompensating,
}

// Reconcile drives an interrupted investment to a terminal stage.
//
//   - pending: aborted if the wallet version is unchanged, rolled forward if the
//     wallet's last transaction is this investment, needs_review otherwise.
//   - wallet_debited: refunded if the opportunity credit is known to have failed
//     or the opportunity version is unchanged, rolled forward if the
//     opportunity's last investment is this one, needs_review otherwise.
//   - opportunity_credited: the investment and ledger records are written.
//   - compensating: closed if the claimed refund landed, retried if the wallet
//     is still at the claimed version, needs_review otherwise.
func (p *Processor) Reconcile(ctx context.Context, investmentID string) (*ReconcileResult, error) {
	e, err := p.loadJournal(ctx, investmentID)
	if store.IsNotFound(err) {
		return nil, errors.NewStateError(errors.ErrCodeInvestmentNotFound, "Investment not found")
	}
	if err != nil {
		return nil, err
	}

	from := e.j.Stage
	if from.Terminal() {
		return &ReconcileResult{InvestmentID: investmentID, FromStage: from, Stage: from}, nil
	}

	// touching the entry first means only one reconciler proceeds
	if err := p.writeJournal(ctx, e, from, e.j.LastError); err != nil {
		return nil, err
	}
	if err := p.reconcile(ctx, e); err != nil {
		p.log.Warn("reconciliation incomplete", map[string]interface{}{
			"investmentId": investmentID,
			"stage":        string(e.j.Stage),
			"error":        err.Error(),
		})
		return nil, err
	}

	metrics.ReconciliationOutcomes.WithLabelValues(string(from), string(e.j.Stage)).Inc()
	p.log.Info("investment reconciled", map[string]interface{}{
		"investmentId": investmentID,
		"fromStage":    string(from),
		"stage":        string(e.j.Stage),
	})
	return &ReconcileResult{InvestmentID: investmentID, FromStage: from, Stage: e.j.Stage}, nil
}

func (p *Processor) reconcile(ctx context.Context, e *entry) error {
	if e.j.Stage == models.StagePending {
		var w models.Wallet
		v, err := store.Load(ctx, p.store, models.CollectionWallets, e.j.InvestorID, &w)
		if err != nil && !store.IsNotFound(err) {
			return err
		}
		switch {
		case store.IsNotFound(err) || v == e.j.WalletVersion:
			return p.writeJournal(ctx, e, models.StageAborted, "wallet was not debited")
		case w.LastTransactionID == e.j.InvestmentID:
			if err := p.writeJournal(ctx, e, models.StageWalletDebited, ""); err != nil {
				return err
			}
		default:
			return p.writeJournal(ctx, e, models.StageNeedsReview, "wallet changed after the journal entry was written")
		}
	}

	if e.j.Stage == models.StageWalletDebited {
		var o models.Opportunity
		v, err := store.Load(ctx, p.store, models.CollectionOpportunities, e.j.OpportunityID, &o)
		if err != nil && !store.IsNotFound(err) {
			return err
		}
		switch {
		case e.j.Compensate || store.IsNotFound(err) || v == e.j.OpportunityVersion:
			return p.compensate(ctx, e)
		case o.LastInvestmentID == e.j.InvestmentID:
			if err := p.writeJournal(ctx, e, models.StageOpportunityCredited, ""); err != nil {
				return err
			}
		default:
			return p.writeJournal(ctx, e, models.StageNeedsReview, "opportunity changed after the wallet was debited")
		}
	}

	if e.j.Stage == models.StageCompensating {
		return p.compensate(ctx, e)
	}

	if e.j.Stage == models.StageOpportunityCredited {
		var o models.Opportunity
		if _, err := store.Load(ctx, p.store, models.CollectionOpportunities, e.j.OpportunityID, &o); err != nil {
			return err
		}
		return p.finish(ctx, e, o)
	}
	return nil
}

// ReconcilePending reconciles every open journal entry idle for at least olderThan.
// Failures of individual entries are counted, not returned.
func (p *Processor) ReconcilePending(ctx context.Context, olderThan time.Duration) (*ReconcileSummary, error) {
	if olderThan <= 0 {
		olderThan = p.reconcileAfter
	}
	cutoff := p.now().Add(-olderThan)
	summary := &ReconcileSummary{Outcomes: make(map[models.JournalStage]int)}

	for _, stage := range openStages {
		docs, err := p.store.List(ctx, models.CollectionInvestmentJournal, store.Filter{"stage": string(stage)})
		if err != nil {
			return summary, err
		}
		for _, doc := range docs {
			var j models.InvestmentJournal
			if err := doc.Decode(&j); err != nil {
				summary.Failed++
				p.log.Error("unreadable journal entry", map[string]interface{}{"key": doc.Key, "error": err.Error()})
				continue
			}
			if j.Stage.Terminal() || j.UpdatedAt.After(cutoff) {
				continue
			}

			summary.Examined++
			res, err := p.Reconcile(ctx, doc.Key)
			if err != nil {
				summary.Failed++
				continue
			}
			summary.Outcomes[res.Stage]++
		}
	}
	return summary, nil
}
