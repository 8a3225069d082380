// internal/models/investment.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CollectionInvestments       = "investments"
	CollectionInvestmentJournal = "investment_journal"
)

type InvestmentStatus string

const (
	InvestmentPending   InvestmentStatus = "pending"
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
	InvestmentDefaulted InvestmentStatus = "defaulted"
)

// InvestmentTransaction is the immutable record of one investment.
type InvestmentTransaction struct {
	ID                string           `json:"id"`
	InvestorID        string           `json:"investorId"`
	InvestorType      string           `json:"investorType"`
	OpportunityID     string           `json:"opportunityId"`
	Amount            decimal.Decimal  `json:"amount"`
	ContractType      ContractType     `json:"contractType"`
	ExpectedReturnMin decimal.Decimal  `json:"expectedReturnMin"`
	ExpectedReturnMax decimal.Decimal  `json:"expectedReturnMax"`
	TermMonths        int              `json:"termMonths"`
	Status            InvestmentStatus `json:"status"`
	TransactionDate   time.Time        `json:"transactionDate"`
	IdempotencyKey    string           `json:"idempotencyKey,omitempty"`
}

// JournalStage tracks how far an investment's multi-document write got.
type JournalStage string

const (
	StagePending             JournalStage = "pending"
	StageWalletDebited       JournalStage = "wallet_debited"
	StageOpportunityCredited JournalStage = "opportunity_credited"
	StageCompensating        JournalStage = "compensating"
	StageCompleted           JournalStage = "completed"
	StageAborted             JournalStage = "aborted"
	StageCompensated         JournalStage = "compensated"
	StageNeedsReview         JournalStage = "needs_review"
)

// Terminal reports whether no further reconciliation applies.
func (s JournalStage) Terminal() bool {
	switch s {
	case StageCompleted, StageAborted, StageCompensated, StageNeedsReview:
		return true
	}
	return false
}

// InvestmentJournal records the progress of one investment for reconciliation.
type InvestmentJournal struct {
	InvestmentID       string          `json:"investmentId"`
	IdempotencyKey     string          `json:"idempotencyKey,omitempty"`
	InvestorID         string          `json:"investorId"`
	InvestorType       string          `json:"investorType"`
	OpportunityID      string          `json:"opportunityId"`
	Amount             decimal.Decimal `json:"amount"`
	Stage              JournalStage    `json:"stage"`
	WalletVersion      int64           `json:"walletVersion"`
	OpportunityVersion int64           `json:"opportunityVersion"`
	Compensate         bool            `json:"compensate,omitempty"`    // opportunity credit definitely failed
	RefundVersion      int64           `json:"refundVersion,omitempty"` // wallet version the pending refund is written against
	LastError          string          `json:"lastError,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}
