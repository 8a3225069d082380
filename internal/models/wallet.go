// internal/models/wallet.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CollectionWallets      = "wallets"
	CollectionTransactions = "transactions"
)

type WalletStatus string

const (
	WalletActive    WalletStatus = "active"
	WalletSuspended WalletStatus = "suspended"
	WalletClosed    WalletStatus = "closed"
)

// Wallet holds one investor's balances. Keyed by user id.
type Wallet struct {
	UserID            string          `json:"userId"`
	AvailableBalance  decimal.Decimal `json:"availableBalance"`
	PendingBalance    decimal.Decimal `json:"pendingBalance"`
	TotalBalance      decimal.Decimal `json:"totalBalance"`
	TotalInvested     decimal.Decimal `json:"totalInvested"`
	TotalReturns      decimal.Decimal `json:"totalReturns"`
	Currency          string          `json:"currency"`
	Status            WalletStatus    `json:"status"`
	LastTransactionID string          `json:"lastTransactionId,omitempty"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Debit moves amount out of the available and total balances into totalInvested.
func (w *Wallet) Debit(amount decimal.Decimal, ref string, at time.Time) {
	w.AvailableBalance = w.AvailableBalance.Sub(amount)
	w.TotalBalance = w.TotalBalance.Sub(amount)
	w.TotalInvested = w.TotalInvested.Add(amount)
	w.LastTransactionID = ref
	w.UpdatedAt = at
}

// Credit reverses a Debit.
func (w *Wallet) Credit(amount decimal.Decimal, ref string, at time.Time) {
	w.AvailableBalance = w.AvailableBalance.Add(amount)
	w.TotalBalance = w.TotalBalance.Add(amount)
	w.TotalInvested = w.TotalInvested.Sub(amount)
	w.LastTransactionID = ref
	w.UpdatedAt = at
}

type TransactionType string

const (
	TxInvestment         TransactionType = "investment"
	TxProfitDistribution TransactionType = "profit_distribution"
	TxDeposit            TransactionType = "deposit"
	TxWithdrawal         TransactionType = "withdrawal"
	TxFee                TransactionType = "fee"
	TxRefund             TransactionType = "refund"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

// Transaction is a generic ledger record.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	Reference   string            `json:"reference"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}
