package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionLocal         TransactionType = "local"
	TransactionInternational TransactionType = "international"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusVerified  TransactionStatus = "verified"
	StatusRejected  TransactionStatus = "rejected"
	StatusSubmitted TransactionStatus = "submitted"
)

// Terminal reports whether no further transition is possible.
func (s TransactionStatus) Terminal() bool {
	return s == StatusRejected || s == StatusSubmitted
}

// Transaction is a payment instruction. Status only moves
// pending -> verified|rejected and verified -> submitted.
type Transaction struct {
	ID             string            `json:"id"`
	OwnerID        string            `json:"ownerId"`
	Recipient      string            `json:"recipient"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	AccountNumber  string            `json:"accountNumber"`
	RoutingCode    string            `json:"swiftCode,omitempty"`
	Type           TransactionType   `json:"type"`
	Status         TransactionStatus `json:"status"`
	IdempotencyKey string            `json:"-"`
	CreatedAt      time.Time         `json:"createdAt"`
	ResolvedAt     *time.Time        `json:"resolvedAt,omitempty"`
	ResolvedBy     string            `json:"resolvedBy,omitempty"`
	SubmittedAt    *time.Time        `json:"submittedAt,omitempty"`
	BatchID        string            `json:"batchId,omitempty"`
}
