package mq

import "github.com/shopspring/decimal"

// TransactionCreatedPayload is emitted through the outbox once per stored
// transaction.
type TransactionCreatedPayload struct {
	TransactionID   string          `json:"transaction_id"`
	IncomeMessageID string          `json:"income_message_id"`
	BankID          string          `json:"bank_id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	OccurredAt      string          `json:"occurred_at"`
	TraceID         string          `json:"trace_id,omitempty"`
}
