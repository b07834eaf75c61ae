package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionExpense TransactionType = "expense"
	TransactionIncome  TransactionType = "income"
)

type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

type CardType string

const (
	CardDebit  CardType = "debit"
	CardCredit CardType = "credit"
)

// ExtractedTransactionData is the normalized output of a bank extractor.
// The optional hints are consumed independently by the builder:
// CardLast4 drives card matching, PreferCardType is only used when no
// last-4 was found, PaymentMethod is informational.
type ExtractedTransactionData struct {
	Type        TransactionType
	Description string
	Amount      decimal.Decimal
	OccurredAt  time.Time

	PaymentMethod  *PaymentMethod
	CardLast4      *string
	PreferCardType *CardType
	Comment        *string
}

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrEmptyDescription   = errors.New("description is empty")
	ErrMissingOccurredAt  = errors.New("occurred_at is zero")
	ErrUnknownTransaction = errors.New("unknown transaction type")

	// ErrDuplicateMessage is returned by stores when a transaction with the
	// same income_message_id already exists.
	ErrDuplicateMessage = errors.New("transaction for message already exists")
)

// Validate checks the invariants every extractor result must satisfy.
func (d *ExtractedTransactionData) Validate() error {
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if d.Description == "" {
		return ErrEmptyDescription
	}
	if d.OccurredAt.IsZero() {
		return ErrMissingOccurredAt
	}
	if d.Type != TransactionExpense && d.Type != TransactionIncome {
		return ErrUnknownTransaction
	}
	return nil
}

// TransactionInsert is the persistable record built from an email.
// IncomeMessageID is unique in the store and is the idempotence key.
type TransactionInsert struct {
	Type            TransactionType `json:"type"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	OccurredAt      string          `json:"occurred_at"`
	IncomeMessageID string          `json:"income_message_id"`
	BankID          string          `json:"bank_id"`
	CardID          *string         `json:"card_id"`
	CategoryID      *string         `json:"category_id"`
	BudgetID        *string         `json:"budget_id"`
	Comment         *string         `json:"comment"`
}

// Transaction is a stored TransactionInsert.
type Transaction struct {
	ID string `json:"id"`
	TransactionInsert
	CreatedAt time.Time `json:"created_at"`
}

// AIExtraction is what the opaque AI-assisted extractor returns.
type AIExtraction struct {
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  string          `json:"occurred_at"`
	Bank        string          `json:"bank"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
