package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mqcontracts "fintrack/contracts/mq"
	"fintrack/internal/model"
	"fintrack/internal/textutil"
	"fintrack/pkg/outbox"
	"fintrack/pkg/trace"
)

const incomeMessageConstraint = "transactions_income_message_id_key"

type TransactionRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
}

func NewTransactionRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository) *TransactionRepository {
	return &TransactionRepository{db: db, outbox: outboxRepo}
}

const transactionColumns = `id::text, type, description, amount, occurred_at, income_message_id,
        bank_id::text, card_id::text, category_id::text, budget_id::text, comment, created_at`

// GetByIncomeMessageID returns nil when the message produced no
// transaction yet.
func (r *TransactionRepository) GetByIncomeMessageID(ctx context.Context, messageID string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE income_message_id = $1`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, messageID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by message %s: %w", messageID, err)
	}
	return tx, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

// Create stores in and queues its transaction.created event in the same
// database transaction. A second insert for the same income_message_id
// fails with ErrDuplicateMessage.
func (r *TransactionRepository) Create(ctx context.Context, in model.TransactionInsert) (*model.Transaction, error) {
	occurredAt, err := time.Parse(textutil.ISOLayout, in.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("occurred_at %q: %w", in.OccurredAt, err)
	}

	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	query := `
        INSERT INTO transactions (id, type, description, amount, occurred_at, income_message_id,
            bank_id, card_id, category_id, budget_id, comment, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
        RETURNING ` + transactionColumns
	created, err := scanTransaction(dbTx.QueryRow(ctx, query,
		uuid.NewString(),
		string(in.Type),
		in.Description,
		in.Amount,
		occurredAt,
		in.IncomeMessageID,
		in.BankID,
		in.CardID,
		in.CategoryID,
		in.BudgetID,
		in.Comment,
	))
	if isUniqueViolation(err, incomeMessageConstraint) {
		return nil, ErrDuplicateMessage
	}
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	payload := mqcontracts.TransactionCreatedPayload{
		TransactionID:   created.ID,
		IncomeMessageID: created.IncomeMessageID,
		BankID:          created.BankID,
		Type:            string(created.Type),
		Amount:          created.Amount,
		OccurredAt:      created.OccurredAt,
		TraceID:         trace.FromContext(ctx),
	}
	if _, err := outbox.InsertEventInTx(ctx, dbTx, r.outbox, "transaction", created.ID, mqcontracts.RoutingKeyTransactionCreated, payload); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return created, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		t          model.Transaction
		typ        string
		occurredAt time.Time
	)
	err := row.Scan(
		&t.ID,
		&typ,
		&t.Description,
		&t.Amount,
		&occurredAt,
		&t.IncomeMessageID,
		&t.BankID,
		&t.CardID,
		&t.CategoryID,
		&t.BudgetID,
		&t.Comment,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Type = model.TransactionType(typ)
	t.OccurredAt = textutil.FormatISO(occurredAt)
	return &t, nil
}
