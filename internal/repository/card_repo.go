package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/model"
)

type CardRepository struct {
	db *pgxpool.Pool
}

func NewCardRepository(db *pgxpool.Pool) *CardRepository {
	return &CardRepository{db: db}
}

const cardColumns = `id::text, bank_id::text, last4, card_type, card_kind`

// ListByBank returns the bank's cards in registration order, which is the
// order card matching walks them.
func (r *CardRepository) ListByBank(ctx context.Context, bankID string) ([]model.CardDirectoryEntry, error) {
	query := `
        SELECT ` + cardColumns + `
        FROM cards
        WHERE bank_id = $1
        ORDER BY created_at, id
    `
	return r.list(ctx, query, bankID)
}

func (r *CardRepository) GetAll(ctx context.Context) ([]model.CardDirectoryEntry, error) {
	return r.list(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY created_at, id`)
}

func (r *CardRepository) list(ctx context.Context, query string, args ...any) ([]model.CardDirectoryEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CardDirectoryEntry, error) {
		var c model.CardDirectoryEntry
		err := row.Scan(&c.ID, &c.BankID, &c.Last4, &c.CardType, &c.CardKind)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan cards: %w", err)
	}
	return cards, nil
}
