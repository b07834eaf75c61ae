package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/model"
)

type BankRepository struct {
	db *pgxpool.Pool
}

func NewBankRepository(db *pgxpool.Pool) *BankRepository {
	return &BankRepository{db: db}
}

const bankColumns = `id::text, slug, name, whitelisted_senders, blacklisted_subjects`

// GetByEmail returns the bank whose whitelist contains email, ignoring
// case, or nil when no bank lists it.
func (r *BankRepository) GetByEmail(ctx context.Context, email string) (*model.BankDirectoryEntry, error) {
	query := `
        SELECT ` + bankColumns + `
        FROM banks
        WHERE EXISTS (
            SELECT 1 FROM unnest(whitelisted_senders) AS s
            WHERE lower(s) = lower($1)
        )
        ORDER BY name
        LIMIT 1
    `
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("query bank by sender: %w", err)
	}
	banks, err := pgx.CollectRows(rows, scanBank)
	if err != nil {
		return nil, fmt.Errorf("scan bank: %w", err)
	}
	if len(banks) == 0 {
		return nil, nil
	}
	return &banks[0], nil
}

func (r *BankRepository) GetAll(ctx context.Context) ([]model.BankDirectoryEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bankColumns+` FROM banks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query banks: %w", err)
	}
	banks, err := pgx.CollectRows(rows, scanBank)
	if err != nil {
		return nil, fmt.Errorf("scan banks: %w", err)
	}
	return banks, nil
}

func scanBank(row pgx.CollectableRow) (model.BankDirectoryEntry, error) {
	var b model.BankDirectoryEntry
	err := row.Scan(&b.ID, &b.Slug, &b.Name, &b.WhitelistedSenders, &b.BlacklistedSubjects)
	return b, err
}
