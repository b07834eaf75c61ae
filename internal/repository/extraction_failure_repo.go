package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/model"
)

// ExtractionFailureRepository keeps rejected bank emails for review.
type ExtractionFailureRepository struct {
	db *pgxpool.Pool
}

func NewExtractionFailureRepository(db *pgxpool.Pool) *ExtractionFailureRepository {
	return &ExtractionFailureRepository{db: db}
}

func (r *ExtractionFailureRepository) Record(ctx context.Context, f model.ExtractionFailure) error {
	query := `
        INSERT INTO extraction_failures (message_id, reason, detail, bank_slug, sender, subject, created_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NOW())
    `
	_, err := r.db.Exec(ctx, query, f.MessageID, f.Reason, f.Detail, f.BankSlug, f.Sender, f.Subject)
	if err != nil {
		return fmt.Errorf("insert extraction failure: %w", err)
	}
	return nil
}

// ListRecent returns the newest failures first.
func (r *ExtractionFailureRepository) ListRecent(ctx context.Context, limit int) ([]model.ExtractionFailure, error) {
	query := `
        SELECT id, message_id, reason, detail, COALESCE(bank_slug, ''), sender, subject, created_at
        FROM extraction_failures
        ORDER BY created_at DESC, id DESC
        LIMIT $1
    `
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query extraction failures: %w", err)
	}
	failures, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ExtractionFailure, error) {
		var f model.ExtractionFailure
		err := row.Scan(&f.ID, &f.MessageID, &f.Reason, &f.Detail, &f.BankSlug, &f.Sender, &f.Subject, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan extraction failures: %w", err)
	}
	return failures, nil
}
