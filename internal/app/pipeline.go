// Package app wires the extraction pipeline shared by the api and worker
// binaries.
package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fintrack/internal/aiextract"
	"fintrack/internal/builder"
	"fintrack/internal/config"
	"fintrack/internal/mailclient"
	"fintrack/internal/registry"
	"fintrack/internal/repository"
	"fintrack/internal/service/extraction"
	"fintrack/internal/service/ingest"
	"fintrack/pkg/outbox"
)

type Pipeline struct {
	Extraction *extraction.Service
	Ingest     *ingest.Service
	Failures   *repository.ExtractionFailureRepository
}

func NewPipeline(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (*Pipeline, error) {
	banks := repository.NewBankRepository(pool)
	cards := repository.NewCardRepository(pool)
	transactions := repository.NewTransactionRepository(pool, outbox.NewRepository(pool))
	failures := repository.NewExtractionFailureRepository(pool)

	budgets := cfg.Budget.Policy()
	b := builder.New(registry.Default(), cards, budgets, logger)
	mail := mailclient.New(cfg.Mail.BaseURL, cfg.Mail.Timeout, logger)
	extractor := extraction.NewService(mail, banks, b, logger)

	opts := []ingest.Option{ingest.WithFailureRecorder(failures)}
	if cfg.AI.Enabled {
		ai, err := aiextract.NewGeminiExtractor(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ingest.WithAI(ai))
		logger.Info("AI fallback enabled", zap.String("model", cfg.AI.Model))
	}

	return &Pipeline{
		Extraction: extractor,
		Ingest:     ingest.NewService(extractor, transactions, budgets, logger, opts...),
		Failures:   failures,
	}, nil
}
