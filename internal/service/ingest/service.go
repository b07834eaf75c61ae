// Package ingest stores the transaction of a bank email exactly once per
// mail message id.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fintrack/internal/model"
	"fintrack/internal/service/extraction"
	"fintrack/internal/textutil"
	"fintrack/pkg/logger"
	"fintrack/pkg/metrics"
)

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
)

type Result struct {
	Outcome     Outcome
	Transaction *model.Transaction
	// Reason is set when Outcome is OutcomeSkipped.
	Reason extraction.Reason
}

// TransactionStore persists transactions keyed by income_message_id.
// Create returns model.ErrDuplicateMessage when the key already exists.
type TransactionStore interface {
	GetByIncomeMessageID(ctx context.Context, messageID string) (*model.Transaction, error)
	Create(ctx context.Context, tx model.TransactionInsert) (*model.Transaction, error)
}

type FailureRecorder interface {
	Record(ctx context.Context, f model.ExtractionFailure) error
}

// AIExtractor reads a transaction out of free email text. It is only
// consulted when no bank extractor applies.
type AIExtractor interface {
	GetTransactionFromEmail(ctx context.Context, bodyText string) (*model.AIExtraction, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, messageID, accessToken string) (*extraction.Evaluation, error)
}

type BudgetPolicy interface {
	BudgetFor(bank model.BankDirectoryEntry) *string
}

type Service struct {
	extractor Evaluator
	store     TransactionStore
	failures  FailureRecorder
	ai        AIExtractor
	budgets   BudgetPolicy
	log       *zap.Logger
}

type Option func(*Service)

// WithAI enables the AI fallback for messages no bank extractor handles.
func WithAI(ai AIExtractor) Option {
	return func(s *Service) { s.ai = ai }
}

func WithFailureRecorder(r FailureRecorder) Option {
	return func(s *Service) { s.failures = r }
}

func NewService(extractor Evaluator, store TransactionStore, budgets BudgetPolicy, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{extractor: extractor, store: store, budgets: budgets, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ingest extracts and stores the transaction of messageID. A message that
// already produced a transaction is a successful no-op. Extraction
// failures are recorded and reported as OutcomeSkipped without error.
func (s *Service) Ingest(ctx context.Context, messageID, accessToken string) (*Result, error) {
	log := logger.WithTrace(ctx, s.log).With(zap.String("message_id", messageID))

	existing, err := s.store.GetByIncomeMessageID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("check existing transaction: %w", err)
	}
	if existing != nil {
		log.Info("message already ingested", zap.String("transaction_id", existing.ID))
		return s.done(&Result{Outcome: OutcomeDuplicate, Transaction: existing}), nil
	}

	ev, err := s.extractor.Evaluate(ctx, messageID, accessToken)
	if ev == nil {
		ev = &extraction.Evaluation{}
	}
	insert := ev.Insert
	if err != nil {
		var f *extraction.Failure
		if !errors.As(err, &f) {
			metrics.IncrementIngest("error")
			return nil, err
		}
		insert = s.fallback(ctx, log, ev, f)
		if insert == nil {
			s.record(ctx, log, ev, f)
			return s.done(&Result{Outcome: OutcomeSkipped, Reason: f.Reason}), nil
		}
	}

	if insert == nil {
		return nil, fmt.Errorf("extraction of %s returned no transaction", messageID)
	}

	created, err := s.store.Create(ctx, *insert)
	if errors.Is(err, model.ErrDuplicateMessage) {
		// lost a race with a concurrent delivery of the same message
		existing, getErr := s.store.GetByIncomeMessageID(ctx, messageID)
		if getErr != nil {
			return nil, fmt.Errorf("load concurrent transaction: %w", getErr)
		}
		log.Info("message ingested concurrently")
		return s.done(&Result{Outcome: OutcomeDuplicate, Transaction: existing}), nil
	}
	if err != nil {
		metrics.IncrementIngest("error")
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	log.Info("transaction created",
		zap.String("transaction_id", created.ID),
		zap.String("bank_id", created.BankID),
		zap.String("amount", created.Amount.StringFixed(2)),
	)
	return s.done(&Result{Outcome: OutcomeCreated, Transaction: created}), nil
}

func (s *Service) done(r *Result) *Result {
	metrics.IncrementIngest(string(r.Outcome))
	return r
}

// fallback asks the AI extractor for messages from a known bank that no
// rule could read. It returns nil when the fallback does not apply or the
// model produced nothing usable.
func (s *Service) fallback(ctx context.Context, log *zap.Logger, ev *extraction.Evaluation, f *extraction.Failure) *model.TransactionInsert {
	if s.ai == nil || f.Reason != extraction.ReasonNoExtractor || ev.Message == nil || ev.Bank == nil {
		return nil
	}

	start := time.Now()
	got, err := s.ai.GetTransactionFromEmail(ctx, textutil.HTMLToText(ev.Message.Body))
	if err != nil {
		metrics.RecordAIExtractLatency("error", time.Since(start))
		log.Warn("ai extraction failed", zap.Error(err))
		return nil
	}
	metrics.RecordAIExtractLatency("ok", time.Since(start))
	if got == nil {
		return nil
	}

	data := &model.ExtractedTransactionData{
		Type:        got.Type,
		Description: textutil.Clean(got.Description),
		Amount:      got.Amount.Abs().Round(2),
		OccurredAt:  textutil.ParseOccurredAt(got.OccurredAt, ev.Message.ReceivedAt, textutil.DMY),
	}
	if err := data.Validate(); err != nil {
		log.Warn("ai extraction unusable", zap.Error(err))
		return nil
	}

	log.Info("transaction extracted by ai", zap.String("bank", ev.Bank.Slug))
	var budget *string
	if s.budgets != nil {
		budget = s.budgets.BudgetFor(*ev.Bank)
	}
	return &model.TransactionInsert{
		Type:            data.Type,
		Description:     data.Description,
		Amount:          data.Amount,
		OccurredAt:      textutil.FormatISO(data.OccurredAt),
		IncomeMessageID: f.MessageID,
		BankID:          ev.Bank.ID,
		BudgetID:        budget,
		Comment:         model.Ptr("AI"),
	}
}

func (s *Service) record(ctx context.Context, log *zap.Logger, ev *extraction.Evaluation, f *extraction.Failure) {
	if s.failures == nil {
		return
	}
	rec := model.ExtractionFailure{
		MessageID: f.MessageID,
		Reason:    string(f.Reason),
		Detail:    f.Error(),
		BankSlug:  f.Bank,
	}
	if ev.Message != nil {
		rec.Sender = ev.Message.From
		rec.Subject = ev.Message.Subject
	}
	if err := s.failures.Record(ctx, rec); err != nil {
		log.Warn("record extraction failure", zap.Error(err))
	}
}
