// Package extraction validates a fetched bank email and builds the
// transaction it describes. It never persists anything.
package extraction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fintrack/internal/model"
	"fintrack/pkg/logger"
	"fintrack/pkg/metrics"
)

// MailClient fetches a message from the mail provider. A nil message with
// a nil error means the message does not exist.
type MailClient interface {
	GetMessageByID(ctx context.Context, messageID, accessToken string) (*model.RawMessage, error)
}

// BankDirectory finds the bank that whitelists a sender address, or nil.
type BankDirectory interface {
	GetByEmail(ctx context.Context, email string) (*model.BankDirectoryEntry, error)
}

type TransactionBuilder interface {
	Build(ctx context.Context, msg model.RawMessage, bank model.BankDirectoryEntry, messageID string) (*model.TransactionInsert, error)
}

type Service struct {
	mail    MailClient
	banks   BankDirectory
	builder TransactionBuilder
	log     *zap.Logger
}

func NewService(mail MailClient, banks BankDirectory, builder TransactionBuilder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{mail: mail, banks: banks, builder: builder, log: log}
}

// Evaluation is everything learned while extracting one message. Message
// and Bank are filled as far as the pipeline got, also on failure.
type Evaluation struct {
	Message *model.RawMessage
	Bank    *model.BankDirectoryEntry
	Insert  *model.TransactionInsert
}

// ExtractTransactionData fetches messageID and builds its transaction.
// Expected rejections are returned as *Failure.
func (s *Service) ExtractTransactionData(ctx context.Context, messageID, accessToken string) (*model.TransactionInsert, error) {
	ev, err := s.Evaluate(ctx, messageID, accessToken)
	if err != nil {
		return nil, err
	}
	return ev.Insert, nil
}

// Evaluate runs the validation pipeline: fetch, sender whitelist, subject
// blacklist, body presence, then the builder.
func (s *Service) Evaluate(ctx context.Context, messageID, accessToken string) (*Evaluation, error) {
	log := logger.WithTrace(ctx, s.log).With(zap.String("message_id", messageID))
	ev := &Evaluation{}

	msg, err := s.mail.GetMessageByID(ctx, messageID, accessToken)
	if err != nil {
		return ev, fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	if msg == nil {
		return ev, s.reject(log, fail(ReasonMessageNotFound, messageID, ""))
	}
	ev.Message = msg

	bank, err := s.banks.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(msg.From)))
	if err != nil {
		return ev, fmt.Errorf("look up bank for %s: %w", msg.From, err)
	}
	if bank == nil {
		return ev, s.reject(log.With(zap.String("from", msg.From)), fail(ReasonNotWhitelisted, messageID, ""))
	}
	ev.Bank = bank

	if bank.IsSubjectBlacklisted(msg.Subject) {
		return ev, s.reject(log.With(zap.String("subject", msg.Subject)), fail(ReasonBlacklisted, messageID, bank.Slug))
	}
	if strings.TrimSpace(msg.Body) == "" {
		return ev, s.reject(log, fail(ReasonEmptyBody, messageID, bank.Slug))
	}

	insert, err := s.builder.Build(ctx, *msg, *bank, messageID)
	if err != nil {
		return ev, err
	}
	if insert == nil {
		return ev, s.reject(log.With(zap.String("subject", msg.Subject)), fail(ReasonNoExtractor, messageID, bank.Slug))
	}
	ev.Insert = insert

	metrics.IncrementExtraction(bank.Slug, "ok")
	log.Info("transaction extracted",
		zap.String("bank", bank.Slug),
		zap.String("type", string(insert.Type)),
		zap.String("amount", insert.Amount.StringFixed(2)),
	)
	return ev, nil
}

func (s *Service) reject(log *zap.Logger, f *Failure) error {
	metrics.IncrementExtraction(f.Bank, string(f.Reason))
	log.Info("extraction rejected", zap.String("reason", string(f.Reason)), zap.String("bank", f.Bank))
	return f
}
