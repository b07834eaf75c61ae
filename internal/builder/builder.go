// Package builder turns a bank email into a TransactionInsert: it picks
// the extractor, runs it, resolves the card and applies the bank budget
// policy.
package builder

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"fintrack/internal/model"
	"fintrack/internal/registry"
	"fintrack/internal/textutil"
	"fintrack/pkg/logger"
)

// CardDirectory lists the registered cards of a bank in a stable order.
type CardDirectory interface {
	ListByBank(ctx context.Context, bankID string) ([]model.CardDirectoryEntry, error)
}

type Builder struct {
	registry *registry.Registry
	cards    CardDirectory
	budgets  BudgetPolicy
	log      *zap.Logger
}

func New(reg *registry.Registry, cards CardDirectory, budgets BudgetPolicy, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{registry: reg, cards: cards, budgets: budgets, log: log}
}

// Resolve finds the rule for msg sent by bank: by the bank slug, then by a
// slug inferred from the bank whitelist or the sender, then the special
// sender case.
func (b *Builder) Resolve(msg model.RawMessage, bank model.BankDirectoryEntry) (registry.Rule, bool) {
	if rule, ok := b.registry.Get(bank.Slug, msg.Subject); ok {
		return rule, true
	}
	emails := append(append([]string{}, bank.WhitelistedSenders...), msg.From)
	if slug, ok := b.registry.SlugFromBankEmails(emails); ok {
		if rule, ok := b.registry.Get(slug, msg.Subject); ok {
			return rule, true
		}
	}
	return b.registry.SpecialCase(msg.From, msg.Subject)
}

// Build returns nil, nil when no extractor applies or the extractor
// declines. An error is returned only when the card directory fails.
func (b *Builder) Build(ctx context.Context, msg model.RawMessage, bank model.BankDirectoryEntry, messageID string) (*model.TransactionInsert, error) {
	log := logger.WithTrace(ctx, b.log).With(zap.String("message_id", messageID), zap.String("bank", bank.Slug))

	rule, ok := b.Resolve(msg, bank)
	if !ok {
		log.Info("no extractor for subject", zap.String("subject", msg.Subject))
		return nil, nil
	}

	data := rule.Extract(msg)
	if data == nil {
		log.Info("extractor declined", zap.String("rule", rule.Name))
		return nil, nil
	}

	cardID, err := b.resolveCard(ctx, bank.ID, data)
	if err != nil {
		return nil, err
	}

	log.Debug("transaction built",
		zap.String("rule", rule.Name),
		zap.String("amount", data.Amount.StringFixed(2)),
		zap.Bool("card_matched", cardID != nil),
	)

	return &model.TransactionInsert{
		Type:            data.Type,
		Description:     data.Description,
		Amount:          data.Amount,
		OccurredAt:      textutil.FormatISO(data.OccurredAt),
		IncomeMessageID: messageID,
		BankID:          bank.ID,
		CardID:          cardID,
		BudgetID:        b.budgets.BudgetFor(bank),
		Comment:         data.Comment,
	}, nil
}

var (
	debitCardRe  = regexp.MustCompile(`(?i)d[eé]bito?|debit`)
	creditCardRe = regexp.MustCompile(`(?i)cr[eé]dito?|credit`)
)

func (b *Builder) resolveCard(ctx context.Context, bankID string, data *model.ExtractedTransactionData) (*string, error) {
	if data.CardLast4 == nil && data.PreferCardType == nil {
		return nil, nil
	}
	cards, err := b.cards.ListByBank(ctx, bankID)
	if err != nil {
		return nil, fmt.Errorf("list cards for bank %s: %w", bankID, err)
	}

	if data.CardLast4 != nil {
		if c, ok := MatchLast4(cards, *data.CardLast4); ok {
			return &c.ID, nil
		}
		return nil, nil
	}
	if c, ok := MatchCardType(cards, *data.PreferCardType); ok {
		return &c.ID, nil
	}
	return nil, nil
}

// MatchLast4 returns the first card whose stored digits equal the
// extracted ones or end with them. Four digits are compared on the last
// four; three recovered digits are compared on the last three. With
// several candidates the first in list order wins.
func MatchLast4(cards []model.CardDirectoryEntry, extracted string) (model.CardDirectoryEntry, bool) {
	raw := strings.TrimSpace(extracted)
	if raw == "" {
		return model.CardDirectoryEntry{}, false
	}
	padded := textutil.PadLast4(raw)

	for _, c := range cards {
		if c.Last4 == nil {
			continue
		}
		stored := strings.TrimSpace(*c.Last4)
		if stored == "" {
			continue
		}
		switch {
		case stored == raw, stored == padded:
			return c, true
		case len(raw) >= 4 && strings.HasSuffix(stored, padded):
			return c, true
		case len(raw) == 3 && strings.HasSuffix(stored, raw):
			return c, true
		}
	}
	return model.CardDirectoryEntry{}, false
}

// MatchCardType returns the first card whose type or kind names want.
func MatchCardType(cards []model.CardDirectoryEntry, want model.CardType) (model.CardDirectoryEntry, bool) {
	re := debitCardRe
	if want == model.CardCredit {
		re = creditCardRe
	}
	for _, c := range cards {
		if c.CardType != nil && re.MatchString(*c.CardType) {
			return c, true
		}
		if c.CardKind != nil && re.MatchString(*c.CardKind) {
			return c, true
		}
	}
	return model.CardDirectoryEntry{}, false
}
