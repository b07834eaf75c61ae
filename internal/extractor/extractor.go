// Package extractor contains one parser per bank email layout. Every
// extractor is a pure function over a RawMessage and returns nil when the
// message is not one it understands or a required field does not parse.
package extractor

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/model"
	"fintrack/internal/textutil"
)

// Func extracts a transaction from a bank email. A nil result means
// "not mine"; callers try the next candidate or fail the message.
type Func func(msg model.RawMessage) *model.ExtractedTransactionData

const (
	bankPichincha  = "Banco Pichincha"
	bankProdubanco = "Produbanco"
	bankGuayaquil  = "Banco Guayaquil"
	bankPacifico   = "Banco del Pacífico"
	bankDeuna      = "Deuna"
)

var (
	subjectAmountRe = regexp.MustCompile(`(?i)(?:USD|US\$|\$)\s*([0-9][0-9.,]*[0-9])`)
	debitRe         = regexp.MustCompile(`(?i)d[eé]bito|debit`)
	creditRe        = regexp.MustCompile(`(?i)cr[eé]dito|credit`)
)

// applies is the common precondition: a non-blank body and the marker in
// the subject, ignoring case and accents.
func applies(msg model.RawMessage, marker string) bool {
	if strings.TrimSpace(msg.Body) == "" {
		return false
	}
	return textutil.ContainsFold(msg.Subject, marker)
}

// positiveAmount returns the first candidate that parses to a non-zero
// amount. Banks sometimes print debits with a sign, so the absolute value
// is used.
func positiveAmount(candidates ...string) (decimal.Decimal, bool) {
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		d, ok := textutil.ParseAmount(c)
		if !ok {
			continue
		}
		d = d.Abs().Round(2)
		if d.IsPositive() {
			return d, true
		}
	}
	return decimal.Zero, false
}

func subjectAmount(subject string) string {
	if m := subjectAmountRe.FindStringSubmatch(subject); m != nil {
		return m[1]
	}
	return ""
}

func describe(bank, category string, candidates ...string) string {
	if d := textutil.FirstNonEmpty(candidates...); d != "" {
		return d
	}
	return bank + " - " + category
}

func cardLast4(texts ...string) *string {
	for _, t := range texts {
		if d, ok := textutil.ExtractLast4(t); ok {
			return &d
		}
	}
	return nil
}

// cardTypeOf classifies free text as a debit or credit card mention.
func cardTypeOf(texts ...string) *model.CardType {
	for _, t := range texts {
		switch {
		case debitRe.MatchString(t):
			return model.Ptr(model.CardDebit)
		case creditRe.MatchString(t):
			return model.Ptr(model.CardCredit)
		}
	}
	return nil
}

// commentFrom renders the listed labels that are present in f as
// "label: value" pairs, in the given order. Nil when none is present.
func commentFrom(f textutil.Fields, labels ...string) *string {
	var parts []string
	seen := map[string]bool{}
	for _, l := range labels {
		key := f.Key(l)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, key+": "+f[key])
	}
	if len(parts) == 0 {
		return nil
	}
	return model.Ptr(strings.Join(parts, "; "))
}

func finish(d *model.ExtractedTransactionData) *model.ExtractedTransactionData {
	if d.Validate() != nil {
		return nil
	}
	return d
}

