// Package registry maps a bank and an email subject to the extractor that
// understands it. Rules are evaluated in order and the first match wins.
package registry

import (
	"fmt"
	"strings"

	"fintrack/internal/extractor"
	"fintrack/internal/textutil"
)

const (
	SlugPichincha  = "pichincha"
	SlugProdubanco = "produbanco"
	SlugGuayaquil  = "guayaquil"
	SlugPacifico   = "pacifico"
	SlugDeuna      = "deuna"
)

// Rule ties a bank and a subject marker to an extractor. SubjectMarker is
// matched as a case and accent insensitive substring; terms joined with
// "+" must all appear ("reverso+consumo").
type Rule struct {
	BankSlug      string
	SubjectMarker string
	Name          string
	Extract       extractor.Func
}

type Registry struct {
	rules []Rule
}

// New builds a registry from an ordered rule list. A rule whose marker
// contains the marker of an earlier rule for the same bank can never be
// selected, so such lists are rejected.
func New(rules ...Rule) (*Registry, error) {
	for i, r := range rules {
		if r.Extract == nil {
			return nil, fmt.Errorf("rule %q has no extractor", r.Name)
		}
		for _, prev := range rules[:i] {
			if NormalizeSlug(prev.BankSlug) != NormalizeSlug(r.BankSlug) {
				continue
			}
			if MatchesMarker(r.SubjectMarker, prev.SubjectMarker) {
				return nil, fmt.Errorf("rule %q is shadowed by %q", r.Name, prev.Name)
			}
		}
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &Registry{rules: out}, nil
}

// Default returns the production rule list. Specific rules sit before the
// general rules of the same bank whose marker their subjects also carry:
// "Reverso de Consumo" contains "consumo" and a Produbanco credit note may
// mention "reverso" or "consumo".
func Default() *Registry {
	r, err := New(
		Rule{SlugPichincha, "reverso+consumo", "pichincha.card_reversal", extractor.PichinchaCardReversal},
		Rule{SlugPichincha, "consumo tarjeta", "pichincha.card_consumption", extractor.PichinchaCardConsumption},
		Rule{SlugPichincha, "transferencia", "pichincha.transfer", extractor.PichinchaTransfer},
		Rule{SlugPichincha, "pago de servicio", "pichincha.bill_payment", extractor.PichinchaBillPayment},

		Rule{SlugProdubanco, "nota de credito", "produbanco.credit_note", extractor.ProdubancoCreditNote},
		Rule{SlugProdubanco, "reverso", "produbanco.reversal", extractor.ProdubancoReversal},
		Rule{SlugProdubanco, "consumo", "produbanco.consumption", extractor.ProdubancoConsumption},
		Rule{SlugProdubanco, "transferencia", "produbanco.transfer", extractor.ProdubancoTransfer},

		Rule{SlugGuayaquil, "pago de tarjeta", "guayaquil.card_payment", extractor.GuayaquilCardPayment},
		Rule{SlugGuayaquil, "consumo", "guayaquil.consumption", extractor.GuayaquilConsumption},
		Rule{SlugGuayaquil, "transferencia", "guayaquil.transfer", extractor.GuayaquilTransfer},

		Rule{SlugPacifico, "notificacion de transaccion", "pacifico.notification", extractor.PacificoNotification},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the first rule for bankSlug whose marker is in subject.
func (r *Registry) Get(bankSlug, subject string) (Rule, bool) {
	slug := NormalizeSlug(bankSlug)
	if slug == "" {
		return Rule{}, false
	}
	for _, rule := range r.rules {
		if NormalizeSlug(rule.BankSlug) != slug {
			continue
		}
		if MatchesMarker(subject, rule.SubjectMarker) {
			return rule, true
		}
	}
	return Rule{}, false
}

// MatchesMarker reports whether subject carries every "+"-separated term
// of marker.
func MatchesMarker(subject, marker string) bool {
	for _, term := range strings.Split(marker, "+") {
		if !textutil.ContainsFold(subject, strings.TrimSpace(term)) {
			return false
		}
	}
	return true
}

// Rules returns a copy of the ordered rule list.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Slugs returns the distinct bank slugs in rule order.
func (r *Registry) Slugs() []string {
	var out []string
	seen := map[string]bool{}
	for _, rule := range r.rules {
		s := NormalizeSlug(rule.BankSlug)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// SlugFromBankEmails infers a registered bank slug from email addresses,
// looking at the domain first and then the local part
// ("alertas@produbanco.com" -> "produbanco").
func (r *Registry) SlugFromBankEmails(emails []string) (string, bool) {
	known := map[string]bool{}
	for _, s := range r.Slugs() {
		known[s] = true
	}
	for _, e := range emails {
		local, domain, ok := strings.Cut(textutil.Fold(strings.TrimSpace(e)), "@")
		if !ok {
			domain, local = local, ""
		}
		for _, part := range []string{domain, local} {
			if part == "" {
				continue
			}
			if s := NormalizeSlug(part); known[s] {
				return s, true
			}
		}
	}
	return "", false
}

// SpecialCase is the fallback for senders outside the bank directory.
// Only Deuna receipts qualify.
func (r *Registry) SpecialCase(from, subject string) (Rule, bool) {
	if !textutil.ContainsFold(from, SlugDeuna) || !extractor.IsDeunaSubject(subject) {
		return Rule{}, false
	}
	return Rule{
		BankSlug:      SlugDeuna,
		SubjectMarker: strings.Join(extractor.DeunaSubjectMarkers, "|"),
		Name:          "deuna.payment",
		Extract:       extractor.DeunaPayment,
	}, true
}

var aliases = []struct{ fragment, slug string }{
	{"pichincha", SlugPichincha},
	{"produ", SlugProdubanco},
	{"guayaquil", SlugGuayaquil},
	{"pacific", SlugPacifico},
	{"deuna", SlugDeuna},
}

// NormalizeSlug folds case and accents and maps the known spellings of a
// bank ("Banco Pichincha", "banco-pichincha", "produ") to its slug.
// Unknown names are returned folded with spaces replaced by "-".
func NormalizeSlug(s string) string {
	f := textutil.Clean(textutil.Fold(s))
	if f == "" {
		return ""
	}
	for _, a := range aliases {
		if strings.Contains(f, a.fragment) {
			return a.slug
		}
	}
	return strings.ReplaceAll(f, " ", "-")
}
