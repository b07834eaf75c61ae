package builder

import (
	"fintrack/internal/model"
	"fintrack/internal/registry"
)

// ProdubancoBudgetID is the budget every Produbanco transaction is filed
// under unless configured otherwise.
const ProdubancoBudgetID = "0dc7502d-9d2a-4be1-a83d-6afb53545cb7"

// BudgetRule files every transaction of one bank under a budget.
type BudgetRule struct {
	Bank     string `yaml:"bank"`
	BudgetID string `yaml:"budget_id"`
}

// BudgetPolicy holds the bank default budgets. Banks without a rule get no
// budget.
type BudgetPolicy struct {
	Rules []BudgetRule
}

func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{Rules: []BudgetRule{{Bank: registry.SlugProdubanco, BudgetID: ProdubancoBudgetID}}}
}

// BudgetFor matches the bank by slug or display name.
func (p BudgetPolicy) BudgetFor(bank model.BankDirectoryEntry) *string {
	slug, name := registry.NormalizeSlug(bank.Slug), registry.NormalizeSlug(bank.Name)
	for _, r := range p.Rules {
		want := registry.NormalizeSlug(r.Bank)
		if want == "" || r.BudgetID == "" {
			continue
		}
		if want == slug || want == name {
			id := r.BudgetID
			return &id
		}
	}
	return nil
}
