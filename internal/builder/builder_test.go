package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/model"
	"fintrack/internal/registry"
)

type fakeCards struct {
	byBank map[string][]model.CardDirectoryEntry
	err    error
	calls  int
}

func (f *fakeCards) ListByBank(_ context.Context, bankID string) ([]model.CardDirectoryEntry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byBank[bankID], nil
}

func card(id, last4, cardType, kind string) model.CardDirectoryEntry {
	c := model.CardDirectoryEntry{ID: id}
	if last4 != "" {
		c.Last4 = model.Ptr(last4)
	}
	if cardType != "" {
		c.CardType = model.Ptr(cardType)
	}
	if kind != "" {
		c.CardKind = model.Ptr(kind)
	}
	return c
}

var (
	produbanco = model.BankDirectoryEntry{ID: "bank-produ", Slug: "produbanco", Name: "Produbanco", WhitelistedSenders: []string{"notificaciones@produbanco.com"}}
	guayaquil  = model.BankDirectoryEntry{ID: "bank-gye", Slug: "guayaquil", Name: "Banco Guayaquil", WhitelistedSenders: []string{"notificaciones@bancoguayaquil.com"}}
	pichincha  = model.BankDirectoryEntry{ID: "bank-pich", Slug: "pichincha", Name: "Banco Pichincha", WhitelistedSenders: []string{"bancavirtual@pichincha.com"}}
	received   = time.Date(2026, time.March, 10, 19, 20, 5, 0, time.UTC)
)

func newBuilder(cards *fakeCards) *Builder {
	return New(registry.Default(), cards, DefaultBudgetPolicy(), nil)
}

func TestBuild_ProdubancoGetsDefaultBudget(t *testing.T) {
	cards := &fakeCards{byBank: map[string][]model.CardDirectoryEntry{
		"bank-produ": {card("card-1", "4439", "credit", "")},
	}}
	msg := model.RawMessage{
		From:       "notificaciones@produbanco.com",
		Subject:    "Consumo con tu tarjeta Produbanco",
		Body:       "Comercio: SUPERMAXI\nMonto: $ 35,93\nTarjeta: 554574XXXXXXX439\nFecha: 30/01/2026 10:03",
		ReceivedAt: received,
	}

	got, err := newBuilder(cards).Build(context.Background(), msg, produbanco, "AAMkAG-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NotNil(t, got.BudgetID)
	assert.Equal(t, ProdubancoBudgetID, *got.BudgetID)
	assert.Equal(t, "AAMkAG-1", got.IncomeMessageID)
	assert.Equal(t, "bank-produ", got.BankID)
	assert.Equal(t, "2026-01-30T15:03:00.000Z", got.OccurredAt)
	assert.Equal(t, "35.93", got.Amount.StringFixed(2))
	require.NotNil(t, got.CardID)
	assert.Equal(t, "card-1", *got.CardID)
	assert.Nil(t, got.CategoryID)
}

func TestBuild_GuayaquilNeverGetsProdubancoBudget(t *testing.T) {
	cards := &fakeCards{byBank: map[string][]model.CardDirectoryEntry{
		"bank-gye": {card("gye-credit", "", "Crédito", ""), card("gye-debit", "", "", "Débito")},
	}}
	msg := model.RawMessage{
		From:       "notificaciones@bancoguayaquil.com",
		Subject:    "Consumo realizado",
		Body:       "<h4>Lugar de consumo</h4><p>KFC</p><h4>Valor</h4><p>USD 8,50</p>",
		ReceivedAt: received,
	}

	got, err := newBuilder(cards).Build(context.Background(), msg, guayaquil, "msg-2")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Nil(t, got.BudgetID)
	require.NotNil(t, got.CardID, "debit preferred when no digits")
	assert.Equal(t, "gye-debit", *got.CardID)
}

func TestBuild_NoExtractor(t *testing.T) {
	cards := &fakeCards{}
	msg := model.RawMessage{From: "bancavirtual@pichincha.com", Subject: "Actualiza tus datos", Body: "hola"}

	got, err := newBuilder(cards).Build(context.Background(), msg, pichincha, "msg-3")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, cards.calls)
}

func TestBuild_ExtractorDeclines(t *testing.T) {
	msg := model.RawMessage{From: "bancavirtual@pichincha.com", Subject: "Consumo Tarjeta de Débito", Body: "Valor: USD 0,00"}

	got, err := newBuilder(&fakeCards{}).Build(context.Background(), msg, pichincha, "msg-4")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBuild_FallsBackToSlugFromEmails(t *testing.T) {
	bank := model.BankDirectoryEntry{ID: "bank-x", Slug: "bp", Name: "BP", WhitelistedSenders: []string{"bancavirtual@pichincha.com"}}
	msg := model.RawMessage{
		From:       "bancavirtual@pichincha.com",
		Subject:    "Pago de servicio",
		Body:       "Total: 18,75\nServicio: CNEL EP",
		ReceivedAt: received,
	}

	got, err := newBuilder(&fakeCards{}).Build(context.Background(), msg, bank, "msg-5")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CNEL EP", got.Description)
	assert.Equal(t, "bank-x", got.BankID)
}

func TestBuild_DeunaSpecialCase(t *testing.T) {
	bank := model.BankDirectoryEntry{ID: "bank-deuna", Slug: "wallet", Name: "Wallet", WhitelistedSenders: []string{"no-reply@deuna.ec"}}
	msg := model.RawMessage{
		From:       "no-reply@deuna.ec",
		Subject:    "Pagaste con Deuna",
		Body:       "Pagaste $4,50 a TIENDA DON PEPE",
		ReceivedAt: received,
	}

	got, err := newBuilder(&fakeCards{}).Build(context.Background(), msg, bank, "msg-6")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "TIENDA DON PEPE", got.Description)
	assert.Nil(t, got.CardID)
}

func TestBuild_CardDirectoryError(t *testing.T) {
	cards := &fakeCards{err: errors.New("connection refused")}
	msg := model.RawMessage{
		Subject:    "Consumo con tu tarjeta",
		Body:       "Monto: 5,00\nTarjeta: XXXX1111",
		ReceivedAt: received,
	}

	got, err := newBuilder(cards).Build(context.Background(), msg, produbanco, "msg-7")
	require.Error(t, err)
	assert.Nil(t, got)
}

func TestMatchLast4(t *testing.T) {
	cards := []model.CardDirectoryEntry{
		card("no-digits", "", "debit", ""),
		card("a", "3733", "credit", ""),
		card("b", "XXXX1234", "debit", ""),
		card("c", "0439", "credit", ""),
	}

	tests := []struct {
		extracted string
		want      string
		ok        bool
	}{
		{"3733", "a", true},
		{"1234", "b", true},
		{"439", "c", true},
		{"9999", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := MatchLast4(cards, tt.extracted)
		assert.Equal(t, tt.ok, ok, tt.extracted)
		assert.Equal(t, tt.want, got.ID, tt.extracted)
	}
}

// Two cards ending in the same three digits both match a three-digit
// capture. The first one listed wins.
func TestMatchLast4_ThreeDigitTieTakesFirst(t *testing.T) {
	cards := []model.CardDirectoryEntry{
		card("first", "1439", "credit", ""),
		card("second", "2439", "credit", ""),
	}

	got, ok := MatchLast4(cards, "439")
	require.True(t, ok)
	assert.Equal(t, "first", got.ID)

	got, ok = MatchLast4([]model.CardDirectoryEntry{cards[1], cards[0]}, "439")
	require.True(t, ok)
	assert.Equal(t, "second", got.ID)

	got, ok = MatchLast4(cards, "2439")
	require.True(t, ok)
	assert.Equal(t, "second", got.ID, "four digits are not suffix-matched on three")
}

func TestMatchCardType(t *testing.T) {
	cards := []model.CardDirectoryEntry{
		card("visa", "", "Tarjeta de Crédito", ""),
		card("maestro", "", "", "debito"),
	}

	got, ok := MatchCardType(cards, model.CardDebit)
	require.True(t, ok)
	assert.Equal(t, "maestro", got.ID)

	got, ok = MatchCardType(cards, model.CardCredit)
	require.True(t, ok)
	assert.Equal(t, "visa", got.ID)

	_, ok = MatchCardType(cards[:1], model.CardDebit)
	assert.False(t, ok)
}

func TestBudgetFor(t *testing.T) {
	p := DefaultBudgetPolicy()

	got := p.BudgetFor(model.BankDirectoryEntry{Slug: "produbanco"})
	require.NotNil(t, got)
	assert.Equal(t, ProdubancoBudgetID, *got)

	got = p.BudgetFor(model.BankDirectoryEntry{Slug: "produ-ec", Name: "Produbanco S.A."})
	require.NotNil(t, got)

	assert.Nil(t, p.BudgetFor(guayaquil))
	assert.Nil(t, p.BudgetFor(pichincha))
	assert.Nil(t, BudgetPolicy{}.BudgetFor(produbanco))
}
