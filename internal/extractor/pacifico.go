package extractor

import (
	"regexp"
	"strings"

	"fintrack/internal/model"
	"fintrack/internal/textutil"
)

// Banco del Pacífico sends a single prose paragraph, e.g.
// "se ha realizado un consumo por USD 13.05 en AMAZON MKTPLACE con tu
// tarjeta terminada en 1234 el 12/01/2026 14:30".
var (
	pacificoKindRe     = regexp.MustCompile(`(?i)realizado\s+una?\s+(consumo|reverso|transferencia|retiro|pago)`)
	pacificoAmountRe   = regexp.MustCompile(`(?i)por\s+(?:USD|US\$|\$)\s*([0-9][0-9.,]*[0-9])`)
	pacificoMerchantRe = regexp.MustCompile(`(?i)\s(?:en|a)\s+(.+?)\s+(?:con\s+tu|desde\s+tu|el\s+\d)`)
	pacificoCardRe     = regexp.MustCompile(`(?i)(?:tarjeta|cuenta)\s+(?:de\s+(?:cr[eé]dito|d[eé]bito)\s+)?terminada\s+en\s+([x*0-9]{3,})`)
	pacificoCardKindRe = regexp.MustCompile(`(?i)tarjeta\s+de\s+(cr[eé]dito|d[eé]bito)`)
)

// PacificoNotification handles "Notificación de Transacción" emails.
func PacificoNotification(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "notificacion de transaccion") {
		return nil
	}
	text := strings.ReplaceAll(textutil.HTMLToText(msg.Body), "\n", " ")

	m := pacificoAmountRe.FindStringSubmatchIndex(text)
	if m == nil {
		return nil
	}
	amount, ok := positiveAmount(text[m[2]:m[3]])
	if !ok {
		return nil
	}
	rest := text[m[1]:]

	kind := "consumo"
	if k := pacificoKindRe.FindStringSubmatch(text); k != nil {
		kind = textutil.Fold(k[1])
	}

	out := &model.ExtractedTransactionData{
		Type:       model.TransactionExpense,
		Amount:     amount,
		OccurredAt: textutil.ParseOccurredAt(text, msg.ReceivedAt, textutil.DMY),
	}

	merchant := ""
	if mm := pacificoMerchantRe.FindStringSubmatch(" " + rest); mm != nil {
		merchant = mm[1]
	}

	switch kind {
	case "reverso":
		out.Type = model.TransactionIncome
		out.Description = describe(bankPacifico, "Reverso", merchant)
	case "transferencia":
		out.Description = describe(bankPacifico, "Transferencia", merchant)
		out.PaymentMethod = model.Ptr(model.PaymentTransfer)
	case "retiro":
		out.Description = describe(bankPacifico, "Retiro", merchant)
	default:
		out.Description = describe(bankPacifico, "Consumo", merchant)
	}

	if c := pacificoCardRe.FindStringSubmatch(text); c != nil && kind != "transferencia" {
		out.CardLast4 = cardLast4(c[1])
		out.PaymentMethod = model.Ptr(model.PaymentCard)
	}
	if out.CardLast4 == nil {
		if k := pacificoCardKindRe.FindStringSubmatch(text); k != nil {
			out.PreferCardType = cardTypeOf(k[1])
		}
	}
	return finish(out)
}
