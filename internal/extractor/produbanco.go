package extractor

import (
	"fintrack/internal/model"
	"fintrack/internal/textutil"
)

// Produbanco sends HTML tables with one label cell followed by its value
// cell. Cards are masked as 554574XXXXXXX439 (three trailing digits).

// ProdubancoReversal handles "Reverso de Consumo" emails. They carry an
// MM/DD/YYYY timestamp while the consumption emails use DD/MM/YYYY.
func ProdubancoReversal(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "reverso") {
		return nil
	}
	return produbancoCard(msg, model.TransactionIncome, textutil.MDY, "Reverso")
}

// ProdubancoConsumption handles "Consumo con tu tarjeta" emails.
func ProdubancoConsumption(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "consumo") {
		return nil
	}
	return produbancoCard(msg, model.TransactionExpense, textutil.DMY, "Consumo")
}

func produbancoCard(msg model.RawMessage, typ model.TransactionType, order textutil.DateOrder, category string) *model.ExtractedTransactionData {
	f := textutil.LabelValues(msg.Body)

	amount, ok := positiveAmount(f.Get("monto", "valor"), subjectAmount(msg.Subject))
	if !ok {
		return nil
	}

	out := &model.ExtractedTransactionData{
		Type:          typ,
		Description:   describe(bankProdubanco, category, f.Get("comercio", "establecimiento"), f.Get("detalle", "concepto")),
		Amount:        amount,
		OccurredAt:    textutil.ParseOccurredAt(f.Get("fecha", "fecha y hora"), msg.ReceivedAt, order),
		PaymentMethod: model.Ptr(model.PaymentCard),
		CardLast4:     cardLast4(f.Get("tarjeta", "numero de tarjeta")),
	}
	if out.CardLast4 == nil {
		out.PreferCardType = cardTypeOf(f.Get("tipo de tarjeta"), f.Key("tarjeta"), msg.Subject)
	}
	return finish(out)
}

// ProdubancoTransfer handles "Transferencia enviada/recibida" emails.
func ProdubancoTransfer(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "transferencia") {
		return nil
	}
	f := textutil.LabelValues(msg.Body)

	amount, ok := positiveAmount(f.Get("monto", "valor"), subjectAmount(msg.Subject))
	if !ok {
		return nil
	}

	typ := model.TransactionExpense
	counterpart := f.Get("beneficiario", "nombre beneficiario")
	if textutil.ContainsFold(msg.Subject, "recibida") {
		typ = model.TransactionIncome
		counterpart = f.Get("ordenante", "remitente")
	}

	return finish(&model.ExtractedTransactionData{
		Type:          typ,
		Description:   describe(bankProdubanco, "Transferencia", counterpart, f.Get("concepto", "motivo", "detalle")),
		Amount:        amount,
		OccurredAt:    textutil.ParseOccurredAt(f.Get("fecha", "fecha y hora"), msg.ReceivedAt, textutil.DMY),
		PaymentMethod: model.Ptr(model.PaymentTransfer),
		Comment:       commentFrom(f, "cuenta debitada", "cuenta acreditada", "institucion financiera", "referencia"),
	})
}

// ProdubancoCreditNote handles "Nota de Crédito" emails, which are refunds
// or credits to the account.
func ProdubancoCreditNote(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "nota de credito") {
		return nil
	}
	f := textutil.LabelValues(msg.Body)

	amount, ok := positiveAmount(f.Get("valor", "monto"), subjectAmount(msg.Subject))
	if !ok {
		return nil
	}

	return finish(&model.ExtractedTransactionData{
		Type:        model.TransactionIncome,
		Description: describe(bankProdubanco, "Nota de crédito", f.Get("comercio"), f.Get("concepto", "detalle", "motivo")),
		Amount:      amount,
		OccurredAt:  textutil.ParseOccurredAt(f.Get("fecha", "fecha y hora"), msg.ReceivedAt, textutil.DMY),
		Comment:     commentFrom(f, "cuenta", "referencia", "oficina"),
	})
}
