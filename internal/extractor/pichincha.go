package extractor

import (
	"fintrack/internal/model"
	"fintrack/internal/textutil"
)

// Banco Pichincha notifications are "Label: value" lines, sometimes inside
// a single-column HTML layout.

// PichinchaCardReversal handles "Reverso de Consumo Tarjeta ..." emails.
// Reversal emails are stamped month-first, unlike consumption emails.
func PichinchaCardReversal(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "reverso") || !textutil.ContainsFold(msg.Subject, "consumo") {
		return nil
	}
	return pichinchaCard(msg, model.TransactionIncome, textutil.MDY, "Reverso de consumo")
}

// PichinchaCardConsumption handles "Consumo Tarjeta de Crédito/Débito ..."
// emails.
func PichinchaCardConsumption(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "consumo tarjeta") {
		return nil
	}
	return pichinchaCard(msg, model.TransactionExpense, textutil.DMY, "Consumo con tarjeta")
}

func pichinchaCard(msg model.RawMessage, typ model.TransactionType, order textutil.DateOrder, category string) *model.ExtractedTransactionData {
	f := textutil.LabelValues(msg.Body)

	amount, ok := positiveAmount(f.Get("valor", "monto"), subjectAmount(msg.Subject))
	if !ok {
		return nil
	}

	cardKey := f.Key("tarjeta")
	out := &model.ExtractedTransactionData{
		Type:          typ,
		Description:   describe(bankPichincha, category, f.Get("establecimiento", "comercio"), f.Get("concepto")),
		Amount:        amount,
		OccurredAt:    textutil.ParseOccurredAt(f.Get("fecha y hora", "fecha"), msg.ReceivedAt, order),
		PaymentMethod: model.Ptr(model.PaymentCard),
		CardLast4:     cardLast4(f.Get("tarjeta")),
	}
	if out.CardLast4 == nil {
		out.PreferCardType = cardTypeOf(cardKey, msg.Subject)
	}
	return finish(out)
}

// PichinchaTransfer handles sent and received transfer notifications.
func PichinchaTransfer(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "transferencia") {
		return nil
	}
	f := textutil.LabelValues(msg.Body)

	amount, ok := positiveAmount(f.Get("monto", "valor"), subjectAmount(msg.Subject))
	if !ok {
		return nil
	}

	typ := model.TransactionExpense
	counterpart := f.Get("beneficiario", "nombre del beneficiario", "para")
	if textutil.ContainsFold(msg.Subject, "recibida") {
		typ = model.TransactionIncome
		counterpart = f.Get("ordenante", "remitente")
	}

	return finish(&model.ExtractedTransactionData{
		Type:          typ,
		Description:   describe(bankPichincha, "Transferencia", counterpart, f.Get("concepto", "descripcion", "motivo")),
		Amount:        amount,
		OccurredAt:    textutil.ParseOccurredAt(f.Get("fecha", "fecha y hora"), msg.ReceivedAt, textutil.DMY),
		PaymentMethod: model.Ptr(model.PaymentTransfer),
		Comment:       commentFrom(f, "cuenta destino", "cuenta origen", "banco destino", "numero de comprobante", "comprobante"),
	})
}

// PichinchaBillPayment handles "Pago de servicio" receipts.
func PichinchaBillPayment(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "pago de servicio") {
		return nil
	}
	f := textutil.LabelValues(msg.Body)

	amount, ok := positiveAmount(f.Get("total", "valor", "monto"), subjectAmount(msg.Subject))
	if !ok {
		return nil
	}

	return finish(&model.ExtractedTransactionData{
		Type:          model.TransactionExpense,
		Description:   describe(bankPichincha, "Pago de servicios", f.Get("servicio", "empresa"), f.Get("concepto")),
		Amount:        amount,
		OccurredAt:    textutil.ParseOccurredAt(f.Get("fecha", "fecha y hora"), msg.ReceivedAt, textutil.DMY),
		PaymentMethod: model.Ptr(model.PaymentTransfer),
		Comment:       commentFrom(f, "contrato", "referencia", "cuenta debitada", "comprobante"),
	})
}
