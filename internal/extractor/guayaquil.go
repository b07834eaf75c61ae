package extractor

import (
	"fintrack/internal/model"
	"fintrack/internal/textutil"
)

// Banco Guayaquil lays fields out as <h4>label</h4><p>value</p> blocks.

// GuayaquilConsumption handles "Consumo" notifications. They often name the
// card type without digits, in which case a debit card is preferred unless
// the email says credit.
func GuayaquilConsumption(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "consumo") {
		return nil
	}
	f := textutil.LabelValues(msg.Body)

	amount, ok := positiveAmount(f.Get("valor", "monto"), subjectAmount(msg.Subject))
	if !ok {
		return nil
	}

	out := &model.ExtractedTransactionData{
		Type:          model.TransactionExpense,
		Description:   describe(bankGuayaquil, "Consumo", f.Get("lugar de consumo", "establecimiento", "comercio"), f.Get("concepto", "descripcion")),
		Amount:        amount,
		OccurredAt:    textutil.ParseOccurredAt(f.Get("fecha", "fecha y hora"), msg.ReceivedAt, textutil.DMY),
		PaymentMethod: model.Ptr(model.PaymentCard),
		CardLast4:     cardLast4(f.Get("tarjeta", "numero de tarjeta")),
	}
	if out.CardLast4 == nil {
		out.PreferCardType = cardTypeOf(f.Get("tipo de tarjeta"), f.Get("tarjeta"), msg.Subject)
		if out.PreferCardType == nil {
			out.PreferCardType = model.Ptr(model.CardDebit)
		}
	}
	return finish(out)
}

// GuayaquilTransfer handles transfer receipts.
func GuayaquilTransfer(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "transferencia") {
		return nil
	}
	f := textutil.LabelValues(msg.Body)

	amount, ok := positiveAmount(f.Get("valor", "monto"), subjectAmount(msg.Subject))
	if !ok {
		return nil
	}

	typ := model.TransactionExpense
	counterpart := f.Get("beneficiario", "para")
	if textutil.ContainsFold(msg.Subject, "recibi") {
		typ = model.TransactionIncome
		counterpart = f.Get("ordenante", "remitente", "enviado por")
	}

	return finish(&model.ExtractedTransactionData{
		Type:          typ,
		Description:   describe(bankGuayaquil, "Transferencia", counterpart, f.Get("concepto", "descripcion")),
		Amount:        amount,
		OccurredAt:    textutil.ParseOccurredAt(f.Get("fecha", "fecha y hora"), msg.ReceivedAt, textutil.DMY),
		PaymentMethod: model.Ptr(model.PaymentTransfer),
		Comment:       commentFrom(f, "cuenta destino", "cuenta origen", "banco destino", "referencia"),
	})
}

// GuayaquilCardPayment handles "Pago de tarjeta" receipts: money leaving
// the account to pay a credit card, which is the card matched.
func GuayaquilCardPayment(msg model.RawMessage) *model.ExtractedTransactionData {
	if !applies(msg, "pago de tarjeta") {
		return nil
	}
	f := textutil.LabelValues(msg.Body)

	amount, ok := positiveAmount(f.Get("valor pagado", "valor", "monto"), subjectAmount(msg.Subject))
	if !ok {
		return nil
	}

	out := &model.ExtractedTransactionData{
		Type:          model.TransactionExpense,
		Description:   describe(bankGuayaquil, "Pago de tarjeta", f.Get("concepto", "descripcion")),
		Amount:        amount,
		OccurredAt:    textutil.ParseOccurredAt(f.Get("fecha", "fecha y hora"), msg.ReceivedAt, textutil.DMY),
		PaymentMethod: model.Ptr(model.PaymentTransfer),
		CardLast4:     cardLast4(f.Get("tarjeta", "tarjeta pagada")),
		Comment:       commentFrom(f, "cuenta debitada", "referencia"),
	}
	if out.CardLast4 == nil {
		out.PreferCardType = model.Ptr(model.CardCredit)
	}
	return finish(out)
}
