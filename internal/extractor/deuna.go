package extractor

import (
	"regexp"
	"strings"

	"fintrack/internal/model"
	"fintrack/internal/textutil"
)

// Deuna is a wallet, not a directory bank. Its receipts are short prose:
// "Pagaste $4,50 a TIENDA DON PEPE" or "Recibiste $20,00 de Ana Pérez".
var (
	deunaAmountRe = regexp.MustCompile(`\$\s*([0-9][0-9.,]*)`)
	deunaPartyRe  = regexp.MustCompile(`(?i)\$\s*[0-9][0-9.,]*\s+(?:a|de)\s+([^\n.]+)`)
)

// DeunaSubjectMarkers are the subject keywords that identify a Deuna
// payment receipt.
var DeunaSubjectMarkers = []string{"pagaste", "pago", "recibiste"}

// DeunaPayment handles Deuna wallet payment receipts.
func DeunaPayment(msg model.RawMessage) *model.ExtractedTransactionData {
	if strings.TrimSpace(msg.Body) == "" || !IsDeunaSubject(msg.Subject) {
		return nil
	}
	text := textutil.HTMLToText(msg.Body)
	f := textutil.LabelValues(msg.Body)

	var fromText string
	if m := deunaAmountRe.FindStringSubmatch(text); m != nil {
		fromText = m[1]
	}
	amount, ok := positiveAmount(f.Get("monto", "valor", "total"), fromText, subjectAmount(msg.Subject))
	if !ok {
		return nil
	}

	typ := model.TransactionExpense
	category := "Pago"
	if textutil.ContainsFold(msg.Subject, "recibiste") || textutil.ContainsFold(text, "recibiste") {
		typ = model.TransactionIncome
		category = "Cobro"
	}

	var party string
	if m := deunaPartyRe.FindStringSubmatch(text); m != nil {
		party = m[1]
	}

	return finish(&model.ExtractedTransactionData{
		Type:          typ,
		Description:   describe(bankDeuna, category, f.Get("beneficiario", "para", "comercio"), party, f.Get("motivo", "concepto")),
		Amount:        amount,
		OccurredAt:    textutil.ParseOccurredAt(text, msg.ReceivedAt, textutil.DMY),
		PaymentMethod: model.Ptr(model.PaymentTransfer),
		Comment:       commentFrom(f, "numero de transaccion", "comprobante", "motivo"),
	})
}

// IsDeunaSubject reports whether subject carries one of DeunaSubjectMarkers.
func IsDeunaSubject(subject string) bool {
	for _, m := range DeunaSubjectMarkers {
		if textutil.ContainsFold(subject, m) {
			return true
		}
	}
	return false
}
