package extraction

import "errors"

// Reason is the closed set of ways an email can fail extraction.
type Reason string

const (
	ReasonMessageNotFound Reason = "message_not_found"
	ReasonNotWhitelisted  Reason = "not_whitelisted"
	ReasonBlacklisted     Reason = "blacklisted"
	ReasonEmptyBody       Reason = "empty_body"
	ReasonNoExtractor     Reason = "no_extractor"
)

var messages = map[Reason]string{
	ReasonMessageNotFound: "Message not found",
	ReasonNotWhitelisted:  "Email not in bank whitelist",
	ReasonBlacklisted:     "Subject blacklisted for this bank",
	ReasonEmptyBody:       "No message body",
	ReasonNoExtractor:     "No extractor for this bank and subject",
}

// Message is the human readable text of r.
func (r Reason) Message() string {
	if m, ok := messages[r]; ok {
		return m
	}
	return string(r)
}

// Failure is an expected, non-retryable extraction outcome. Infrastructure
// errors are returned as plain errors instead.
type Failure struct {
	Reason    Reason
	MessageID string
	// Bank is set once the sender matched a bank.
	Bank string
}

func (f *Failure) Error() string {
	return f.Reason.Message()
}

func fail(reason Reason, messageID, bank string) *Failure {
	return &Failure{Reason: reason, MessageID: messageID, Bank: bank}
}

// ReasonOf returns the failure reason carried by err.
func ReasonOf(err error) (Reason, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason, true
	}
	return "", false
}

// IsFailure reports whether err is an extraction failure with one of the
// given reasons, or any failure when none is given.
func IsFailure(err error, reasons ...Reason) bool {
	r, ok := ReasonOf(err)
	if !ok {
		return false
	}
	if len(reasons) == 0 {
		return true
	}
	for _, want := range reasons {
		if r == want {
			return true
		}
	}
	return false
}
