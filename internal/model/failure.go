package model

import "time"

// ExtractionFailure is a bank email that was rejected, kept for review.
type ExtractionFailure struct {
	ID        int64
	MessageID string
	Reason    string
	Detail    string
	BankSlug  string
	Sender    string
	Subject   string
	CreatedAt time.Time
}
