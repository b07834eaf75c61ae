package model

import "time"

// RawMessage is a mail-provider message as fetched by the mail client.
// From is always lowercased; Body is HTML or plain text and may be empty.
type RawMessage struct {
	ID         string
	From       string
	Subject    string
	ReceivedAt time.Time
	Body       string
}
