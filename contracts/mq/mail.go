package mq

import "time"

const (
	RoutingKeyMailNotification   = "mail.notification"
	RoutingKeyTransactionCreated = "transaction.created"
)

// MailNotificationPayload announces a new message in a subscribed mailbox.
// The access token is not carried; the worker resolves it by
// SubscriptionID.
type MailNotificationPayload struct {
	MessageID      string    `json:"message_id"`
	SubscriptionID string    `json:"subscription_id"`
	ReceivedAt     time.Time `json:"received_at"`
	TraceID        string    `json:"trace_id,omitempty"`
}
