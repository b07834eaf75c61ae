package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "fintrack/contracts/mq"
	"fintrack/internal/service/ingest"
	"fintrack/pkg/logger"
	"fintrack/pkg/util"
)

const handlerName = "ingest"

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, messageID string) bool
	Release(ctx context.Context, handler, messageID string)
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// TokenStore resolves the mail access token of a subscription.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
}

type Ingester interface {
	Ingest(ctx context.Context, messageID, accessToken string) (*ingest.Result, error)
}

type DeadLetterPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError, service string) error
}

type MailNotificationHandler struct {
	ingester     Ingester
	tokens       TokenStore
	deduper      Deduper
	retryCounter RetryCounter
	dlq          DeadLetterPublisher
	maxRetries   int64
	logger       *zap.Logger
}

func NewMailNotificationHandler(
	ingester Ingester,
	tokens TokenStore,
	deduper Deduper,
	retryCounter RetryCounter,
	dlq DeadLetterPublisher,
	maxRetries int64,
	logger *zap.Logger,
) *MailNotificationHandler {
	return &MailNotificationHandler{
		ingester:     ingester,
		tokens:       tokens,
		deduper:      deduper,
		retryCounter: retryCounter,
		dlq:          dlq,
		maxRetries:   maxRetries,
		logger:       logger,
	}
}

// Handle ingests the message a notification points at. It returns an error
// only when the delivery should be requeued; everything else is acked,
// after parking hopeless deliveries in the dead letter queue.
func (h *MailNotificationHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.MailNotificationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("failed to unmarshal mail notification (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		h.deadLetter(log, raw, err)
		return nil
	}
	if p.MessageID == "" {
		log.Warn("mail notification without message id, dropping")
		return nil
	}
	log = log.With(zap.String("message_id", p.MessageID), zap.String("subscription_id", p.SubscriptionID))

	if !h.deduper.AcquireOnce(ctx, handlerName, p.MessageID) {
		return nil
	}

	res, err := h.ingest(ctx, p)
	if err == nil {
		h.resetRetries(ctx, log, p.MessageID)
		log.Info("mail notification processed",
			zap.String("outcome", string(res.Outcome)),
			zap.String("reason", string(res.Reason)),
		)
		return nil
	}

	// let a redelivery through the dedup gate
	h.deduper.Release(ctx, handlerName, p.MessageID)

	retryable, errType := util.IsRetryableError(err)
	retryCount, countErr := h.retryCounter.IncrementAndGet(ctx, util.FormatRetryKey(handlerName, p.MessageID))
	if countErr != nil {
		log.Warn("failed to get retry count, continuing anyway", zap.Error(countErr))
		retryCount = 1
	}

	log.Error("failed to ingest message",
		zap.String("error_type", errType),
		zap.Bool("retryable", retryable),
		zap.Int64("retry_count", retryCount),
		zap.Error(err),
	)

	if util.ShouldRetry(retryCount, h.maxRetries, retryable) {
		return err
	}

	h.resetRetries(ctx, log, p.MessageID)
	h.deadLetter(log, raw, err)
	return nil
}

func (h *MailNotificationHandler) ingest(ctx context.Context, p mqcontracts.MailNotificationPayload) (*ingest.Result, error) {
	// a missing token only comes back when the subscription is renewed,
	// which the classifier treats as not retryable
	token, err := h.tokens.Get(ctx, p.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("resolve access token: %w", err)
	}
	return h.ingester.Ingest(ctx, p.MessageID, token)
}

func (h *MailNotificationHandler) resetRetries(ctx context.Context, log *zap.Logger, messageID string) {
	if err := h.retryCounter.Reset(ctx, util.FormatRetryKey(handlerName, messageID)); err != nil {
		log.Warn("failed to reset retry count", zap.Error(err))
	}
}

func (h *MailNotificationHandler) deadLetter(log *zap.Logger, raw []byte, cause error) {
	if h.dlq == nil {
		return
	}
	if err := h.dlq.PublishToDLQ(mqcontracts.RoutingKeyMailNotification, raw, cause.Error(), "worker"); err != nil {
		log.Error("failed to publish to DLQ", zap.Error(err))
	}
}
