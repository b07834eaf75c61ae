package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mqcontracts "fintrack/contracts/mq"
	"fintrack/pkg/logger"
	"fintrack/pkg/trace"
)

type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// WebhookHandler receives mailbox change notifications and queues one
// mail.notification event per message.
type WebhookHandler struct {
	publisher   Publisher
	clientState string
	logger      *zap.Logger
	now         func() time.Time
}

func NewWebhookHandler(publisher Publisher, clientState string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		publisher:   publisher,
		clientState: clientState,
		logger:      logger,
		now:         time.Now,
	}
}

type notificationBatch struct {
	Value []notification `json:"value"`
}

type notification struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientState    string `json:"clientState"`
	ChangeType     string `json:"changeType"`
	ResourceData   struct {
		ID string `json:"id"`
	} `json:"resourceData"`
}

// Notify handles POST /webhooks/mail
func (h *WebhookHandler) Notify(c *gin.Context) {
	if token := c.Query("validationToken"); token != "" {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(token))
		return
	}

	var batch notificationBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification"})
		return
	}

	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)
	accepted, rejected := 0, 0
	for _, n := range batch.Value {
		if !h.validState(n.ClientState) {
			rejected++
			log.Warn("notification with wrong client state", zap.String("subscription_id", n.SubscriptionID))
			continue
		}
		if n.ResourceData.ID == "" {
			continue
		}

		payload := mqcontracts.MailNotificationPayload{
			MessageID:      n.ResourceData.ID,
			SubscriptionID: n.SubscriptionID,
			ReceivedAt:     h.now().UTC(),
			TraceID:        trace.FromContext(ctx),
		}
		if err := h.publisher.PublishWithContext(ctx, mqcontracts.RoutingKeyMailNotification, payload); err != nil {
			log.Error("failed to publish mail notification",
				zap.String("message_id", payload.MessageID),
				zap.Error(err),
			)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to queue notification"})
			return
		}
		accepted++
	}

	if accepted == 0 && rejected > 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid client state"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
}

func (h *WebhookHandler) validState(got string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.clientState)) == 1
}
