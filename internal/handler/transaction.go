package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fintrack/internal/model"
	"fintrack/internal/service/extraction"
	"fintrack/internal/service/ingest"
	"fintrack/pkg/logger"
	"fintrack/pkg/util"
)

type Ingester interface {
	Ingest(ctx context.Context, messageID, accessToken string) (*ingest.Result, error)
}

type Extractor interface {
	ExtractTransactionData(ctx context.Context, messageID, accessToken string) (*model.TransactionInsert, error)
}

type TransactionHandler struct {
	ingester  Ingester
	extractor Extractor
	logger    *zap.Logger
}

func NewTransactionHandler(ingester Ingester, extractor Extractor, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{ingester: ingester, extractor: extractor, logger: logger}
}

// Convert handles POST /messages/:id/transaction
func (h *TransactionHandler) Convert(c *gin.Context) {
	token, ok := h.accessToken(c)
	if !ok {
		return
	}
	messageID := c.Param("id")

	res, err := h.ingester.Ingest(c.Request.Context(), messageID, token)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("convert message failed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to convert message"})
		return
	}

	switch res.Outcome {
	case ingest.OutcomeCreated:
		c.JSON(http.StatusCreated, gin.H{"status": res.Outcome, "transaction": res.Transaction})
	case ingest.OutcomeDuplicate:
		c.JSON(http.StatusOK, gin.H{"status": res.Outcome, "transaction": res.Transaction})
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": res.Outcome,
			"reason": res.Reason,
			"error":  res.Reason.Message(),
		})
	}
}

// Preview handles GET /messages/:id/extraction. Nothing is stored.
func (h *TransactionHandler) Preview(c *gin.Context) {
	token, ok := h.accessToken(c)
	if !ok {
		return
	}
	messageID := c.Param("id")

	insert, err := h.extractor.ExtractTransactionData(c.Request.Context(), messageID, token)
	var f *extraction.Failure
	switch {
	case errors.As(err, &f):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"reason": f.Reason, "error": f.Error()})
	case err != nil:
		logger.WithTrace(c.Request.Context(), h.logger).Error("preview extraction failed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to extract message"})
	default:
		c.JSON(http.StatusOK, insert)
	}
}

// accessToken writes a 401 and returns false when the request carries no
// usable mail token.
func (h *TransactionHandler) accessToken(c *gin.Context) (string, bool) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return "", false
	}
	if util.TokenExpired(token, time.Now()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access token expired"})
		return "", false
	}
	return token, true
}

func bearerToken(c *gin.Context) (string, bool) {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
