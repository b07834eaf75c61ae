// Package mailclient fetches single messages from a Graph-style mail API.
package mailclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"fintrack/internal/model"
	"fintrack/pkg/circuitbreaker"
	"fintrack/pkg/logger"
	"fintrack/pkg/metrics"
	"fintrack/pkg/trace"
)

const messageEndpoint = "/me/messages"

// StatusError is a non-2xx answer from the mail API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mail api returned %d: %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// New builds a client for baseURL, e.g. https://graph.microsoft.com/v1.0.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cbConfig := circuitbreaker.DefaultConfig()
	cbConfig.FailureThreshold = 3
	cbConfig.IsFailure = upstreamFault

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cb:         circuitbreaker.NewCircuitBreaker(cbConfig),
		logger:     logger,
	}
}

// upstreamFault keeps client errors such as an expired token from opening
// the breaker for every mailbox.
func upstreamFault(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return !errors.Is(err, context.Canceled)
}

type graphMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	ReceivedDateTime time.Time `json:"receivedDateTime"`
	Body             struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
}

// GetMessageByID returns nil, nil when the message does not exist.
func (c *Client) GetMessageByID(ctx context.Context, messageID, accessToken string) (*model.RawMessage, error) {
	var msg *model.RawMessage
	notFound := false

	err := c.cb.Execute(func() error {
		start := time.Now()
		endpoint := fmt.Sprintf("%s%s/%s?%s", c.baseURL, messageEndpoint, url.PathEscape(messageID),
			url.Values{"$select": {"id,subject,from,receivedDateTime,body"}}.Encode())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")
		if traceID := trace.FromContext(ctx); traceID != "" {
			req.Header.Set(trace.HeaderName, traceID)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordMailFetchLatency(messageEndpoint, "error", time.Since(start))
			return err
		}
		defer resp.Body.Close()
		metrics.RecordMailFetchLatency(messageEndpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

		switch {
		case resp.StatusCode == http.StatusNotFound:
			notFound = true
			return nil
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		var gm graphMessage
		if err := json.NewDecoder(resp.Body).Decode(&gm); err != nil {
			return fmt.Errorf("decode mail message: %w", err)
		}
		msg = toRawMessage(gm)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", messageID, err)
	}
	if notFound {
		logger.WithTrace(ctx, c.logger).Info("mail message not found", zap.String("message_id", messageID))
		return nil, nil
	}
	return msg, nil
}

func toRawMessage(gm graphMessage) *model.RawMessage {
	return &model.RawMessage{
		ID:         gm.ID,
		From:       strings.ToLower(strings.TrimSpace(gm.From.EmailAddress.Address)),
		Subject:    gm.Subject,
		ReceivedAt: gm.ReceivedDateTime.UTC(),
		Body:       gm.Body.Content,
	}
}
