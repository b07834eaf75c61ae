// Package aiextract reads a transaction out of free email text with a
// generative model. It backs the ingestion fallback for bank layouts no
// extractor knows.
package aiextract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"fintrack/internal/model"
	"fintrack/pkg/circuitbreaker"
	"fintrack/pkg/logger"
)

const DefaultModel = "gemini-2.5-flash"

// maxBodyRunes bounds the prompt for very long newsletters.
const maxBodyRunes = 8000

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiExtractor struct {
	models  generator
	model   string
	timeout time.Duration
	cb      *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewGeminiExtractor creates a Gemini API client. An empty apiKey lets the
// SDK read GOOGLE_API_KEY and the Vertex variables from the environment.
func NewGeminiExtractor(ctx context.Context, apiKey, modelName string, timeout time.Duration, logger *zap.Logger) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiExtractor(client.Models, modelName, timeout, logger), nil
}

func newGeminiExtractor(models generator, modelName string, timeout time.Duration, logger *zap.Logger) *GeminiExtractor {
	if modelName == "" {
		modelName = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiExtractor{
		models:  models,
		model:   modelName,
		timeout: timeout,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
			FailureThreshold:    3,
			SuccessThreshold:    1,
			Timeout:             time.Minute,
			HalfOpenMaxRequests: 1,
		}),
		logger: logger,
	}
}

const prompt = "You read transaction notification emails from Ecuadorian banks.\n\n" +
	"Task:\n" +
	"- Find the single transaction the email notifies.\n" +
	"- Output STRICT JSON only: one object, no comments, no extra text.\n\n" +
	"Fields:\n" +
	"- \"type\": \"expense\" for purchases, payments, withdrawals and transfers sent; \"income\" for reversals and money received\n" +
	"- \"description\": merchant, payee or concept as written in the email\n" +
	"- \"amount\": positive number in USD\n" +
	"- \"occurred_at\": date and time as written, format \"YYYY-MM-DD HH:mm\" in local Ecuador time\n" +
	"- \"bank\": bank name\n\n" +
	"If the email notifies no transaction, return {\"amount\": 0}.\n" +
	"Do NOT wrap the response in code fences.\n\n" +
	"Email:\n"

// GetTransactionFromEmail returns nil, nil when the model found no
// transaction.
func (g *GeminiExtractor) GetTransactionFromEmail(ctx context.Context, bodyText string) (*model.AIExtraction, error) {
	body := []rune(strings.TrimSpace(bodyText))
	if len(body) == 0 {
		return nil, nil
	}
	if len(body) > maxBodyRunes {
		body = body[:maxBodyRunes]
	}

	var raw string
	err := g.cb.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		contents := []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt + string(body)}},
		}}
		resp, err := g.models.GenerateContent(callCtx, g.model, contents, &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0),
			ResponseMIMEType: "application/json",
		})
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		raw = resp.Text()
		return nil
	})
	if err != nil {
		return nil, err
	}

	out, err := decode(raw)
	if err != nil {
		logger.WithTrace(ctx, g.logger).Warn("unusable model response", zap.String("raw", raw), zap.Error(err))
		return nil, err
	}
	return out, nil
}

var errEmptyResponse = errors.New("empty model response")

func decode(raw string) (*model.AIExtraction, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, errEmptyResponse
	}
	var out model.AIExtraction
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("unmarshal model JSON: %w", err)
	}
	if !out.Amount.IsPositive() {
		return nil, nil
	}
	out.Type = model.TransactionType(strings.ToLower(strings.TrimSpace(string(out.Type))))
	return &out, nil
}

// cleanModelJSON strips code fences and anything around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return ""
		}
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

// Disabled never extracts anything.
type Disabled struct{}

func (Disabled) GetTransactionFromEmail(context.Context, string) (*model.AIExtraction, error) {
	return nil, nil
}
