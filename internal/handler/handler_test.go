package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "fintrack/contracts/mq"
	"fintrack/internal/model"
	"fintrack/internal/service/extraction"
	"fintrack/internal/service/ingest"
	"fintrack/pkg/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type publishedEvent struct {
	key     string
	payload mqcontracts.MailNotificationPayload
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, key string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{key: key, payload: payload.(mqcontracts.MailNotificationPayload)})
	return nil
}

func newWebhookRouter(pub Publisher) *gin.Engine {
	h := NewWebhookHandler(pub, "s3cret", zap.NewNop())
	h.now = func() time.Time { return time.Date(2026, time.March, 10, 19, 20, 5, 0, time.UTC) }
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), "trace-1"))
	})
	r.POST("/webhooks/mail", h.Notify)
	return r
}

func TestWebhook_Validation(t *testing.T) {
	pub := &fakePublisher{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mail?validationToken=abc%20123", nil)
	newWebhookRouter(pub).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc 123", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Empty(t, pub.events)
}

func TestWebhook_Notifications(t *testing.T) {
	body := `{"value":[
		{"subscriptionId":"sub-1","clientState":"s3cret","changeType":"created","resourceData":{"id":"AAMk-1"}},
		{"subscriptionId":"sub-1","clientState":"forged","changeType":"created","resourceData":{"id":"AAMk-2"}},
		{"subscriptionId":"sub-1","clientState":"s3cret","changeType":"created","resourceData":{"id":"AAMk-3"}}
	]}`
	pub := &fakePublisher{}
	w := httptest.NewRecorder()
	newWebhookRouter(pub).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/mail", strings.NewReader(body)))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"accepted":2}`, w.Body.String())
	require.Len(t, pub.events, 2)
	assert.Equal(t, mqcontracts.RoutingKeyMailNotification, pub.events[0].key)
	assert.Equal(t, mqcontracts.MailNotificationPayload{
		MessageID:      "AAMk-1",
		SubscriptionID: "sub-1",
		ReceivedAt:     time.Date(2026, time.March, 10, 19, 20, 5, 0, time.UTC),
		TraceID:        "trace-1",
	}, pub.events[0].payload)
	assert.Equal(t, "AAMk-3", pub.events[1].payload.MessageID)
}

func TestWebhook_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		code int
	}{
		{"malformed", `{"value":`, nil, http.StatusBadRequest},
		{"only forged", `{"value":[{"clientState":"nope","resourceData":{"id":"x"}}]}`, nil, http.StatusForbidden},
		{"broker down", `{"value":[{"clientState":"s3cret","resourceData":{"id":"x"}}]}`, errors.New("channel closed"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newWebhookRouter(&fakePublisher{err: tt.err}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/mail", strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

type fakeIngester struct {
	res   *ingest.Result
	err   error
	token string
}

func (f *fakeIngester) Ingest(_ context.Context, _, token string) (*ingest.Result, error) {
	f.token = token
	return f.res, f.err
}

type fakeExtractor struct {
	insert *model.TransactionInsert
	err    error
}

func (f *fakeExtractor) ExtractTransactionData(context.Context, string, string) (*model.TransactionInsert, error) {
	return f.insert, f.err
}

var stored = &model.Transaction{
	ID: "tx-1",
	TransactionInsert: model.TransactionInsert{
		Type:            model.TransactionExpense,
		Description:     "DIDI RIDES EC KS",
		Amount:          decimal.RequireFromString("1.54"),
		OccurredAt:      "2026-01-30T15:03:00.000Z",
		IncomeMessageID: "m1",
		BankID:          "bank-pich",
	},
}

func newTransactionRouter(ing Ingester, ext Extractor) *gin.Engine {
	h := NewTransactionHandler(ing, ext, zap.NewNop())
	r := gin.New()
	r.POST("/messages/:id/transaction", h.Convert)
	r.GET("/messages/:id/extraction", h.Preview)
	return r
}

func do(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		res  *ingest.Result
		err  error
		code int
		want string
	}{
		{"created", &ingest.Result{Outcome: ingest.OutcomeCreated, Transaction: stored}, nil, http.StatusCreated, "created"},
		{"duplicate", &ingest.Result{Outcome: ingest.OutcomeDuplicate, Transaction: stored}, nil, http.StatusOK, "duplicate"},
		{"skipped", &ingest.Result{Outcome: ingest.OutcomeSkipped, Reason: extraction.ReasonBlacklisted}, nil, http.StatusUnprocessableEntity, "skipped"},
		{"upstream", nil, errors.New("db down"), http.StatusBadGateway, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &fakeIngester{res: tt.res, err: tt.err}
			w := do(newTransactionRouter(ing, nil), http.MethodPost, "/messages/m1/transaction", "Bearer tok-1")

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "tok-1", ing.token)
			if tt.want == "" {
				return
			}
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["status"])
		})
	}
}

func TestConvert_SkippedCarriesReason(t *testing.T) {
	ing := &fakeIngester{res: &ingest.Result{Outcome: ingest.OutcomeSkipped, Reason: extraction.ReasonNoExtractor}}
	w := do(newTransactionRouter(ing, nil), http.MethodPost, "/messages/m1/transaction", "Bearer tok")

	assert.JSONEq(t, `{"status":"skipped","reason":"no_extractor","error":"No extractor for this bank and subject"}`, w.Body.String())
}

func TestConvert_RequiresBearer(t *testing.T) {
	for _, auth := range []string{"", "Basic abc", "Bearer   "} {
		ing := &fakeIngester{}
		w := do(newTransactionRouter(ing, nil), http.MethodPost, "/messages/m1/transaction", auth)
		assert.Equal(t, http.StatusUnauthorized, w.Code, auth)
	}
}

func TestConvert_RejectsExpiredToken(t *testing.T) {
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	ing := &fakeIngester{}
	w := do(newTransactionRouter(ing, nil), http.MethodPost, "/messages/m1/transaction", "Bearer "+expired)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, ing.token, "ingest must not run with an expired token")
}

func TestPreview(t *testing.T) {
	w := do(newTransactionRouter(nil, &fakeExtractor{insert: &stored.TransactionInsert}), http.MethodGet, "/messages/m1/extraction", "bearer tok")
	require.Equal(t, http.StatusOK, w.Code)

	var got model.TransactionInsert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "DIDI RIDES EC KS", got.Description)
	assert.Equal(t, "1.54", got.Amount.String())
	assert.Nil(t, got.CardID)

	failure := &extraction.Failure{Reason: extraction.ReasonNotWhitelisted, MessageID: "m1"}
	w = do(newTransactionRouter(nil, &fakeExtractor{err: failure}), http.MethodGet, "/messages/m1/extraction", "Bearer tok")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"reason":"not_whitelisted","error":"Email not in bank whitelist"}`, w.Body.String())

	w = do(newTransactionRouter(nil, &fakeExtractor{err: errors.New("503")}), http.MethodGet, "/messages/m1/extraction", "Bearer tok")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
