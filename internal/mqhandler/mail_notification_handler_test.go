package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"fintrack/internal/repository"
	"fintrack/internal/service/extraction"
	"fintrack/internal/service/ingest"
)

type memDeduper struct {
	held     map[string]bool
	released int
}

func (d *memDeduper) AcquireOnce(_ context.Context, handler, id string) bool {
	key := handler + ":" + id
	if d.held[key] {
		return false
	}
	d.held[key] = true
	return true
}

func (d *memDeduper) Release(_ context.Context, handler, id string) {
	d.released++
	delete(d.held, handler+":"+id)
}

type memCounter map[string]int64

func (m memCounter) IncrementAndGet(_ context.Context, key string) (int64, error) {
	m[key]++
	return m[key], nil
}

func (m memCounter) Reset(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

type tokens map[string]string

func (t tokens) Get(_ context.Context, key string) (string, error) {
	if v, ok := t[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("token for %s: %w", key, repository.ErrNotFound)
}

type scriptedIngester struct {
	errs   []error
	calls  int
	tokens []string
}

func (s *scriptedIngester) Ingest(_ context.Context, _, token string) (*ingest.Result, error) {
	s.tokens = append(s.tokens, token)
	s.calls++
	if len(s.errs) >= s.calls && s.errs[s.calls-1] != nil {
		return nil, s.errs[s.calls-1]
	}
	return &ingest.Result{Outcome: ingest.OutcomeSkipped, Reason: extraction.ReasonBlacklisted}, nil
}

type dlqRecorder struct{ reasons []string }

func (d *dlqRecorder) PublishToDLQ(_ string, _ []byte, originalError, _ string) error {
	d.reasons = append(d.reasons, originalError)
	return nil
}

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("mail api returned %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

type fixture struct {
	h       *MailNotificationHandler
	ing     *scriptedIngester
	dedup   *memDeduper
	counter memCounter
	dlq     *dlqRecorder
}

func newFixture(errs ...error) *fixture {
	f := &fixture{
		ing:     &scriptedIngester{errs: errs},
		dedup:   &memDeduper{held: map[string]bool{}},
		counter: memCounter{},
		dlq:     &dlqRecorder{},
	}
	f.h = NewMailNotificationHandler(f.ing, tokens{"sub-1": "tok-1"}, f.dedup, f.counter, f.dlq, 2, zap.NewNop())
	return f
}

func payload(t *testing.T, subscription string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"message_id": "AAMk-1", "subscription_id": subscription})
	require.NoError(t, err)
	return raw
}

func TestHandle_Success(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.h.Handle(context.Background(), payload(t, "sub-1")))
	assert.Equal(t, []string{"tok-1"}, f.ing.tokens)

	// redelivery inside the dedup window
	require.NoError(t, f.h.Handle(context.Background(), payload(t, "sub-1")))
	assert.Equal(t, 1, f.ing.calls)
	assert.Empty(t, f.dlq.reasons)
}

func TestHandle_RetryableErrorsRequeueUntilLimit(t *testing.T) {
	unavailable := statusErr(503)
	f := newFixture(unavailable, unavailable, unavailable)
	ctx := context.Background()

	assert.ErrorIs(t, f.h.Handle(ctx, payload(t, "sub-1")), unavailable)
	assert.ErrorIs(t, f.h.Handle(ctx, payload(t, "sub-1")), unavailable)
	assert.NoError(t, f.h.Handle(ctx, payload(t, "sub-1")), "third failure exceeds max retries")

	assert.Equal(t, 3, f.ing.calls)
	assert.Equal(t, 3, f.dedup.released)
	assert.Len(t, f.dlq.reasons, 1)
	assert.Empty(t, f.counter)
}

func TestHandle_RecoversAfterRetry(t *testing.T) {
	f := newFixture(context.DeadlineExceeded)
	ctx := context.Background()

	require.Error(t, f.h.Handle(ctx, payload(t, "sub-1")))
	require.NoError(t, f.h.Handle(ctx, payload(t, "sub-1")))
	assert.Equal(t, 2, f.ing.calls)
	assert.Empty(t, f.counter)
	assert.Empty(t, f.dlq.reasons)
}

func TestHandle_NonRetryable(t *testing.T) {
	tests := []struct {
		name  string
		raw   json.RawMessage
		errs  []error
		calls int
	}{
		{"bad json", json.RawMessage(`{"message_id":`), nil, 0},
		{"unknown subscription", nil, nil, 0},
		{"unauthorized", nil, []error{statusErr(401)}, 1},
		{"unknown error", nil, []error{errors.New("boom")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.errs...)
			raw := tt.raw
			if raw == nil {
				sub := "sub-1"
				if tt.name == "unknown subscription" {
					sub = "sub-404"
				}
				raw = payload(t, sub)
			}

			assert.NoError(t, f.h.Handle(context.Background(), raw))
			assert.Equal(t, tt.calls, f.ing.calls)
			assert.Len(t, f.dlq.reasons, 1)
		})
	}
}

func TestHandle_MissingMessageID(t *testing.T) {
	f := newFixture()
	assert.NoError(t, f.h.Handle(context.Background(), json.RawMessage(`{"subscription_id":"sub-1"}`)))
	assert.Zero(t, f.ing.calls)
	assert.Empty(t, f.dlq.reasons)
}

func TestHandle_LogMessagesAreLowercase(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newFixture(statusErr(401))
	f.h = NewMailNotificationHandler(f.ing, tokens{"sub-1": "tok-1"}, f.dedup, f.counter, f.dlq, 2, zap.New(core))
	ctx := context.Background()

	require.NoError(t, f.h.Handle(ctx, json.RawMessage(`{"message_id":`)))
	require.NoError(t, f.h.Handle(ctx, payload(t, "sub-1")))

	entries := logs.All()
	require.NotEmpty(t, entries)
	for _, e := range entries {
		r, _ := utf8.DecodeRuneInString(e.Message)
		assert.True(t, unicode.IsLower(r), "log message %q", e.Message)
	}
	assert.Equal(t, 1, logs.FilterMessage("failed to ingest message").Len())
}
