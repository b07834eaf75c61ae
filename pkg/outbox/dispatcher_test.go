package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fintrack/pkg/trace"
)

type fakeStore struct {
	pending []*Event
	sent    []int64
	failed  []int64
}

func (f *fakeStore) GetPendingEvents(context.Context, int) ([]*Event, error) {
	return f.pending, nil
}

func (f *fakeStore) MarkAsSent(_ context.Context, id int64) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeStore) MarkAsFailed(_ context.Context, id int64, _ int) error {
	f.failed = append(f.failed, id)
	return nil
}

type published struct {
	key     string
	payload any
	traceID string
}

type fakePublisher struct {
	got  []published
	fail map[string]bool
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, key string, payload any) error {
	if f.fail[key] {
		return errors.New("channel closed")
	}
	f.got = append(f.got, published{key: key, payload: payload, traceID: trace.FromContext(ctx)})
	return nil
}

func TestDispatcher_RunOnce(t *testing.T) {
	store := &fakeStore{pending: []*Event{
		{ID: 1, RoutingKey: "transaction.created", Payload: json.RawMessage(`{"transaction_id":"t1","trace_id":"abc"}`)},
		{ID: 2, RoutingKey: "broken", Payload: json.RawMessage(`{"transaction_id":"t2"}`)},
		{ID: 3, RoutingKey: "transaction.created", Payload: json.RawMessage(`not json`)},
	}}
	pub := &fakePublisher{fail: map[string]bool{"broken": true}}

	sent := NewDispatcher(store, pub, zap.NewNop()).RunOnce(context.Background())

	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{1}, store.sent)
	assert.Equal(t, []int64{2, 3}, store.failed)
	require.Len(t, pub.got, 1)
	assert.Equal(t, "abc", pub.got[0].traceID)
	assert.JSONEq(t, `{"transaction_id":"t1","trace_id":"abc"}`, string(pub.got[0].payload.(json.RawMessage)))
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	status, next := NextAttempt(1, 5, now)
	assert.Equal(t, StatusPending, status)
	require.NotNil(t, next)
	assert.Equal(t, now.Add(5*time.Second), *next)

	status, next = NextAttempt(4, 5, now)
	assert.Equal(t, StatusPending, status)
	assert.Equal(t, now.Add(20*time.Second), *next)

	status, next = NextAttempt(5, 5, now)
	assert.Equal(t, StatusFailed, status)
	assert.Nil(t, next)
}
