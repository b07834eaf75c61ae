package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"fintrack/pkg/circuitbreaker"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

func TestIsRetryableError(t *testing.T) {
	jsonErr := json.Unmarshal([]byte("{"), &struct{}{})

	tests := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"bad payload", fmt.Errorf("decode: %w", jsonErr), false, "json_decode_error"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), true, "timeout"},
		{"breaker", circuitbreaker.ErrCircuitBreakerOpen, true, "circuit_open"},
		{"unauthorized", fmt.Errorf("graph: %w", statusErr(401)), false, "mail_unauthorized"},
		{"throttled", statusErr(429), true, "mail_throttled"},
		{"server", statusErr(503), true, "mail_unavailable"},
		{"bad request", statusErr(400), false, "mail_rejected"},
		{"unique", &pgconn.PgError{Code: "23505"}, false, "duplicate_key"},
		{"serialization", &pgconn.PgError{Code: "40001"}, true, "db_transient"},
		{"connection", &pgconn.PgError{Code: "08006"}, true, "db_transient"},
		{"syntax", &pgconn.PgError{Code: "42601"}, false, "db_error"},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, true, "network_error"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, kind := IsRetryableError(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(1, 3, true))
	assert.True(t, ShouldRetry(3, 3, true))
	assert.False(t, ShouldRetry(4, 3, true))
	assert.False(t, ShouldRetry(1, 3, false))
}
