package extractor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/model"
	"fintrack/internal/textutil"
)

var receivedAt = time.Date(2026, time.March, 10, 19, 20, 5, 0, time.UTC)

type expectedTransaction struct {
	Type           model.TransactionType
	Amount         string
	Description    string
	OccurredAt     string
	PaymentMethod  *model.PaymentMethod
	CardLast4      *string
	PreferCardType *model.CardType
	Comment        *string
}

func fixture(t *testing.T, name, from, subject string) model.RawMessage {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "read fixture %s", name)

	return model.RawMessage{
		ID:         "msg-" + name,
		From:       from,
		Subject:    subject,
		ReceivedAt: receivedAt,
		Body:       string(raw),
	}
}

func assertExtracted(t *testing.T, got *model.ExtractedTransactionData, want expectedTransaction) {
	t.Helper()

	require.NotNil(t, got, "extractor declined")
	require.NoError(t, got.Validate())

	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Amount, got.Amount.StringFixed(2))
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.OccurredAt, textutil.FormatISO(got.OccurredAt))
	assert.Equal(t, want.PaymentMethod, got.PaymentMethod)
	assert.Equal(t, want.CardLast4, got.CardLast4)
	assert.Equal(t, want.PreferCardType, got.PreferCardType)
	assert.Equal(t, want.Comment, got.Comment)
}
