package textutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOccurredAt(t *testing.T) {
	// 2026-03-10 14:20:05 in Ecuador
	fallback := time.Date(2026, time.March, 10, 19, 20, 5, 0, time.UTC)

	tests := []struct {
		name  string
		text  string
		order DateOrder
		want  string
	}{
		{"iso with a las", "2026-01-30 a las 10:03", DMY, "2026-01-30T15:03:00.000Z"},
		{"iso compact", "Fecha: 2026-01-30 22:15", DMY, "2026-01-31T03:15:00.000Z"},
		{"spanish month with time", "30/Enero/2026 10:03", DMY, "2026-01-30T15:03:00.000Z"},
		{"spanish month without time", "05 de marzo de 2026", DMY, "2026-03-05T05:00:00.000Z"},
		{"spanish abbreviation", "7-dic-2025 08:00", DMY, "2025-12-07T13:00:00.000Z"},
		{"dmy with seconds", "02/03/2026 09:15:30", DMY, "2026-03-02T14:15:30.000Z"},
		{"dmy guard rejects month 13", "12/13/2026 09:15", DMY, "2026-03-10T19:20:05.000Z"},
		{"mdy reversal", "02/03/2026 09:15", MDY, "2026-02-03T14:15:00.000Z"},
		{"mdy day above 12", "01/25/2026 23:59", MDY, "2026-01-26T04:59:00.000Z"},
		{"mdy reads day-first when first field exceeds 12", "25/01/2026 18:45", MDY, "2026-01-25T23:45:00.000Z"},
		{"mdy date only reads day-first when needed", "25/01/2026", MDY, "2026-01-25T19:20:05.000Z"},
		{"mdy neither field a month", "25/13/2026 18:45", MDY, "2026-03-10T19:20:05.000Z"},
		{"date only takes fallback time", "15/02/2026", DMY, "2026-02-15T19:20:05.000Z"},
		{"iso date only", "2026-02-15", DMY, "2026-02-15T19:20:05.000Z"},
		{"invalid day", "31/02/2026 10:00", DMY, "2026-03-10T19:20:05.000Z"},
		{"nothing", "sin fecha", DMY, "2026-03-10T19:20:05.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseOccurredAt(tt.text, fallback, tt.order)
			assert.Equal(t, tt.want, FormatISO(got))
		})
	}
}

func TestParseOccurredAt_FallbackUnchanged(t *testing.T) {
	fallback := time.Date(2026, time.April, 1, 8, 0, 0, 0, Ecuador)
	got := ParseOccurredAt("", fallback, DMY)
	assert.True(t, got.Equal(fallback))
}
