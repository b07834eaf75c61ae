package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExtractCommand(t *testing.T) {
	out, err := run(t, "extract",
		"--bank", "pichincha",
		"--from", "bancavirtual@pichincha.com",
		"--subject", "Consumo Tarjeta de Crédito por USD 1.54",
		"--file", filepath.Join("..", "extractor", "testdata", "pichincha-consumo.txt"),
		"--received", "2026-01-30T15:10:00Z",
	)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "expense", got["type"])
	assert.Equal(t, "1.54", got["amount"])
	assert.Equal(t, "DIDI RIDES EC KS", got["description"])
	assert.Equal(t, "2026-01-30T15:03:00.000Z", got["occurred_at"])
	assert.Equal(t, "3733", got["card_last4"])
	assert.NotEmpty(t, got["rule"])
}

func TestExtractCommand_NoRule(t *testing.T) {
	body := filepath.Join(t.TempDir(), "body.txt")
	require.NoError(t, os.WriteFile(body, []byte("Hola"), 0o600))

	_, err := run(t, "extract", "--bank", "pichincha", "--subject", "Bienvenido", "--file", body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractor")
}

func TestExtractCommand_RequiresFile(t *testing.T) {
	_, err := run(t, "extract", "--subject", "Consumo")
	require.Error(t, err)
}

func TestRulesCommand(t *testing.T) {
	out, err := run(t, "rules")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 1)
	assert.Contains(t, lines[0], "SUBJECT MARKER")
	assert.Contains(t, out, "pichincha")
	assert.Contains(t, out, "produbanco")
	assert.Contains(t, out, "deuna")
}
