package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeIntents(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"intents"}, args...))
	t.Cleanup(func() {
		intentsJSON = false
		intentsCatalog = ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestIntentsListing(t *testing.T) {
	out := executeIntents(t)

	assert.Contains(t, out, "BookTicketParameters")
	assert.Contains(t, out, "* show_name")
	assert.Contains(t, out, "Text-only intents: greet, affirm, negate, thank_you, goodbye")
	assert.Contains(t, out, "Fallback intent: unknown_or_complex_reply")
}

func TestIntentsJSON(t *testing.T) {
	out := executeIntents(t, "--json")

	var tools []struct {
		Type     string `json:"type"`
		Function struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"function"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &tools))
	require.Len(t, tools, 8)
	assert.Equal(t, "function", tools[0].Type)
	assert.Equal(t, "object", tools[0].Function.Parameters["type"])
}

const matineeCatalog = `intents:
  - name: MatineeParameters
    description: Weekend matinee enquiries.
    fields:
      - name: date
        type: string
        required: true
        description: Which weekend day.
simple_intents: [greet]
`

func TestIntentsUsesCatalogFileEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(matineeCatalog), 0o600))
	t.Setenv("CATALOG_FILE", path)

	out := executeIntents(t)
	assert.Contains(t, out, "MatineeParameters")
	assert.NotContains(t, out, "BookTicketParameters")
	assert.Contains(t, out, "Text-only intents: greet")
}

func TestIntentsCatalogFlagWinsOverEnv(t *testing.T) {
	t.Setenv("CATALOG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(matineeCatalog), 0o600))

	out := executeIntents(t, "--catalog", path)
	assert.Contains(t, out, "MatineeParameters")
}
