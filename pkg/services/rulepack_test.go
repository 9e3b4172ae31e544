package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTempRulePack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRulePack_EmptyPathUsesBuiltin(t *testing.T) {
	pack := LoadRulePack("", zap.NewNop())

	require.NotNil(t, pack)
	assert.NotEmpty(t, pack.Rules)
	assert.NotEmpty(t, pack.Examples)
	assert.NotEmpty(t, pack.DefaultRules)
}

func TestLoadRulePack_MissingFileFallsBack(t *testing.T) {
	pack := LoadRulePack("/nonexistent/rules.yaml", zap.NewNop())

	assert.Equal(t, DefaultRulePack().DefaultRules, pack.DefaultRules)
}

func TestLoadRulePack_MalformedYAMLFallsBack(t *testing.T) {
	path := writeTempRulePack(t, "rules: [unclosed")

	pack := LoadRulePack(path, zap.NewNop())

	assert.Equal(t, len(DefaultRulePack().Rules), len(pack.Rules))
}

func TestLoadRulePack_OverrideRules(t *testing.T) {
	path := writeTempRulePack(t, `
rules:
  - name: custom
    keywords: ["jackpot"]
    rules:
      - "Jackpot wins live in jackpot_events."
`)

	pack := LoadRulePack(path, zap.NewNop())

	require.Len(t, pack.Rules, 1)
	assert.Equal(t, "custom", pack.Rules[0].Name)
	// Unspecified sections keep the built-in content.
	assert.NotEmpty(t, pack.Examples)
	assert.NotEmpty(t, pack.DefaultRules)
	assert.NotEmpty(t, pack.DefaultExample.SQL)
}

func TestLoadRulePack_EmptyPackFallsBack(t *testing.T) {
	path := writeTempRulePack(t, "default_rules:\n  - only defaults\n")

	pack := LoadRulePack(path, zap.NewNop())

	// A pack with no triggers at all is rejected outright.
	assert.Equal(t, len(DefaultRulePack().Rules), len(pack.Rules))
	assert.NotEqual(t, []string{"only defaults"}, pack.DefaultRules)
}
