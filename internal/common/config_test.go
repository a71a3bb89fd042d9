package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 3, config.Research.MaxRounds)
	assert.Equal(t, EmptyRoundContinue, config.Research.EmptyRoundPolicy)
	assert.Equal(t, 4, config.Research.WorkerConcurrency)
}

func TestLoadFromFiles_LaterFileOverrides(t *testing.T) {
	base := writeConfigFile(t, "base.toml", `
[server]
port = 9000

[research]
max_rounds = 5
`)
	local := writeConfigFile(t, "local.toml", `
[server]
port = 9001
`)

	config, err := LoadFromFiles(base, local)
	require.NoError(t, err)

	assert.Equal(t, 9001, config.Server.Port)
	// Untouched by the later file
	assert.Equal(t, 5, config.Research.MaxRounds)
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadFromFiles_EnvOverridesFiles(t *testing.T) {
	t.Setenv("INDAGO_SERVER_PORT", "7777")
	t.Setenv("INDAGO_RESEARCH_MAX_ROUNDS", "7")

	path := writeConfigFile(t, "config.toml", `
[server]
port = 9000

[research]
max_rounds = 2
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, config.Server.Port)
	assert.Equal(t, 7, config.Research.MaxRounds)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 8181, "0.0.0.0")
	assert.Equal(t, 8181, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	// Zero values leave config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8181, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestResolveAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-key")
		key, err := ResolveAPIKey(ctx, nil, "gemini_api_key", "config-key")
		require.NoError(t, err)
		assert.Equal(t, "env-key", key)
	})

	t.Run("config fallback", func(t *testing.T) {
		t.Setenv("INDAGO_GEMINI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		key, err := ResolveAPIKey(ctx, nil, "gemini_api_key", "config-key")
		require.NoError(t, err)
		assert.Equal(t, "config-key", key)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		t.Setenv("INDAGO_GEMINI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		_, err := ResolveAPIKey(ctx, nil, "gemini_api_key", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}
