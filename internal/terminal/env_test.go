package terminal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAgentEnv_ClaudeModelOnly(t *testing.T) {
	env := BuildAgentEnv("claude", ModelConfig{
		DefaultModel: "claude-opus-4-1",
		APIKey:       "sk-test",
		BaseURL:      "https://example.com/v1",
	})

	// Claude reads its key from the login session, so only the model var is set.
	assert.Equal(t, map[string]string{"ANTHROPIC_MODEL": "claude-opus-4-1"}, env)
}

func TestBuildAgentEnv_AliasResolution(t *testing.T) {
	env := BuildAgentEnv("claude", ModelConfig{DefaultModel: "opus"})
	assert.Equal(t, "claude-opus-4-1", env["ANTHROPIC_MODEL"])

	env = BuildAgentEnv("gemini", ModelConfig{DefaultModel: "flash"})
	assert.Equal(t, "gemini-2.5-flash", env["GEMINI_MODEL"])
}

func TestBuildAgentEnv_UnknownModelPassesThrough(t *testing.T) {
	env := BuildAgentEnv("codex", ModelConfig{DefaultModel: "gpt-5-turbo-preview"})
	assert.Equal(t, "gpt-5-turbo-preview", env["OPENAI_MODEL"])
}

func TestBuildAgentEnv_OmitsAbsentFields(t *testing.T) {
	env := BuildAgentEnv("aider", ModelConfig{APIKey: "sk-test"})
	assert.Equal(t, map[string]string{"OPENAI_API_KEY": "sk-test"}, env)

	_, hasModel := env["AIDER_MODEL"]
	assert.False(t, hasModel)
	_, hasBase := env["OPENAI_API_BASE"]
	assert.False(t, hasBase)
}

func TestBuildAgentEnv_FullOpenAICompatibleConfig(t *testing.T) {
	env := BuildAgentEnv("aider", ModelConfig{
		DefaultModel: "deepseek-chat",
		APIKey:       "sk-test",
		BaseURL:      "https://api.deepseek.com/v1",
	})

	assert.Equal(t, "deepseek-chat", env["AIDER_MODEL"])
	assert.Equal(t, "sk-test", env["OPENAI_API_KEY"])
	assert.Equal(t, "https://api.deepseek.com/v1", env["OPENAI_API_BASE"])
}

func TestBuildAgentEnv_UnknownAgentGetsNothing(t *testing.T) {
	assert.Nil(t, BuildAgentEnv("bash", ModelConfig{DefaultModel: "opus", APIKey: "sk-test"}))
	assert.Nil(t, BuildAgentEnv("nonexistent", ModelConfig{DefaultModel: "opus"}))
}

func TestBuildAgentEnv_EmptyConfigIsNil(t *testing.T) {
	assert.Nil(t, BuildAgentEnv("claude", ModelConfig{}))
}

func TestBuildEnviron_TerminalDefaults(t *testing.T) {
	environ := buildEnviron()

	assert.Contains(t, environ, "TERM=xterm-256color")
	assert.Contains(t, environ, "COLORTERM=truecolor")
	assert.Contains(t, environ, "FORCE_COLOR=1")
}

func TestBuildEnviron_LaterOverlaysWin(t *testing.T) {
	environ := buildEnviron(
		map[string]string{"MY_VAR": "first", "ONLY_FIRST": "1"},
		map[string]string{"MY_VAR": "second"},
	)

	assert.Contains(t, environ, "MY_VAR=second")
	assert.Contains(t, environ, "ONLY_FIRST=1")
	assert.NotContains(t, environ, "MY_VAR=first")
}

func TestBuildEnviron_InheritsParentEnvironment(t *testing.T) {
	t.Setenv("FINETUNE_ENV_TEST_MARKER", "present")

	environ := buildEnviron()
	require.Contains(t, environ, "FINETUNE_ENV_TEST_MARKER=present")

	for _, kv := range environ {
		assert.True(t, strings.Contains(kv, "="), "environ entry %q must be KEY=VALUE", kv)
	}
}
