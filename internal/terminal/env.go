package terminal

import (
	"os"
	"sort"
	"strings"
)

// ModelConfig carries the user-configured model settings injected into an
// agent's environment. Empty fields are omitted from the environment.
type ModelConfig struct {
	DefaultModel string
	APIKey       string
	BaseURL      string
}

// providerEnv declares which environment variables a provider's CLI reads.
type providerEnv struct {
	modelVar   string
	apiKeyVar  string
	baseURLVar string
}

// providerByAgent maps each agent kind to its provider's environment contract.
// Agent kinds absent from this table receive no model environment at all.
var providerByAgent = map[string]providerEnv{
	"claude": {
		modelVar: "ANTHROPIC_MODEL",
	},
	"gemini": {
		modelVar:  "GEMINI_MODEL",
		apiKeyVar: "GOOGLE_API_KEY",
	},
	"codex": {
		modelVar:   "OPENAI_MODEL",
		apiKeyVar:  "OPENAI_API_KEY",
		baseURLVar: "OPENAI_API_BASE",
	},
	"aider": {
		modelVar:   "AIDER_MODEL",
		apiKeyVar:  "OPENAI_API_KEY",
		baseURLVar: "OPENAI_API_BASE",
	},
	"qwen": {
		modelVar:  "QWEN_MODEL",
		apiKeyVar: "DASHSCOPE_API_KEY",
	},
}

// modelAliases expands short user-facing model names to the identifiers the
// provider CLIs expect. Names not in this table pass through unchanged, so
// newly released models work without a code change.
var modelAliases = map[string]string{
	"opus":       "claude-opus-4-1",
	"sonnet":     "claude-sonnet-4-5",
	"haiku":      "claude-3-5-haiku-latest",
	"gemini-pro": "gemini-2.5-pro",
	"flash":      "gemini-2.5-flash",
}

// resolveModelName applies the alias table, passing unknown names through.
func resolveModelName(name string) string {
	if full, ok := modelAliases[name]; ok {
		return full
	}
	return name
}

// BuildAgentEnv returns the model environment variables for one agent kind.
// Only variables with a configured, non-empty value are included.
func BuildAgentEnv(kind string, cfg ModelConfig) map[string]string {
	provider, ok := providerByAgent[kind]
	if !ok {
		return nil
	}

	env := make(map[string]string)
	if cfg.DefaultModel != "" && provider.modelVar != "" {
		env[provider.modelVar] = resolveModelName(cfg.DefaultModel)
	}
	if cfg.APIKey != "" && provider.apiKeyVar != "" {
		env[provider.apiKeyVar] = cfg.APIKey
	}
	if cfg.BaseURL != "" && provider.baseURLVar != "" {
		env[provider.baseURLVar] = cfg.BaseURL
	}
	if len(env) == 0 {
		return nil
	}
	return env
}

// terminalEnv is applied to every session so agents emit full-color output.
var terminalEnv = map[string]string{
	"TERM":        "xterm-256color",
	"COLORTERM":   "truecolor",
	"FORCE_COLOR": "1",
}

// buildEnviron merges the parent environment with the terminal defaults and
// any number of per-agent overlays. Later overlays win on key conflicts.
func buildEnviron(overlays ...map[string]string) []string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range terminalEnv {
		merged[k] = v
	}
	for _, overlay := range overlays {
		for k, v := range overlay {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	environ := make([]string, 0, len(keys))
	for _, k := range keys {
		environ = append(environ, k+"="+merged[k])
	}
	return environ
}
