package terminal

import (
	"fmt"
	"os/exec"
)

// AgentSpec describes one launchable CLI agent kind.
type AgentSpec struct {
	// Command is the argv used to launch the agent.
	Command []string

	// Env holds static environment variables that put the agent into
	// autonomous mode. Model and credential variables are derived separately
	// from the configured provider settings.
	Env map[string]string

	// InstallHint is shown in the fallback shell banner when the agent
	// executable is not on PATH.
	InstallHint string

	// KickoffPrompt, when non-empty, is sent to the agent after startup to
	// begin unattended operation.
	KickoffPrompt string
}

// builtinAgents is the catalog of supported agent kinds.
// All agents are configured for autonomous operation with no permission prompts.
var builtinAgents = map[string]AgentSpec{
	"claude": {
		Command: []string{"claude", "--dangerously-skip-permissions"},
		Env: map[string]string{
			"CLAUDE_CODE_ENTRYPOINT": "1",
		},
		InstallHint: "npm install -g @anthropic-ai/claude-code",
		KickoffPrompt: "Read the CLAUDE.md file in this directory for project context and instructions.\n" +
			"Then autonomously start working on the VLM fine-tuning task described there.\n" +
			"Create progress checkpoints, generate training code, and keep working until the task is complete.\n" +
			"Do not ask for permission - execute all necessary operations autonomously.",
	},
	"gemini": {
		Command: []string{"gemini"},
		Env: map[string]string{
			"GEMINI_AUTO_APPROVE": "true",
			"GEMINI_SANDBOX_RUN":  "true",
		},
		InstallHint: "npm install -g @anthropic-ai/gemini-cli",
		KickoffPrompt: "Read the GEMINI.md file for project context and task instructions.\n" +
			"Start the VLM fine-tuning workflow autonomously. Generate code, run training, and report progress.\n" +
			"Execute all operations without asking for confirmation.",
	},
	"codex": {
		Command: []string{"codex"},
		Env: map[string]string{
			"CODEX_AUTO_APPROVE": "true",
		},
		InstallHint: "npm install -g @openai/codex",
	},
	"qwen": {
		Command: []string{"qwen"},
		Env: map[string]string{
			"QWEN_AUTO_RUN": "true",
		},
		InstallHint: "pip install qwen-cli",
	},
	"aider": {
		Command: []string{"aider", "--yes", "--no-suggest-shell-commands"},
		Env: map[string]string{
			"AIDER_AUTO_COMMITS": "true",
			"AIDER_YES":          "true",
			"AIDER_AUTO_LINT":    "true",
		},
		InstallHint: "pip install aider-chat",
		KickoffPrompt: "Read the project context from README.md and any .md files.\n" +
			"Start implementing the VLM fine-tuning code autonomously.\n" +
			"Commit changes as you go and keep working until complete.",
	},
	"bash": {
		Command: []string{"bash"},
	},
	"python": {
		Command: []string{"python3"},
	},
}

// Catalog resolves agent kinds to launch commands, environment, and kickoff
// prompts. Unknown kinds fall back to a shell so the user always gets a
// working terminal with a diagnostic banner.
type Catalog struct {
	agents map[string]AgentSpec

	// lookPath is swappable for tests.
	lookPath func(string) (string, error)
}

// NewCatalog creates a catalog with the built-in agent kinds.
func NewCatalog() *Catalog {
	return &Catalog{
		agents:   builtinAgents,
		lookPath: exec.LookPath,
	}
}

// Lookup returns the catalog entry for an agent kind.
func (c *Catalog) Lookup(kind string) (AgentSpec, bool) {
	spec, ok := c.agents[kind]
	return spec, ok
}

// StaticEnv returns the agent's static autonomous-mode environment variables.
func (c *Catalog) StaticEnv(kind string) map[string]string {
	return c.agents[kind].Env
}

// KickoffPrompt returns the kickoff prompt for kinds that support unattended
// operation. The second return is false when no prompt is registered.
func (c *Catalog) KickoffPrompt(kind string) (string, bool) {
	spec, ok := c.agents[kind]
	if !ok || spec.KickoffPrompt == "" {
		return "", false
	}
	return spec.KickoffPrompt, true
}

// ResolveCommand returns the argv for launching an agent kind. If the agent's
// executable is not on PATH (or the kind is unknown), it returns a shell that
// prints an install banner and then stays interactive, so the session starts
// either way and the diagnostic is visible as ordinary terminal output.
func (c *Catalog) ResolveCommand(kind string) []string {
	spec, ok := c.agents[kind]
	if !ok {
		return c.fallbackShell(kind, fmt.Sprintf("Install the %s CLI", kind))
	}

	if _, err := c.lookPath(spec.Command[0]); err != nil {
		hint := spec.InstallHint
		if hint == "" {
			hint = fmt.Sprintf("Install the %s CLI", kind)
		}
		return c.fallbackShell(kind, hint)
	}

	return spec.Command
}

// fallbackShell builds the banner-then-shell command used when an agent
// executable cannot be resolved.
func (c *Catalog) fallbackShell(kind, hint string) []string {
	script := fmt.Sprintf(`
echo ""
echo "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
echo "  Agent '%s' is not installed"
echo "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
echo ""
echo "  To install, run:"
echo "    %s"
echo ""
echo "  Starting bash shell instead..."
echo ""
exec bash
`, kind, hint)
	return []string{"bash", "-c", script}
}
