package turn

import (
	"github.com/serialagent/gateway/internal/config"
	"github.com/serialagent/gateway/internal/providers"
)

// Input is the public entry point into the turn runtime (spec §4.1
// "Input: TurnInput{session_key, session_id, user_message, model?, agent?,
// routing_profile?, cancel_handle}").
type Input struct {
	SessionKey     string
	SessionID      string
	UserMessage    string
	Images         []providers.ImageContent
	Model          string // explicit "provider/model" override, bypasses the router
	Agent          string // agent id, selects config.AgentSpec
	RoutingProfile string
	RunID          string // caller-supplied; generated if empty
}

// Result is what Run returns once a turn reaches a terminal state.
type Result struct {
	RunID      string
	Content    string
	Iterations int
	Provider   string
	Model      string
	Usage      providers.Usage
	Stopped    bool // true if cancelled before completion
}

// AgentConfig is the resolved, per-turn view of an agent's settings — the
// fields runtime.go actually consults, already merged from
// config.AgentDefaults and an optional config.AgentSpec override.
type AgentConfig struct {
	ID                string
	Workspace         string
	RestrictWorkspace bool
	MaxToolIterations int
	ContextWindow     int
	MaxTokens         int
	Temperature       float64
	ToolPolicy        *config.ToolPolicySpec
	Compaction        *config.CompactionConfig
	ContextPruning    *config.ContextPruningConfig
	SystemPrompt      string
	ThinkingLevel     string // "", "off", "low", "medium", "high" — "" leaves the option unset
}

// ResolveAgentConfig merges an agent's explicit spec over the shared
// defaults, the way the teacher's agent manager builds a per-agent Loop
// (spec §4.1 preparation phase, trimmed of the multi-tenant bootstrap path).
func ResolveAgentConfig(id string, defaults config.AgentDefaults, spec *config.AgentSpec) AgentConfig {
	ac := AgentConfig{
		ID:                id,
		Workspace:         defaults.Workspace,
		RestrictWorkspace: defaults.RestrictToWorkspace,
		MaxToolIterations: defaults.MaxToolIterations,
		ContextWindow:     defaults.ContextWindow,
		MaxTokens:         defaults.MaxTokens,
		Temperature:       defaults.Temperature,
		Compaction:        defaults.Compaction,
		ContextPruning:    defaults.ContextPruning,
	}
	if ac.MaxToolIterations <= 0 {
		ac.MaxToolIterations = 20
	}
	if ac.ContextWindow <= 0 {
		ac.ContextWindow = 200_000
	}
	if ac.MaxTokens <= 0 {
		ac.MaxTokens = 8192
	}

	if spec == nil {
		return ac
	}
	if spec.Workspace != "" {
		ac.Workspace = spec.Workspace
	}
	if spec.MaxToolIterations > 0 {
		ac.MaxToolIterations = spec.MaxToolIterations
	}
	if spec.ContextWindow > 0 {
		ac.ContextWindow = spec.ContextWindow
	}
	if spec.MaxTokens > 0 {
		ac.MaxTokens = spec.MaxTokens
	}
	if spec.Temperature > 0 {
		ac.Temperature = spec.Temperature
	}
	if spec.Tools != nil {
		ac.ToolPolicy = spec.Tools
	}
	return ac
}

