package turn

import (
	"testing"

	"github.com/serialagent/gateway/internal/config"
)

func TestResolveAgentConfigAppliesDefaultsWithNilSpec(t *testing.T) {
	defaults := config.AgentDefaults{Workspace: "/ws", RestrictToWorkspace: true}
	ac := ResolveAgentConfig("default", defaults, nil)

	if ac.ID != "default" || ac.Workspace != "/ws" || !ac.RestrictWorkspace {
		t.Fatalf("unexpected resolved config: %+v", ac)
	}
	if ac.MaxToolIterations != 20 {
		t.Fatalf("MaxToolIterations = %d, want the default of 20", ac.MaxToolIterations)
	}
	if ac.ContextWindow != 200_000 {
		t.Fatalf("ContextWindow = %d, want the default of 200000", ac.ContextWindow)
	}
	if ac.MaxTokens != 8192 {
		t.Fatalf("MaxTokens = %d, want the default of 8192", ac.MaxTokens)
	}
}

func TestResolveAgentConfigHonorsExplicitDefaults(t *testing.T) {
	defaults := config.AgentDefaults{MaxToolIterations: 5, ContextWindow: 50_000, MaxTokens: 1024}
	ac := ResolveAgentConfig("a", defaults, nil)
	if ac.MaxToolIterations != 5 || ac.ContextWindow != 50_000 || ac.MaxTokens != 1024 {
		t.Fatalf("explicit non-zero defaults should not be overridden: %+v", ac)
	}
}

func TestResolveAgentConfigSpecOverridesDefaults(t *testing.T) {
	defaults := config.AgentDefaults{Workspace: "/default-ws", MaxToolIterations: 10, Temperature: 0.5}
	spec := &config.AgentSpec{
		Workspace:         "/agent-ws",
		MaxToolIterations: 30,
		ContextWindow:     100_000,
		MaxTokens:         4096,
		Temperature:       0.9,
		Tools:             &config.ToolPolicySpec{Profile: "full"},
	}

	ac := ResolveAgentConfig("custom", defaults, spec)
	if ac.Workspace != "/agent-ws" {
		t.Errorf("Workspace = %q, want the spec override", ac.Workspace)
	}
	if ac.MaxToolIterations != 30 {
		t.Errorf("MaxToolIterations = %d, want the spec override of 30", ac.MaxToolIterations)
	}
	if ac.ContextWindow != 100_000 {
		t.Errorf("ContextWindow = %d, want the spec override", ac.ContextWindow)
	}
	if ac.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want the spec override", ac.MaxTokens)
	}
	if ac.Temperature != 0.9 {
		t.Errorf("Temperature = %f, want the spec override", ac.Temperature)
	}
	if ac.ToolPolicy == nil || ac.ToolPolicy.Profile != "full" {
		t.Errorf("ToolPolicy = %+v, want the spec's tool policy", ac.ToolPolicy)
	}
}

func TestResolveAgentConfigSpecZeroValuesDontOverride(t *testing.T) {
	defaults := config.AgentDefaults{Workspace: "/default-ws", MaxToolIterations: 10}
	spec := &config.AgentSpec{} // all zero values

	ac := ResolveAgentConfig("custom", defaults, spec)
	if ac.Workspace != "/default-ws" {
		t.Errorf("Workspace = %q, want the default preserved when the spec leaves it unset", ac.Workspace)
	}
	if ac.MaxToolIterations != 10 {
		t.Errorf("MaxToolIterations = %d, want the default preserved", ac.MaxToolIterations)
	}
}
