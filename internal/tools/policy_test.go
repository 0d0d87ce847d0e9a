package tools

import (
	"testing"

	"github.com/serialagent/gateway/internal/config"
)

func newTestRegistry(names ...string) *Registry {
	r := NewRegistry()
	for _, n := range names {
		r.Register(&stubTool{name: n})
	}
	return r
}

func TestApplyProfileFullReturnsAllTools(t *testing.T) {
	pe := NewPolicyEngine(&config.ToolsConfig{})
	all := []string{"exec", "read_file", "web_search"}
	got := pe.applyProfile(all, "full")
	if len(got) != 3 {
		t.Fatalf("applyProfile(full) = %v, want all tools", got)
	}
}

func TestApplyProfileEmptyIsFull(t *testing.T) {
	pe := NewPolicyEngine(&config.ToolsConfig{})
	all := []string{"exec"}
	got := pe.applyProfile(all, "")
	if len(got) != 1 {
		t.Fatalf("applyProfile(\"\") = %v, want all tools", got)
	}
}

func TestApplyProfileMinimalRestricts(t *testing.T) {
	pe := NewPolicyEngine(&config.ToolsConfig{})
	all := []string{"exec", "session_status", "read_file"}
	got := pe.applyProfile(all, "minimal")
	if len(got) != 1 || got[0] != "session_status" {
		t.Fatalf("applyProfile(minimal) = %v, want [session_status]", got)
	}
}

func TestApplyProfileUnknownFallsBackToFull(t *testing.T) {
	pe := NewPolicyEngine(&config.ToolsConfig{})
	all := []string{"exec", "read_file"}
	got := pe.applyProfile(all, "bogus-profile")
	if len(got) != 2 {
		t.Fatalf("applyProfile(unknown) = %v, want all tools as a safe fallback", got)
	}
}

func TestExpandSpecExpandsGroup(t *testing.T) {
	available := []string{"exec", "process", "read_file", "web_search"}
	got := expandSpec(available, []string{"group:runtime"})
	want := map[string]bool{"exec": true, "process": true}
	for _, g := range got {
		if !want[g] {
			t.Errorf("expandSpec included unexpected tool %q", g)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expandSpec(group:runtime) = %v, want exec and process", got)
	}
}

func TestIntersectWithSpecKeepsOnlyMatching(t *testing.T) {
	current := []string{"exec", "read_file", "web_search"}
	got := intersectWithSpec(current, []string{"exec", "web_search"})
	if len(got) != 2 {
		t.Fatalf("intersectWithSpec = %v, want exec and web_search", got)
	}
}

func TestSubtractSpecRemovesGroupMembers(t *testing.T) {
	current := []string{"exec", "process", "read_file"}
	got := subtractSpec(current, []string{"group:runtime"})
	if len(got) != 1 || got[0] != "read_file" {
		t.Fatalf("subtractSpec(group:runtime) = %v, want [read_file]", got)
	}
}

func TestSubtractSetRemovesExactNames(t *testing.T) {
	current := []string{"exec", "gateway", "read_file"}
	got := subtractSet(current, subagentDenyList)
	for _, g := range got {
		if g == "exec" || g == "gateway" {
			t.Fatalf("subtractSet did not remove denied tool: %v", got)
		}
	}
}

func TestUnionWithSpecAddsBackWithoutDuplicating(t *testing.T) {
	current := []string{"read_file"}
	all := []string{"read_file", "exec", "process"}
	got := unionWithSpec(current, all, []string{"group:runtime", "read_file"})
	if len(got) != 3 {
		t.Fatalf("unionWithSpec = %v, want 3 unique tools", got)
	}
}

func TestResolveAliasMapsKnownAlias(t *testing.T) {
	if got := resolveAlias("bash"); got != "exec" {
		t.Fatalf("resolveAlias(bash) = %q, want exec", got)
	}
}

func TestResolveAliasPassesThroughUnknown(t *testing.T) {
	if got := resolveAlias("read_file"); got != "read_file" {
		t.Fatalf("resolveAlias(read_file) = %q, want unchanged", got)
	}
}

func TestFilterToolsAppliesGlobalProfile(t *testing.T) {
	registry := newTestRegistry("exec", "session_status", "read_file")
	pe := NewPolicyEngine(&config.ToolsConfig{Profile: "minimal"})

	defs := pe.FilterTools(registry, "agent1", "anthropic", nil, nil, false, false)
	if len(defs) != 1 || defs[0].Function.Name != "session_status" {
		t.Fatalf("FilterTools(minimal) = %v, want just session_status", defs)
	}
}

func TestFilterToolsGlobalDenyWins(t *testing.T) {
	registry := newTestRegistry("exec", "read_file")
	pe := NewPolicyEngine(&config.ToolsConfig{Deny: []string{"exec"}})

	defs := pe.FilterTools(registry, "agent1", "anthropic", nil, nil, false, false)
	for _, d := range defs {
		if d.Function.Name == "exec" {
			t.Fatal("exec should have been denied")
		}
	}
}

func TestFilterToolsSubagentDenyListApplied(t *testing.T) {
	registry := newTestRegistry("exec", "read_file", "gateway")
	pe := NewPolicyEngine(&config.ToolsConfig{})

	defs := pe.FilterTools(registry, "agent1", "anthropic", nil, nil, true, false)
	for _, d := range defs {
		if d.Function.Name == "exec" || d.Function.Name == "gateway" {
			t.Fatalf("subagent deny list should have removed %q", d.Function.Name)
		}
	}
}

func TestFilterToolsAgentAllowRestricts(t *testing.T) {
	registry := newTestRegistry("exec", "read_file", "web_search")
	pe := NewPolicyEngine(&config.ToolsConfig{})
	spec := &config.ToolPolicySpec{Allow: []string{"read_file"}}

	defs := pe.FilterTools(registry, "agent1", "anthropic", spec, nil, false, false)
	if len(defs) != 1 || defs[0].Function.Name != "read_file" {
		t.Fatalf("FilterTools with agent allow = %v, want just read_file", defs)
	}
}
