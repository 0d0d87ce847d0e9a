package providers

import (
	"context"
	"testing"
)

type stubProvider struct {
	name  string
	model string
}

func (s *stubProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{}, nil
}

func (s *stubProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error) {
	return &ChatResponse{}, nil
}

func (s *stubProvider) DefaultModel() string { return s.model }
func (s *stubProvider) Name() string         { return s.name }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "groq", model: "llama"})

	p, ok := r.Get("groq")
	if !ok || p.DefaultModel() != "llama" {
		t.Fatalf("Get(groq) = (%v, %v), want the registered provider", p, ok)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("nope"); ok {
		t.Fatal("Get should return false for an unregistered provider")
	}
}

func TestRegistryListIsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "zeta"})
	r.Register(&stubProvider{name: "alpha"})
	r.Register(&stubProvider{name: "mid"})

	got := r.List()
	want := []string{"alpha", "mid", "zeta"}
	for i, id := range want {
		if got[i] != id {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
}

func TestRegistryInfersAnthropicCapabilities(t *testing.T) {
	r := NewRegistry()
	r.Register(&AnthropicProvider{})

	d, ok := r.Descriptor("anthropic")
	if !ok {
		t.Fatal("expected a descriptor for the registered anthropic provider")
	}
	if d.Kind != KindAnthropic {
		t.Fatalf("Kind = %q, want %q", d.Kind, KindAnthropic)
	}
	if d.Capabilities.SupportsTools != ToolSupportStrict {
		t.Fatalf("SupportsTools = %q, want strict_json for anthropic", d.Capabilities.SupportsTools)
	}
	if !d.Capabilities.SupportsVision {
		t.Fatal("anthropic should be inferred as vision-capable")
	}
}

func TestRegistryInfersOpenAICompatCapabilities(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "groq", model: "llama"})

	d, _ := r.Descriptor("groq")
	if d.Kind != KindOpenAICompat {
		t.Fatalf("Kind = %q, want %q", d.Kind, KindOpenAICompat)
	}
	if d.Capabilities.SupportsTools != ToolSupportBasic {
		t.Fatalf("SupportsTools = %q, want basic for a generic provider", d.Capabilities.SupportsTools)
	}
}

func TestRegistryResolveWithExplicitModel(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "groq", model: "default-model"})

	p, model, err := r.Resolve("groq/llama-70b")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Name() != "groq" || model != "llama-70b" {
		t.Fatalf("Resolve = (%q, %q), want (groq, llama-70b)", p.Name(), model)
	}
}

func TestRegistryResolveDefaultsToProviderModel(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "groq", model: "default-model"})

	_, model, err := r.Resolve("groq")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if model != "default-model" {
		t.Fatalf("model = %q, want the provider's default model", model)
	}
}

func TestRegistryResolveUnknownProvider(t *testing.T) {
	r := NewRegistry()
	if _, _, err := r.Resolve("nope/model"); err == nil {
		t.Fatal("expected an error resolving an unregistered provider")
	}
}

func TestRegistryResolveEmptyReference(t *testing.T) {
	r := NewRegistry()
	if _, _, err := r.Resolve(""); err == nil {
		t.Fatal("expected an error resolving an empty reference")
	}
}

func TestRegistryFirstWithToolSupportOrdersBySortedID(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "zeta", model: "m"})
	r.Register(&stubProvider{name: "alpha", model: "m"})

	p, model, ok := r.FirstWithToolSupport(ToolSupportNone)
	if !ok || p.Name() != "alpha" || model != "m" {
		t.Fatalf("FirstWithToolSupport = (%v, %q, %v), want alpha first", p, model, ok)
	}
}

func TestRegistryFirstWithToolSupportRequiresCapability(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "basic", model: "m"}) // inferred as ToolSupportBasic

	if _, _, ok := r.FirstWithToolSupport(ToolSupportStrict); ok {
		t.Fatal("expected no provider to meet a strict_json requirement")
	}
}

func TestRegistryFirstWithToolSupportEmptyRegistry(t *testing.T) {
	r := NewRegistry()
	if _, _, ok := r.FirstWithToolSupport(ToolSupportNone); ok {
		t.Fatal("expected ok=false for an empty registry")
	}
}
