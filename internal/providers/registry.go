package providers

import (
	"fmt"
	"sort"
	"sync"
)

// ToolSupport describes how well a provider handles tool/function calling
// (spec §3 "Provider descriptor").
type ToolSupport string

const (
	ToolSupportNone     ToolSupport = "none"
	ToolSupportBasic    ToolSupport = "basic"
	ToolSupportStrict   ToolSupport = "strict_json"
)

// Capabilities describes what a provider/model combination can do.
type Capabilities struct {
	SupportsTools       ToolSupport
	SupportsStreaming   bool
	SupportsJSONMode    bool
	SupportsVision      bool
	ContextWindowTokens int
	MaxOutputTokens     int
}

// Kind is the provider's wire-protocol family.
type Kind string

const (
	KindOpenAICompat Kind = "openai_compat"
	KindAnthropic    Kind = "anthropic"
	KindGoogle       Kind = "google"
	KindAzureOpenAI  Kind = "azure_openai"
	KindBedrockStub  Kind = "bedrock_stub"
)

// Descriptor is the static metadata the router and readiness endpoint read
// about a registered provider (spec §3 "Provider descriptor").
type Descriptor struct {
	ID           string
	Kind         Kind
	BaseURL      string
	DefaultModel string
	Capabilities Capabilities
}

// Registry holds every configured Provider, built once at startup and
// treated as immutable afterward (spec §4.2, §5 "provider registry is built
// once and cloned by reference").
type Registry struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	descriptors map[string]Descriptor
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers:   make(map[string]Provider),
		descriptors: make(map[string]Descriptor),
	}
}

// Register adds a provider under its Name(), inferring a Descriptor from
// well-known adapter types. Call RegisterWithDescriptor for precise control.
func (r *Registry) Register(p Provider) {
	desc := Descriptor{
		ID:           p.Name(),
		Kind:         inferKind(p),
		DefaultModel: p.DefaultModel(),
		Capabilities: inferCapabilities(p),
	}
	r.RegisterWithDescriptor(p, desc)
}

// RegisterWithDescriptor adds a provider with an explicit descriptor.
func (r *Registry) RegisterWithDescriptor(p Provider, desc Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	r.descriptors[p.Name()] = desc
}

// Get returns a provider by id.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// Descriptor returns the static descriptor for a registered provider.
func (r *Registry) Descriptor(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[id]
	return d, ok
}

// List returns all provider ids, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Descriptors returns a snapshot of every registered provider's descriptor.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve parses a "provider_id/model" reference and returns the provider
// plus the model id (spec §4.2 resolution step 1).
func (r *Registry) Resolve(ref string) (Provider, string, error) {
	id, model, ok := splitProviderModel(ref)
	if !ok {
		return nil, "", fmt.Errorf("invalid provider/model reference: %q", ref)
	}
	p, ok := r.Get(id)
	if !ok {
		return nil, "", fmt.Errorf("unknown provider: %q", id)
	}
	if model == "" {
		model = p.DefaultModel()
	}
	return p, model, nil
}

// FirstWithToolSupport returns the first registered provider (in sorted
// order) whose capabilities meet or exceed the given tool support level
// (spec §4.2 resolution step 5, capability fallback).
func (r *Registry) FirstWithToolSupport(min ToolSupport) (Provider, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		d := r.descriptors[id]
		if toolSupportRank(d.Capabilities.SupportsTools) >= toolSupportRank(min) {
			return r.providers[id], d.DefaultModel, true
		}
	}
	return nil, "", false
}

func toolSupportRank(s ToolSupport) int {
	switch s {
	case ToolSupportStrict:
		return 2
	case ToolSupportBasic:
		return 1
	default:
		return 0
	}
}

func splitProviderModel(ref string) (id, model string, ok bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '/' {
			return ref[:i], ref[i+1:], true
		}
	}
	if ref == "" {
		return "", "", false
	}
	return ref, "", true
}

func inferKind(p Provider) Kind {
	switch p.(type) {
	case *AnthropicProvider:
		return KindAnthropic
	case *BedrockProvider:
		return KindBedrockStub
	default:
		return KindOpenAICompat
	}
}

func inferCapabilities(p Provider) Capabilities {
	caps := Capabilities{
		SupportsTools:     ToolSupportBasic,
		SupportsStreaming: true,
		ContextWindowTokens: 128_000,
	}
	if _, ok := p.(*AnthropicProvider); ok {
		caps.SupportsTools = ToolSupportStrict
		caps.SupportsVision = true
		caps.ContextWindowTokens = 200_000
	}
	return caps
}
