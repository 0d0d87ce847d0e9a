// Package router resolves a concrete (provider, model) pair for each turn
// request and records why (spec §4.2 "Provider Registry + Smart Router").
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/serialagent/gateway/internal/config"
	"github.com/serialagent/gateway/internal/providers"
)

// Request describes what the caller knows before a turn's provider is
// resolved (spec §4.2 "Given (explicit_model?, role?, agent?,
// routing_profile?, prompt?)").
type Request struct {
	ExplicitModel  string // "provider_id/model", bypasses routing entirely
	Role           string // defaults to "executor"
	RoutingProfile string // auto|eco|premium|free|reasoning
	Prompt         string
	NeedsTools     bool
}

// Resolution is the outcome of Router.Resolve: a concrete provider/model
// plus the bookkeeping needed to log and explain the decision.
type Resolution struct {
	Provider providers.Provider
	Model    string
	Tier     string
	Step     string
	Bypassed bool
}

// Router implements the five-step resolution order against a provider
// registry, config-defined tiers/role-map, and an optional classifier.
type Router struct {
	registry   *providers.Registry
	cfg        config.RouterConfig
	classifier *Classifier
	log        *DecisionLog
}

// New builds a Router. classifier may be nil if no provider exposes Embed
// or the classifier is disabled in config.
func New(registry *providers.Registry, cfg config.RouterConfig, classifier *Classifier) *Router {
	return &Router{
		registry:   registry,
		cfg:        cfg,
		classifier: classifier,
		log:        NewDecisionLog(100),
	}
}

// Decisions returns the router's recent decision log.
func (r *Router) Decisions() []Decision {
	return r.log.Recent()
}

// Resolve runs the five-step resolution order and logs the outcome.
func (r *Router) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	start := time.Now()

	// Step 1: explicit override bypasses the router entirely.
	if req.ExplicitModel != "" {
		p, model, err := r.registry.Resolve(req.ExplicitModel)
		if err != nil {
			return nil, fmt.Errorf("explicit model override: %w", err)
		}
		res := &Resolution{Provider: p, Model: model, Step: "explicit_override", Bypassed: true}
		r.record(req, res, 0, 0, start)
		return res, nil
	}

	profile := req.RoutingProfile
	if profile == "" {
		profile = r.cfg.DefaultProfile
	}
	if profile == "" {
		profile = "auto"
	}

	// Step 2: non-auto profile maps to a fixed tier.
	if r.cfg.Enabled && profile != "auto" {
		tier := profileToTier(profile)
		if res := r.resolveTier(tier); res != nil {
			res.Step = "profile_tier"
			r.record(req, res, 0, 0, start)
			return res, nil
		}
	}

	// Step 3: auto profile with a warmed classifier.
	if r.cfg.Enabled && profile == "auto" && r.classifier != nil {
		clsStart := time.Now()
		tier, score, ok := r.classifier.Classify(ctx, req.Prompt)
		latency := time.Since(clsStart)
		if ok {
			minScore := r.cfg.Classifier.MinScore
			if minScore <= 0 {
				minScore = 0.2
			}
			if score < minScore {
				tier = "complex"
			}
			threshold := r.cfg.Classifier.AgenticLenThreshold
			if threshold <= 0 {
				threshold = 4000
			}
			if len(req.Prompt) > threshold && tierRank(tier) < tierRank("complex") {
				tier = "complex"
			}
			if res := r.resolveTier(tier); res != nil {
				res.Step = "auto_classify"
				r.record(req, res, score, latency, start)
				return res, nil
			}
		}
	}

	// Step 4: role map.
	role := req.Role
	if role == "" {
		role = "executor"
	}
	if ref, ok := r.cfg.RoleMap[role]; ok && ref != "" {
		p, model, err := r.registry.Resolve(ref)
		if err == nil {
			res := &Resolution{Provider: p, Model: model, Step: "role_map"}
			r.record(req, res, 0, 0, start)
			return res, nil
		}
	}

	// Step 5: capability fallback.
	minSupport := providers.ToolSupportNone
	if req.NeedsTools {
		minSupport = providers.ToolSupportBasic
	}
	if p, model, ok := r.registry.FirstWithToolSupport(minSupport); ok {
		res := &Resolution{Provider: p, Model: model, Step: "capability_fallback"}
		r.record(req, res, 0, 0, start)
		return res, nil
	}

	return nil, fmt.Errorf("router: no provider available to satisfy request")
}

// ResolveRole looks up a role directly in the configured role map, bypassing
// the five-step order. Used by the compactor to find the "summariser" role
// without running prompt classification for a non-chat request (spec §4.4
// "The summariser is the provider mapped to the summariser role...").
func (r *Router) ResolveRole(role string) (providers.Provider, string, bool) {
	ref, ok := r.cfg.RoleMap[role]
	if !ok || ref == "" {
		return nil, "", false
	}
	p, model, err := r.registry.Resolve(ref)
	if err != nil {
		return nil, "", false
	}
	return p, model, true
}

// resolveTier tries a tier's candidate list, falling back through
// [requested, complex, reasoning, simple] when a tier is empty (step 2).
func (r *Router) resolveTier(tier string) *Resolution {
	for _, t := range fallbackOrder(tier) {
		candidates := tierCandidates(r.cfg.Tiers, t)
		for _, ref := range candidates {
			p, model, err := r.registry.Resolve(ref)
			if err == nil {
				return &Resolution{Provider: p, Model: model, Tier: t}
			}
		}
	}
	return nil
}

func (r *Router) record(req Request, res *Resolution, score float64, latency time.Duration, start time.Time) {
	r.log.Record(Decision{
		Timestamp:             time.Now(),
		PromptSnippet:         snippet(req.Prompt),
		Profile:               req.RoutingProfile,
		Tier:                  res.Tier,
		Provider:              res.Provider.Name(),
		Model:                 res.Model,
		ClassificationScore:   score,
		ClassificationLatency: latency,
		ResolutionLatency:     time.Since(start),
		Bypassed:              res.Bypassed,
		Step:                  res.Step,
	})
}

func tierCandidates(tiers config.RouterTiers, tier string) []string {
	switch tier {
	case "simple":
		return tiers.Simple
	case "complex":
		return tiers.Complex
	case "reasoning":
		return tiers.Reasoning
	case "free":
		return tiers.Free
	default:
		return nil
	}
}

func profileToTier(profile string) string {
	switch profile {
	case "eco":
		return "simple"
	case "premium":
		return "complex"
	case "free":
		return "free"
	case "reasoning":
		return "reasoning"
	default:
		return "complex"
	}
}

func tierRank(tier string) int {
	switch tier {
	case "simple":
		return 0
	case "free":
		return 0
	case "complex":
		return 1
	case "reasoning":
		return 2
	default:
		return 0
	}
}
