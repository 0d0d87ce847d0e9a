package config

// RouterConfig configures the smart router (C4) — explicit override, profile
// tiers, auto-classification, and the role map fallback (spec §4.2).
type RouterConfig struct {
	Enabled        bool                `json:"enabled,omitempty"`
	DefaultProfile string              `json:"default_profile,omitempty"` // auto|eco|premium|free|reasoning (default "auto")
	Tiers          RouterTiers         `json:"tiers,omitempty"`
	RoleMap        map[string]string   `json:"role_map,omitempty"` // role -> "provider/model"
	Classifier     RouterClassifierCfg `json:"classifier,omitempty"`
}

// RouterTiers lists candidate "provider/model" strings per tier, tried in order.
type RouterTiers struct {
	Simple    []string `json:"simple,omitempty"`
	Complex   []string `json:"complex,omitempty"`
	Reasoning []string `json:"reasoning,omitempty"`
	Free      []string `json:"free,omitempty"`
}

// RouterClassifierCfg configures the embedding-based tier classifier.
type RouterClassifierCfg struct {
	Enabled            bool    `json:"enabled,omitempty"`
	EmbedProvider      string  `json:"embed_provider,omitempty"`       // provider id used for Embed()
	TimeoutMS          int     `json:"timeout_ms,omitempty"`           // default 500
	CacheSize          int     `json:"cache_size,omitempty"`           // LRU entries, default 256
	CacheTTLSeconds    int     `json:"cache_ttl_seconds,omitempty"`    // default 300
	MinScore           float64 `json:"min_score,omitempty"`            // below this, fall back to complex (default 0.2)
	AgenticLenThreshold int    `json:"agentic_len_threshold,omitempty"` // prompt_length above which escalate to complex min (default 4000)
	RatePerSecond      float64 `json:"rate_per_second,omitempty"`      // embed-call rate limit (default 5)
}

// DefaultRouterConfig returns the router config with spec-conservative defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Enabled:        false,
		DefaultProfile: "auto",
		Classifier: RouterClassifierCfg{
			TimeoutMS:           500,
			CacheSize:           256,
			CacheTTLSeconds:     300,
			MinScore:            0.2,
			AgenticLenThreshold: 4000,
			RatePerSecond:       5,
		},
	}
}
