package config

// SchedulerConfig configures the cron-driven schedule executor (C8, spec §4.5).
type SchedulerConfig struct {
	Enabled          bool   `json:"enabled,omitempty"`
	StorageFile      string `json:"storage_file,omitempty"`       // default "schedules.json" under workspace root
	DefaultTimezone  string `json:"default_timezone,omitempty"`   // IANA zone, default "UTC"
	MaxCatchupRuns   int    `json:"max_catchup_runs,omitempty"`   // hard default 5 (spec §9 Open Question)
	TickInterval     string `json:"tick_interval,omitempty"`      // heap-wake poll floor, default "1s"
	FailureThreshold int    `json:"failure_threshold,omitempty"`  // consecutive failures before derived status flips to "error" (default 3)
	Backoff          CronConfig `json:"backoff,omitempty"`
	Fetch            FetchDefaults `json:"fetch,omitempty"`
}

// FetchDefaults are the default bounds applied to a schedule's source fetches
// when the schedule itself doesn't override them.
type FetchDefaults struct {
	TimeoutMS    int    `json:"timeout_ms,omitempty"`    // default 10000
	UserAgent    string `json:"user_agent,omitempty"`    // default "SerialAgent/1.0 (+schedule-fetch)"
	MaxSizeBytes int64  `json:"max_size_bytes,omitempty"` // default 2MB
}

// DefaultSchedulerConfig returns conservative defaults per spec §4.5/§9.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:          true,
		StorageFile:      "schedules.json",
		DefaultTimezone:  "UTC",
		MaxCatchupRuns:   5,
		TickInterval:     "1s",
		FailureThreshold: 3,
		Backoff:          CronConfig{MaxRetries: 3, RetryBaseDelay: "1m", RetryMaxDelay: "1h"},
		Fetch: FetchDefaults{
			TimeoutMS:    10_000,
			UserAgent:    "SerialAgent/1.0 (+schedule-fetch)",
			MaxSizeBytes: 2 << 20,
		},
	}
}
