package scheduler

import (
	"testing"
	"time"

	"github.com/serialagent/gateway/internal/config"
)

func TestCooldownFor(t *testing.T) {
	cfg := config.BackoffConfig{BaseDelay: time.Second, MaxDelay: 30 * time.Second}

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second}, // would be 32s, capped at MaxDelay
		{20, 30 * time.Second},
	}

	for _, tt := range tests {
		got := cooldownFor(tt.failures, cfg)
		if got != tt.want {
			t.Errorf("cooldownFor(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}
