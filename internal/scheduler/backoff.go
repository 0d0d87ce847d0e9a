package scheduler

import (
	"time"

	"github.com/serialagent/gateway/internal/config"
)

// cooldownFor computes how long a schedule backs off after consecutiveErrors
// consecutive failed runs (spec §4.5: cooldown = min(max_cooldown, base *
// 2^(failures-1))), reading BaseDelay and MaxDelay from a resolved
// config.BackoffConfig.
func cooldownFor(consecutiveErrors int, cfg config.BackoffConfig) time.Duration {
	if consecutiveErrors <= 0 {
		return 0
	}
	delay := cfg.BaseDelay
	for i := 1; i < consecutiveErrors; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}
