package processinvestment

import (
	"time"

	"financing-workers/internal/ratelimit"
	"financing-workers/pkg/registry"
)

type Config struct {
	Timeout time.Duration
	// Rule limits attempts per investor.
	Rule     ratelimit.Rule
	Activity *registry.Activity
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Rule:    ratelimit.InvestRule(0, 0),
	}
}
