package searchauditlog

import (
	"time"

	"financing-workers/internal/ratelimit"
	"financing-workers/pkg/registry"
)

type Config struct {
	Timeout time.Duration
	// Rule limits searches per requesting admin.
	Rule     ratelimit.Rule
	Activity *registry.Activity
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
		Rule:    ratelimit.APIRule,
	}
}
