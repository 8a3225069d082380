package reconcileinvestment

import (
	"time"

	"financing-workers/pkg/registry"
)

type Config struct {
	Timeout time.Duration
	// ReconcileAfter is the idle time before a sweep picks up an open entry.
	// It must exceed the process-investment job timeout.
	ReconcileAfter time.Duration
	Activity       *registry.Activity
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        2 * time.Minute,
		ReconcileAfter: 5 * time.Minute,
	}
}
