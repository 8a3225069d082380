package autoassignreviewer

import (
	"time"

	"financing-workers/pkg/registry"
)

type Config struct {
	Timeout time.Duration
	// DefaultAssigner is recorded as the assigner when the process gives none.
	DefaultAssigner string
	Activity        *registry.Activity
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         15 * time.Second,
		DefaultAssigner: "system",
	}
}
