package reviewapplication

import (
	"time"

	"financing-workers/pkg/registry"
)

type Config struct {
	Timeout  time.Duration
	Activity *registry.Activity
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
