// internal/workers/application/send-notification/config.go
package sendnotification

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
		Timeout: 30 * time.Second,
	}
}
