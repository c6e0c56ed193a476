// internal/workers/data-access/reconcile-guardian/config.go
package reconcileguardian

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
