package workers

import (
	"time"

	"hostel-admissions/internal/common/config"
)

// Config is the per-task slice of the workers config section.
type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

// ConfigFor reads the entry for taskType; missing entries are disabled.
func ConfigFor(cfg *config.Config, taskType string) Config {
	w, ok := cfg.Workers[taskType]
	if !ok {
		return Config{}
	}
	return Config{
		Enabled:       w.Enabled,
		MaxJobsActive: w.MaxJobsActive,
		Timeout:       time.Duration(w.Timeout) * time.Millisecond,
	}
}
