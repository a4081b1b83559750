package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeReaper runs the finished-job reaper.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, reaper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ReaperConfig contains finished-job reaper configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`

	// CompletedMaxAge is how long a completed job stays pollable.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"1h"`

	// FailedMaxAge is how long a failed job stays pollable.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"1h"`

	// MaxRetainedJobs caps finished jobs kept in memory. 0 disables the cap.
	MaxRetainedJobs int `env:"REAPER_MAX_RETAINED_JOBS" envDefault:"1000"`

	// RemoveArtifacts deletes the artifact file of an evicted completed job.
	RemoveArtifacts bool `env:"REAPER_REMOVE_ARTIFACTS" envDefault:"true"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 5*time.Second {
		r.Interval = 5 * time.Second
	}
	if r.CompletedMaxAge < time.Minute {
		r.CompletedMaxAge = time.Minute
	}
	if r.FailedMaxAge < time.Minute {
		r.FailedMaxAge = time.Minute
	}
	if r.MaxRetainedJobs < 0 {
		r.MaxRetainedJobs = 0
	}
}
