package config

import (
	"strings"
	"time"
)

// StorageConfig controls where artifacts are written.
type StorageConfig struct {
	// Root is the directory all artifacts live in. It is created on startup.
	Root string `env:"STORAGE_ROOT" envDefault:"downloads"`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StorageConfig) Sanitize() {
	s.Root = strings.TrimSpace(s.Root)
	if s.Root == "" {
		s.Root = "downloads"
	}
}

// OrchestratorConfig bounds how much download work runs at once.
type OrchestratorConfig struct {
	// MaxConcurrentJobs is the number of extractors allowed to run in parallel.
	MaxConcurrentJobs int `env:"ORCHESTRATOR_MAX_CONCURRENT_JOBS" envDefault:"4"`

	// MaxQueuedJobs is the number of jobs allowed to wait for a slot before
	// submissions are refused. 0 disables the limit.
	MaxQueuedJobs int `env:"ORCHESTRATOR_MAX_QUEUED_JOBS" envDefault:"64"`

	// JobTimeout bounds a single extractor run.
	JobTimeout time.Duration `env:"ORCHESTRATOR_JOB_TIMEOUT" envDefault:"30m"`

	// InfoTimeout bounds a metadata probe.
	InfoTimeout time.Duration `env:"ORCHESTRATOR_INFO_TIMEOUT" envDefault:"60s"`
}

// Sanitize applies guardrails to orchestrator configuration values.
func (o *OrchestratorConfig) Sanitize() {
	if o.MaxConcurrentJobs < 1 {
		o.MaxConcurrentJobs = 1
	}
	if o.MaxQueuedJobs < 0 {
		o.MaxQueuedJobs = 0
	}
	if o.JobTimeout < time.Second {
		o.JobTimeout = 30 * time.Minute
	}
	if o.InfoTimeout < time.Second {
		o.InfoTimeout = 60 * time.Second
	}
}

// ExtractorConfig configures the per-platform extractors.
type ExtractorConfig struct {
	// YtdlpPath is the yt-dlp executable. Resolved from PATH when empty.
	YtdlpPath string `env:"EXTRACTOR_YTDLP_PATH" envDefault:""`

	// UserAgent is sent on page scrapes and direct media fetches.
	UserAgent string `env:"EXTRACTOR_USER_AGENT" envDefault:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"`

	// HTTPTimeout bounds page scrapes. Media transfers use the job timeout.
	HTTPTimeout time.Duration `env:"EXTRACTOR_HTTP_TIMEOUT" envDefault:"20s"`

	// ProgressInterval is how often yt-dlp progress is relayed.
	ProgressInterval time.Duration `env:"EXTRACTOR_PROGRESS_INTERVAL" envDefault:"500ms"`

	// MaxPageBytes caps how much of a page is read while scraping.
	MaxPageBytes int64 `env:"EXTRACTOR_MAX_PAGE_BYTES" envDefault:"5242880"`

	// MaxMediaBytes caps direct media fetches. 0 disables the cap.
	MaxMediaBytes int64 `env:"EXTRACTOR_MAX_MEDIA_BYTES" envDefault:"4294967296"`

	// DemoMode routes URLs containing "demo" or "test" to a simulated extractor.
	DemoMode bool `env:"EXTRACTOR_DEMO_MODE" envDefault:"false"`

	// DemoStepDelay is the pause between simulated progress reports.
	DemoStepDelay time.Duration `env:"EXTRACTOR_DEMO_STEP_DELAY" envDefault:"1s"`
}

// Sanitize applies guardrails to extractor configuration values.
func (e *ExtractorConfig) Sanitize() {
	e.YtdlpPath = strings.TrimSpace(e.YtdlpPath)
	e.UserAgent = strings.TrimSpace(e.UserAgent)
	if e.HTTPTimeout <= 0 {
		e.HTTPTimeout = 20 * time.Second
	}
	if e.ProgressInterval < 100*time.Millisecond {
		e.ProgressInterval = 100 * time.Millisecond
	}
	if e.MaxPageBytes < 64*1024 {
		e.MaxPageBytes = 64 * 1024
	}
	if e.MaxMediaBytes < 0 {
		e.MaxMediaBytes = 0
	}
	if e.DemoStepDelay < 0 {
		e.DemoStepDelay = 0
	}
}
