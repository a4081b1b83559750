// Package model defines the core data types shared by the mediafetch engine.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the current status of a download job.
type JobStatus string

const (
	// JobStatusQueued indicates the job was accepted and waits for a worker slot.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates an extractor is retrieving the media.
	JobStatusRunning JobStatus = "running"
	// JobStatusFinalizing indicates the transfer finished and post-processing is in progress.
	JobStatusFinalizing JobStatus = "finalizing"
	// JobStatusCompleted indicates the artifact is ready for pickup.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job ended without an artifact.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is one of the known values.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusFinalizing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsActive reports whether a task is still working on the job.
func (s JobStatus) IsActive() bool {
	return s == JobStatusRunning || s == JobStatusFinalizing
}

var allowedTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:     {JobStatusRunning, JobStatusFailed},
	JobStatusRunning:    {JobStatusFinalizing, JobStatusFailed},
	JobStatusFinalizing: {JobStatusCompleted, JobStatusFailed},
}

// CanTransitionTo reports whether moving from s to next is a legal forward step.
// Rewriting the same non-terminal status is allowed so progress can be updated.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if s == next {
		return true
	}
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Job represents one submitted download request and its tracked lifecycle state.
type Job struct {
	ID              string            `json:"id"`
	Status          JobStatus         `json:"status"`
	ProgressPercent int               `json:"progressPercent"`
	URL             string            `json:"url"`
	FormatHint      string            `json:"formatHint"`
	Platform        PlatformKind      `json:"platform"`
	Result          *ExtractionResult `json:"result,omitempty"`
	ErrorDetail     string            `json:"errorDetail,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	StartedAt       *time.Time        `json:"startedAt,omitempty"`
	FinishedAt      *time.Time        `json:"finishedAt,omitempty"`
}

// NewJob builds a queued job for the given inputs.
func NewJob(id, url, formatHint string, platform PlatformKind, now time.Time) *Job {
	return &Job{
		ID:         id,
		Status:     JobStatusQueued,
		URL:        url,
		FormatHint: formatHint,
		Platform:   platform,
		CreatedAt:  now,
	}
}

// Clone returns a deep copy of the job so callers never share mutable state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

// Validate checks the job's internal invariants.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("job id is required")
	}
	if !j.Status.Valid() {
		return fmt.Errorf("invalid job status: %q", j.Status)
	}
	if j.ProgressPercent < 0 || j.ProgressPercent > 100 {
		return fmt.Errorf("progress %d out of range", j.ProgressPercent)
	}

	switch j.Status {
	case JobStatusCompleted:
		if j.Result == nil || j.ErrorDetail != "" {
			return errors.New("completed job must carry a result and no error detail")
		}
		if j.ProgressPercent != 100 {
			return errors.New("completed job must report 100 percent")
		}
	case JobStatusFailed:
		if j.ErrorDetail == "" || j.Result != nil {
			return errors.New("failed job must carry an error detail and no result")
		}
	default:
		if j.Result != nil || j.ErrorDetail != "" {
			return errors.New("non-terminal job cannot carry a result or error detail")
		}
		if j.ProgressPercent == 100 {
			return errors.New("non-terminal job cannot report 100 percent")
		}
	}
	return nil
}

// ValidateTransition checks that next is a legal successor state of prev.
func ValidateTransition(prev, next *Job) error {
	if prev.ID != next.ID || prev.URL != next.URL || prev.FormatHint != next.FormatHint {
		return errors.New("job identity and inputs are immutable")
	}
	if !prev.Status.CanTransitionTo(next.Status) {
		return fmt.Errorf("illegal transition %s -> %s", prev.Status, next.Status)
	}
	if next.ProgressPercent < prev.ProgressPercent && next.Status != JobStatusFailed {
		return fmt.Errorf("progress cannot decrease (%d -> %d)", prev.ProgressPercent, next.ProgressPercent)
	}
	return next.Validate()
}

// Complete moves the job to completed with the given result.
func (j *Job) Complete(result *ExtractionResult, now time.Time) {
	j.Status = JobStatusCompleted
	j.ProgressPercent = 100
	j.Result = result
	j.ErrorDetail = ""
	j.FinishedAt = &now
}

// Fail moves the job to failed with the given cause.
func (j *Job) Fail(detail string, now time.Time) {
	if strings.TrimSpace(detail) == "" {
		detail = "unknown error"
	}
	j.Status = JobStatusFailed
	j.Result = nil
	j.ErrorDetail = detail
	j.FinishedAt = &now
}

// JobStats summarises the registry by status.
type JobStats struct {
	Queued     int `json:"queued"`
	Running    int `json:"running"`
	Finalizing int `json:"finalizing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// Add counts one job in the matching bucket.
func (s *JobStats) Add(status JobStatus) {
	switch status {
	case JobStatusQueued:
		s.Queued++
	case JobStatusRunning:
		s.Running++
	case JobStatusFinalizing:
		s.Finalizing++
	case JobStatusCompleted:
		s.Completed++
	case JobStatusFailed:
		s.Failed++
	}
	s.Total++
}
