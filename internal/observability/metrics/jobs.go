// Package metrics holds the engine's metric names and tag conventions.
package metrics

import (
	"time"

	obserrors "github.com/target/mediafetch/internal/observability/errors"
	"github.com/target/mediafetch/internal/observability/statsd"
)

// Result tag values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Job transitions reported through EmitJobLifecycle.
const (
	TransitionSubmitted = "submitted"
	TransitionStarted   = "started"
	TransitionCompleted = "completed"
	TransitionFailed    = "failed"
	TransitionCanceled  = "canceled"
	TransitionRejected  = "rejected"
)

// JobMetric describes one job lifecycle event.
type JobMetric struct {
	Platform   string
	Format     string
	Transition string
	Result     string
	Duration   time.Duration
	Bytes      int64
	Err        error
}

// EmitJobLifecycle counts job.transition and, when known, times job.duration
// and counts job.bytes.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"platform":   in.Platform,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Format != "" {
		tags["format"] = in.Format
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
	if in.Bytes > 0 {
		sink.Count("job.bytes", in.Bytes, CloneTags(tags))
	}
}

// EmitInfoLookup counts one content-info request. cache is "hit", "miss" or
// "off".
func EmitInfoLookup(sink statsd.Sink, platform, cache string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"platform": platform, "cache": cache, "result": ResultSuccess}
	if err != nil {
		tags["result"] = ResultError
		tags["error_class"] = obserrors.Classify(err)
	}
	sink.Count("info.lookup", 1, tags)
}

// EmitPoolGauges reports worker pool occupancy.
func EmitPoolGauges(sink statsd.Sink, active, waiting int) {
	if sink == nil {
		return
	}
	sink.Gauge("pool.active", float64(active), nil)
	sink.Gauge("pool.waiting", float64(waiting), nil)
}

// CloneTags returns a shallow copy so sinks may retain the map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
