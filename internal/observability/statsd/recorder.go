package statsd

import (
	"sync"
	"time"
)

// Sample is one metric captured by a Recorder.
type Sample struct {
	Kind  string
	Name  string
	Value float64
	Tags  map[string]string
}

// Recorder is an in-memory Sink, used by tests to assert on emitted metrics.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

var _ Sink = (*Recorder)(nil)

func (r *Recorder) add(kind, name string, value float64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, Sample{Kind: kind, Name: name, Value: value, Tags: cleanTags(tags)})
}

// Count implements Sink.
func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.add("c", name, float64(value), tags)
}

// Gauge implements Sink.
func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.add("g", name, value, tags)
}

// Timing implements Sink.
func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	r.add("ms", name, float64(value)/float64(time.Millisecond), tags)
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}

// Named returns the samples recorded under name.
func (r *Recorder) Named(name string) []Sample {
	var out []Sample
	for _, s := range r.Samples() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// Total sums the values recorded under name whose tags include match.
func (r *Recorder) Total(name string, match map[string]string) float64 {
	var total float64
	for _, s := range r.Named(name) {
		ok := true
		for k, v := range match {
			if s.Tags[k] != v {
				ok = false
				break
			}
		}
		if ok {
			total += s.Value
		}
	}
	return total
}
