// Package prompush pushes pipeline metrics to a Prometheus Pushgateway.
//
// Batch runs end before a scraper would see them, so every metric lives in a
// private registry that Flush pushes under the pipeline's job grouping key.
package prompush

import (
	"fmt"

	"sparkify/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	counters map[string]*prometheus.CounterVec
	hists    map[string]*prometheus.HistogramVec
	labels   map[string][]string
}

// NewBackend registers the pipeline collectors. gatewayURL is required;
// jobName defaults to "sparkify".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "sparkify"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		counters:   map[string]*prometheus.CounterVec{},
		hists:      map[string]*prometheus.HistogramVec{},
		labels:     map[string][]string{},
	}

	counters := []struct {
		name, help string
		labels     []string
	}{
		{metrics.StepTotal, "Task attempts and skips, by task and outcome.", []string{"step", "status"}},
		{metrics.RetryTotal, "Retries scheduled after a failed attempt, by task.", []string{"step"}},
		{metrics.RunTotal, "DAG runs by outcome.", []string{"status"}},
		{metrics.CheckTotal, "Data quality checks by outcome.", []string{"status"}},
	}
	for _, c := range counters {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: c.name, Help: c.help}, c.labels)
		if err := b.reg.Register(vec); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", c.name, err)
		}
		b.counters[c.name] = vec
		b.labels[c.name] = c.labels
	}

	hists := []struct {
		name, help string
		labels     []string
		buckets    []float64
	}{
		{metrics.StepDuration, "Task attempt duration in seconds.", []string{"step", "status"}, prometheus.ExponentialBuckets(0.5, 2, 12)},
		{metrics.RunDuration, "DAG run duration in seconds.", []string{"status"}, prometheus.ExponentialBuckets(1, 2, 14)},
	}
	for _, h := range hists {
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: h.name, Help: h.help, Buckets: h.buckets}, h.labels)
		if err := b.reg.Register(vec); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", h.name, err)
		}
		b.hists[h.name] = vec
		b.labels[h.name] = h.labels
	}
	return b, nil
}

func (b *Backend) values(name string, labels metrics.Labels) []string {
	keys := b.labels[name]
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = labels[k]
	}
	return out
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	vec, ok := b.counters[name]
	if !ok || delta <= 0 {
		return
	}
	vec.WithLabelValues(b.values(name, labels)...).Add(delta)
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	vec, ok := b.hists[name]
	if !ok {
		return
	}
	vec.WithLabelValues(b.values(name, labels)...).Observe(value)
}

// Flush pushes the registry to the Pushgateway, replacing the job's group.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}

var _ metrics.Backend = (*Backend)(nil)
