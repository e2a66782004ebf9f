// Package statsd sends pipeline metrics to a DogStatsD agent.
//
// Counters map to Count and durations to Distribution, with labels rendered
// as "key:value" tags. The client buffers and sends in the background;
// Flush forces the buffer out and Close releases the socket.
package statsd

import (
	"fmt"
	"sort"
	"strings"

	"sparkify/internal/metrics"

	dogstatsd "github.com/DataDog/datadog-go/v5/statsd"
)

// Config holds DogStatsD backend configuration.
type Config struct {
	// Addr is the agent address, e.g. "127.0.0.1:8125" or "unix:///var/run/datadog/dsd.socket".
	Addr string
	// Namespace prefixes every metric name. Defaults to "sparkify.".
	Namespace string
	// Tags are applied to every metric.
	Tags []string
}

// client is the subset of dogstatsd.ClientInterface used here.
type client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Distribution(name string, value float64, tags []string, rate float64) error
	Flush() error
	Close() error
}

// Backend implements metrics.Backend over a DogStatsD client.
type Backend struct {
	client client
}

// NewBackend dials the agent. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("statsd: addr is required")
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "sparkify."
	}
	c, err := dogstatsd.New(cfg.Addr, dogstatsd.WithNamespace(ns), dogstatsd.WithTags(cfg.Tags))
	if err != nil {
		return nil, fmt.Errorf("statsd: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter implements metrics.Backend. Fractional deltas are truncated.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	_ = b.client.Count(name, int64(delta), labelsToTags(labels), 1)
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	_ = b.client.Distribution(name, value, labelsToTags(labels), 1)
}

// Flush implements metrics.Backend.
func (b *Backend) Flush() error {
	return b.client.Flush()
}

// Close flushes and closes the client.
func (b *Backend) Close() error {
	return b.client.Close()
}

func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+strings.ReplaceAll(v, ",", "_"))
	}
	sort.Strings(out)
	return out
}

var _ metrics.Backend = (*Backend)(nil)
