// Package datadog submits pipeline metrics to the Datadog metrics API.
//
// Metrics are buffered in memory and submitted on a ticker (default once a
// minute) so long runs and scheduled runs produce a time series rather than a
// single spike at exit. Close stops the ticker and flushes the tail.
//
// Counters are submitted as COUNT series. Durations are reduced to nearest
// rank percentile gauges (p50, p90, p95, p99, max, samples) per tag set.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"sparkify/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Datadog names for the metrics this backend understands. Anything else is
// ignored.
var seriesNames = map[string]string{
	metrics.StepTotal:    "sparkify.step.total",
	metrics.StepDuration: "sparkify.step.duration_seconds",
	metrics.RetryTotal:   "sparkify.step.retries",
	metrics.RunTotal:     "sparkify.run.total",
	metrics.RunDuration:  "sparkify.run.duration_seconds",
	metrics.CheckTotal:   "sparkify.quality.checks",
}

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "sparkify".
	JobName string

	// Tags are extra Datadog tags (e.g. "env:prod", "team:data").
	Tags []string

	// FlushEvery defaults to 60 seconds.
	FlushEvery time.Duration

	// Test seams.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// seriesKey identifies one buffered series: a Datadog metric name plus its
// extra tags, sorted and joined.
type seriesKey struct {
	metric string
	tags   string
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once

	baseTags  []string
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu      sync.Mutex
	counts  map[seriesKey]float64
	samples map[seriesKey][]float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client, which
// reads DD_API_KEY and DD_SITE from the environment. Network errors surface
// from Flush, not here. Cancelling parent does not stop submissions; Close
// ends the backend.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	if parent == nil {
		return nil, wrapInitErr(fmt.Errorf("nil context"))
	}
	job := opts.JobName
	if job == "" {
		job = "sparkify"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}
	submitter := opts.submitter
	if submitter == nil {
		submitter = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(context.WithoutCancel(parent)),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counts:     make(map[seriesKey]float64),
		samples:    make(map[seriesKey][]float64),
	}
	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs one final Flush. Later calls only
// flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
	})
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	metric, ok := seriesNames[name]
	if !ok || delta <= 0 {
		return
	}
	k := seriesKey{metric: metric, tags: labelTags(labels)}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[k] += delta
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	metric, ok := seriesNames[name]
	if !ok || value < 0 {
		return
	}
	k := seriesKey{metric: metric, tags: labelTags(labels)}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples[k] = append(b.samples[k], value)
}

// labelTags renders labels as sorted "k:v" tags joined by commas. The job
// label is dropped since it is already a base tag.
func labelTags(labels metrics.Labels) string {
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		if k == "job" {
			continue
		}
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return strings.Join(tags, ",")
}

type snapshot struct {
	counts  map[seriesKey]float64
	samples map[seriesKey][]float64
}

func (s snapshot) isEmpty() bool {
	return len(s.counts) == 0 && len(s.samples) == 0
}

// snapshotAndReset detaches the buffers under the lock.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{counts: b.counts, samples: b.samples}
	b.counts = make(map[seriesKey]float64)
	b.samples = make(map[seriesKey][]float64)
	return s
}

// Flush submits buffered metrics and resets the buffers. Buffers are reset
// even when submission fails.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	if err != nil {
		return fmt.Errorf("datadog submit: %w", err)
	}
	return nil
}

// buildSeries is pure: no locks, no network, no clock. Output is sorted by
// metric name then tags.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.counts)+6*len(s.samples))

	for k, v := range s.counts {
		if v == 0 {
			continue
		}
		series = append(series, point(k.metric, datadogV2.METRICINTAKETYPE_COUNT, v, b.tagsFor(k), nowUnix))
	}
	for k, samples := range s.samples {
		addPercentiles(&series, k.metric, b.tagsFor(k), samples, nowUnix)
	}

	sort.Slice(series, func(i, j int) bool {
		if series[i].Metric != series[j].Metric {
			return series[i].Metric < series[j].Metric
		}
		return strings.Join(series[i].Tags, ",") < strings.Join(series[j].Tags, ",")
	})
	return series
}

func (b *Backend) tagsFor(k seriesKey) []string {
	if k.tags == "" {
		return withTags(b.baseTags)
	}
	return withTags(b.baseTags, strings.Split(k.tags, ",")...)
}

// addPercentiles appends p50, p90, p95, p99, max and samples gauges. It sorts
// a copy of samples.
func addPercentiles(series *[]datadogV2.MetricSeries, metric string, tags []string, samples []float64, nowUnix int64) {
	if len(samples) == 0 {
		return
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	gauge := datadogV2.METRICINTAKETYPE_GAUGE
	*series = append(*series,
		point(metric+".p50", gauge, percentileNearestRank(cp, 0.50), tags, nowUnix),
		point(metric+".p90", gauge, percentileNearestRank(cp, 0.90), tags, nowUnix),
		point(metric+".p95", gauge, percentileNearestRank(cp, 0.95), tags, nowUnix),
		point(metric+".p99", gauge, percentileNearestRank(cp, 0.99), tags, nowUnix),
		point(metric+".max", gauge, cp[len(cp)-1], tags, nowUnix),
		point(metric+".samples", gauge, float64(len(cp)), tags, nowUnix),
	)
}

func point(metric string, typ datadogV2.MetricIntakeType, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,team:data".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wrapInitErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("datadog metrics init: %w", err)
}
