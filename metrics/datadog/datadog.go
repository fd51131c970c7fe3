// Package datadog implements a Datadog backend for the metrics package.
//
// Counters and histogram samples are buffered in memory, submitted on a
// ticker (once a minute by default) and one final time on Close. Histograms
// are published as p50/p90/p95/p99/max/samples gauges.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
	"github.com/melkeydev/mcp-ingest/metrics"
)

type Options struct {
	// JobName becomes tag "job:<name>". Defaults to "mcp-ingest".
	JobName string
	// Tags are extra Datadog tags such as "env:prod".
	Tags []string
	// FlushEvery defaults to 60 seconds.
	FlushEvery time.Duration

	now       func() time.Time
	submitter metricsSubmitter
}

// metricsSubmitter is the part of *datadogV2.MetricsApi the backend uses.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// names maps metric names to Datadog metric names. Unknown names are dropped.
var names = map[string]string{
	metrics.RunsTotal:           "ingest.runs.total",
	metrics.RowsTotal:           "ingest.rows.total",
	metrics.SkippedRecordsTotal: "ingest.records.skipped",
	metrics.StageDuration:       "ingest.stage.duration_seconds",
}

type series struct {
	name string
	tags []string
}

type Backend struct {
	api        metricsSubmitter
	ctx        context.Context
	flushEvery time.Duration
	baseTags   []string
	now        func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}

	mu       sync.Mutex
	counters map[string]float64
	samples  map[string][]float64
	keys     map[string]series
}

func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "mcp-ingest"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	submitter := opts.submitter
	if submitter == nil {
		submitter = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		baseTags:   baseTags,
		now:        now,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		counters:   make(map[string]float64),
		samples:    make(map[string][]float64),
		keys:       make(map[string]series),
	}
	go b.loop()
	return b, nil
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

func (b *Backend) loop() {
	defer close(b.doneCh)
	t := time.NewTicker(b.flushEvery)
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

// Close stops the flush loop and flushes once more. Call it once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	k, ok := b.key(name, labels)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counters[k] += delta
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	k, ok := b.key(name, labels)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples[k] = append(b.samples[k], value)
}

// key returns a stable buffer key for name+labels and records its series.
func (b *Backend) key(name string, labels metrics.Labels) (string, bool) {
	ddName, ok := names[name]
	if !ok {
		return "", false
	}
	tags := labelTags(labels)
	k := ddName + "|" + strings.Join(tags, ",")

	b.mu.Lock()
	if _, seen := b.keys[k]; !seen {
		b.keys[k] = series{name: ddName, tags: withTags(b.baseTags, tags...)}
	}
	b.mu.Unlock()
	return k, true
}

func labelTags(labels metrics.Labels) []string {
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		if v == "" {
			v = "unknown"
		}
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return tags
}

type snapshot struct {
	counters map[string]float64
	samples  map[string][]float64
	keys     map[string]series
}

func (s snapshot) isEmpty() bool {
	return len(s.counters) == 0 && len(s.samples) == 0
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make(map[string]series, len(b.keys))
	for k, v := range b.keys {
		keys[k] = v
	}
	s := snapshot{counters: b.counters, samples: b.samples, keys: keys}
	b.counters = make(map[string]float64)
	b.samples = make(map[string][]float64)
	return s
}

// Flush submits buffered metrics. Buffers are reset even when submission fails.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	out := make([]datadogV2.MetricSeries, 0, len(s.counters)+6*len(s.samples))

	for _, k := range sortedKeys(s.counters) {
		v := s.counters[k]
		if v == 0 {
			continue
		}
		ser := s.keys[k]
		out = append(out, point(ser.name, datadogV2.METRICINTAKETYPE_COUNT, v, ser.tags, nowUnix))
	}

	for _, k := range sortedKeys(s.samples) {
		samples := s.samples[k]
		if len(samples) == 0 {
			continue
		}
		cp := append([]float64(nil), samples...)
		sort.Float64s(cp)

		ser := s.keys[k]
		gauge := func(suffix string, v float64) {
			out = append(out, point(ser.name+"."+suffix, datadogV2.METRICINTAKETYPE_GAUGE, v, ser.tags, nowUnix))
		}
		gauge("p50", percentileNearestRank(cp, 0.50))
		gauge("p90", percentileNearestRank(cp, 0.90))
		gauge("p95", percentileNearestRank(cp, 0.95))
		gauge("p99", percentileNearestRank(cp, 0.99))
		gauge("max", cp[len(cp)-1])
		gauge("samples", float64(len(cp)))
	}
	return out
}

func point(name string, typ datadogV2.MetricIntakeType, v float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: name,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(v)},
		},
		Tags: tags,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	return append(out, extras...)
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

// ParseTagsCSV parses "env:prod,service:ingest" into tags.
func ParseTagsCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ metrics.Backend = (*Backend)(nil)
var _ metrics.Flusher = (*Backend)(nil)
