// Package metrics aggregates in-process counters for the streaming gateway
// and renders them in Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

type chunkLabel struct {
	policy string
	tier   string
}

// Chunk sizing policies as recorded on served chunks.
const (
	PolicyInitial = "initial"
	PolicySteady  = "steady"
)

// Recorder aggregates HTTP request totals, served-chunk counters, storage
// failure counts, and admission-control rejections. A RWMutex coordinates
// concurrent writers; the in-flight gauge is atomic so the hot path never
// contends on the map lock.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	chunkCount      map[chunkLabel]uint64
	chunkBytes      map[chunkLabel]uint64
	storageFailures map[string]uint64
	rateLimited     uint64
	tokenRejected   uint64
	inflight        atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		chunkCount:      make(map[chunkLabel]uint64),
		chunkBytes:      make(map[chunkLabel]uint64),
		storageFailures: make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared by packages that do not wire
// their own instrumentation.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration by HTTP
// method, normalized path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveChunk records a served chunk by sizing policy and size tier together
// with the number of bytes delivered.
func (r *Recorder) ObserveChunk(policy, tier string, bytes int64) {
	label := chunkLabel{policy: normalizeName(policy), tier: normalizeName(tier)}
	r.mu.Lock()
	r.chunkCount[label]++
	if bytes > 0 {
		r.chunkBytes[label] += uint64(bytes)
	}
	r.mu.Unlock()
}

// ObserveStorageFailure records a failed backend operation ("metadata" or
// "range").
func (r *Recorder) ObserveStorageFailure(operation string) {
	op := normalizeName(operation)
	r.mu.Lock()
	r.storageFailures[op]++
	r.mu.Unlock()
}

// ObserveRateLimited records a request rejected by admission control.
func (r *Recorder) ObserveRateLimited() {
	r.mu.Lock()
	r.rateLimited++
	r.mu.Unlock()
}

// ObserveTokenRejected records a request rejected by URL token verification.
func (r *Recorder) ObserveTokenRejected() {
	r.mu.Lock()
	r.tokenRejected++
	r.mu.Unlock()
}

// StreamStarted increments the in-flight stream gauge.
func (r *Recorder) StreamStarted() {
	r.inflight.Add(1)
}

// StreamFinished decrements the in-flight stream gauge, guarding against
// negative counts when concurrent updates race.
func (r *Recorder) StreamFinished() {
	for {
		current := r.inflight.Load()
		if current <= 0 {
			return
		}
		if r.inflight.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// InflightStreams exposes the current number of requests streaming bytes.
func (r *Recorder) InflightStreams() int64 {
	return r.inflight.Load()
}

// Reset clears all counters and gauges. It is intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.chunkCount = make(map[chunkLabel]uint64)
	r.chunkBytes = make(map[chunkLabel]uint64)
	r.storageFailures = make(map[string]uint64)
	r.rateLimited = 0
	r.tokenRejected = 0
	r.inflight.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting
// label sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	chunkLabels := r.sortedChunkLabels()
	storageOps := r.sortedStorageOps()

	fmt.Fprintln(w, "# HELP wavegate_http_requests_total Total number of HTTP requests processed by the gateway")
	fmt.Fprintln(w, "# TYPE wavegate_http_requests_total counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "wavegate_http_requests_total{method=%q,path=%q,status=%q} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP wavegate_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE wavegate_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "wavegate_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %f\n", label.method, label.path, label.status, r.requestDuration[label].Seconds())
	}

	fmt.Fprintln(w, "# HELP wavegate_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE wavegate_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "wavegate_http_request_duration_seconds_count{method=%q,path=%q,status=%q} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP wavegate_chunks_total Chunks served by sizing policy and size tier")
	fmt.Fprintln(w, "# TYPE wavegate_chunks_total counter")
	for _, label := range chunkLabels {
		fmt.Fprintf(w, "wavegate_chunks_total{policy=%q,tier=%q} %d\n", label.policy, label.tier, r.chunkCount[label])
	}

	fmt.Fprintln(w, "# HELP wavegate_chunk_bytes_total Bytes served by sizing policy and size tier")
	fmt.Fprintln(w, "# TYPE wavegate_chunk_bytes_total counter")
	for _, label := range chunkLabels {
		fmt.Fprintf(w, "wavegate_chunk_bytes_total{policy=%q,tier=%q} %d\n", label.policy, label.tier, r.chunkBytes[label])
	}

	fmt.Fprintln(w, "# HELP wavegate_storage_failures_total Failed object storage operations by kind")
	fmt.Fprintln(w, "# TYPE wavegate_storage_failures_total counter")
	for _, op := range storageOps {
		fmt.Fprintf(w, "wavegate_storage_failures_total{operation=%q} %d\n", op, r.storageFailures[op])
	}

	fmt.Fprintln(w, "# HELP wavegate_rate_limited_total Requests rejected by admission control")
	fmt.Fprintln(w, "# TYPE wavegate_rate_limited_total counter")
	fmt.Fprintf(w, "wavegate_rate_limited_total %d\n", r.rateLimited)

	fmt.Fprintln(w, "# HELP wavegate_token_rejected_total Requests rejected by URL token verification")
	fmt.Fprintln(w, "# TYPE wavegate_token_rejected_total counter")
	fmt.Fprintf(w, "wavegate_token_rejected_total %d\n", r.tokenRejected)

	fmt.Fprintln(w, "# HELP wavegate_inflight_streams Current number of requests streaming bytes")
	fmt.Fprintln(w, "# TYPE wavegate_inflight_streams gauge")
	fmt.Fprintf(w, "wavegate_inflight_streams %d\n", r.inflight.Load())
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedChunkLabels() []chunkLabel {
	labels := make([]chunkLabel, 0, len(r.chunkCount))
	for label := range r.chunkCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].policy != labels[j].policy {
			return labels[i].policy < labels[j].policy
		}
		return labels[i].tier < labels[j].tier
	})
	return labels
}

func (r *Recorder) sortedStorageOps() []string {
	ops := make([]string, 0, len(r.storageFailures))
	for op := range r.storageFailures {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// normalizePath keeps label cardinality bounded: only the fixed routes are
// reported verbatim.
func normalizePath(path string) string {
	switch path {
	case "/stream", "/healthz", "/metrics":
		return path
	default:
		return "other"
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
