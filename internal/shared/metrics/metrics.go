package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	httpRequests      = newCounterVec("http_requests_total", "HTTP requests by method and status class", "method", "status")
	httpDuration      = newHistogram("http_request_duration_ms", "HTTP request latency in milliseconds", []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000})
	llmCalls          = newCounterVec("llm_calls_total", "LLM proxy calls by function and outcome", "function", "outcome")
	llmDuration       = newHistogram("llm_call_duration_ms", "LLM call latency in milliseconds", []float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	sanitizeHits      = newCounterVec("sanitize_rule_hits_total", "Sanitizer rule matches", "rule")
	autosaveFlushes   = newCounterVec("autosave_flushes_total", "Autosave draft flushes by outcome", "outcome")
	analyses          = newCounterVec("analyses_total", "Analyses by terminal status", "status")
	subscriptionGates = newCounterVec("subscription_gate_denied_total", "Requests denied by subscription gating", "feature")
	workerJobs        = newCounterVec("analysis_jobs_total", "Queue messages handled by the worker", "source", "outcome")
)

// ObserveHTTP records one served request.
func ObserveHTTP(method string, status int, d time.Duration) {
	httpRequests.Inc(method, statusClass(status))
	httpDuration.Observe(float64(d.Microseconds()) / 1000.0)
}

// ObserveLLMCall records an LLM proxy call. outcome is ok, fallback or error.
func ObserveLLMCall(function, outcome string, d time.Duration) {
	llmCalls.Inc(function, outcome)
	llmDuration.Observe(float64(d.Microseconds()) / 1000.0)
}

// AddSanitizeHits adds per-rule match counts.
func AddSanitizeHits(hits map[string]int) {
	for rule, n := range hits {
		if n > 0 {
			sanitizeHits.Add(uint64(n), rule)
		}
	}
}

// IncAutosaveFlush counts a draft flush.
func IncAutosaveFlush(outcome string) {
	autosaveFlushes.Inc(outcome)
}

// IncAnalysis counts an analysis reaching the given status.
func IncAnalysis(status string) {
	analyses.Inc(status)
}

// IncSubscriptionDenied counts a request rejected for lack of entitlement.
func IncSubscriptionDenied(feature string) {
	subscriptionGates.Inc(feature)
}

// IncWorkerJob counts a queue message by source (sqs, amqp, lambda) and
// outcome (completed, failed, dropped).
func IncWorkerJob(source, outcome string) {
	workerJobs.Inc(source, outcome)
}

// Middleware records request count and latency.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ObserveHTTP(c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	httpRequests.write(&buf)
	httpDuration.write(&buf)
	llmCalls.write(&buf)
	llmDuration.write(&buf)
	sanitizeHits.write(&buf)
	autosaveFlushes.write(&buf)
	analyses.write(&buf)
	subscriptionGates.write(&buf)
	workerJobs.write(&buf)
	return buf.String()
}

func statusClass(status int) string {
	if status < 100 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

type counterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec(name, help string, labels ...string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: make(map[string]uint64)}
}

func (v *counterVec) Inc(labelValues ...string) {
	v.Add(1, labelValues...)
}

func (v *counterVec) Add(n uint64, labelValues ...string) {
	key := strings.Join(labelValues, "\x00")
	v.mu.Lock()
	v.values[key] += n
	v.mu.Unlock()
}

func (v *counterVec) write(buf *bytes.Buffer) {
	v.mu.Lock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	snapshot := make([]uint64, len(keys))
	for i, k := range keys {
		snapshot[i] = v.values[k]
	}
	v.mu.Unlock()

	fmt.Fprintf(buf, "# HELP %s %s\n", v.name, v.help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", v.name)
	for i, k := range keys {
		values := strings.Split(k, "\x00")
		pairs := make([]string, 0, len(v.labels))
		for j, label := range v.labels {
			val := ""
			if j < len(values) {
				val = values[j]
			}
			pairs = append(pairs, fmt.Sprintf("%s=%q", label, val))
		}
		fmt.Fprintf(buf, "%s{%s} %d\n", v.name, strings.Join(pairs, ","), snapshot[i])
	}
}

type histogram struct {
	name    string
	help    string
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(name, help string, buckets []float64) *histogram {
	return &histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	if value < 0 {
		value = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) write(buf *bytes.Buffer) {
	h.mu.Lock()
	counts := append([]uint64(nil), h.counts...)
	sum, count := h.sum, h.count
	h.mu.Unlock()

	fmt.Fprintf(buf, "# HELP %s %s\n", h.name, h.help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", h.name)
	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", h.name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", h.name, count)
	fmt.Fprintf(buf, "%s_sum %s\n", h.name, formatFloat(sum))
	fmt.Fprintf(buf, "%s_count %d\n", h.name, count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
