package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	runStartedTotal   atomic.Uint64
	runCompletedTotal atomic.Uint64
	runFailedTotal    atomic.Uint64
	runCancelledTotal atomic.Uint64

	gapsCreatedTotal atomic.Uint64
	gapsMergedTotal  atomic.Uint64

	answersSubmittedTotal atomic.Uint64
	embedFailedTotal      atomic.Uint64
	feedbackTotal         atomic.Uint64

	runDuration = newHistogram([]float64{500, 1000, 2500, 5000, 10000, 30000, 60000, 180000, 600000})
)

// IncRunStarted increments the analysis-run started counter.
func IncRunStarted() {
	runStartedTotal.Add(1)
}

// IncRunCompleted increments the analysis-run completed counter.
func IncRunCompleted() {
	runCompletedTotal.Add(1)
}

// IncRunFailed increments the analysis-run failed counter.
func IncRunFailed() {
	runFailedTotal.Add(1)
}

// IncRunCancelled increments the analysis-run cancelled counter.
func IncRunCancelled() {
	runCancelledTotal.Add(1)
}

// AddGapsCreated adds to the created-gap counter.
func AddGapsCreated(n int) {
	if n > 0 {
		gapsCreatedTotal.Add(uint64(n))
	}
}

// AddGapsMerged adds to the merged-gap counter.
func AddGapsMerged(n int) {
	if n > 0 {
		gapsMergedTotal.Add(uint64(n))
	}
}

// IncAnswerSubmitted increments the answer counter.
func IncAnswerSubmitted() {
	answersSubmittedTotal.Add(1)
}

// IncEmbedFailed increments the failed-embedding counter.
func IncEmbedFailed() {
	embedFailedTotal.Add(1)
}

// IncFeedback increments the feedback counter.
func IncFeedback() {
	feedbackTotal.Add(1)
}

// ObserveRunDurationMs records an analysis run duration in milliseconds.
func ObserveRunDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	runDuration.Observe(value)
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
	writeCounter(&buf, "analysis_run_started_total", "Total analysis runs started", runStartedTotal.Load())
	writeCounter(&buf, "analysis_run_completed_total", "Total analysis runs completed", runCompletedTotal.Load())
	writeCounter(&buf, "analysis_run_failed_total", "Total analysis runs failed", runFailedTotal.Load())
	writeCounter(&buf, "analysis_run_cancelled_total", "Total analysis runs cancelled", runCancelledTotal.Load())
	writeCounter(&buf, "gaps_created_total", "Total knowledge gaps created", gapsCreatedTotal.Load())
	writeCounter(&buf, "gaps_merged_total", "Total gap candidates merged into existing gaps", gapsMergedTotal.Load())
	writeCounter(&buf, "answers_submitted_total", "Total gap answers submitted", answersSubmittedTotal.Load())
	writeCounter(&buf, "answer_embed_failed_total", "Total answer embedding upserts that failed", embedFailedTotal.Load())
	writeCounter(&buf, "feedback_recorded_total", "Total feedback events recorded", feedbackTotal.Load())
	writeHistogram(&buf, "analysis_run_duration_ms", "Analysis run duration in milliseconds", runDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
