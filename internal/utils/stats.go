package utils

import (
	"math"
	"sort"
	"time"
)

// Percentile returns the p-th percentile of samples using the ceiling-rank
// method: sort ascending, rank = ceil(p * n) clamped to [1, n], return the
// value at that rank. p is a fraction in [0, 1]. An empty input returns NaN,
// which callers must treat as "no data" rather than a failure.
func Percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	k := int(math.Ceil(p*float64(len(sorted)))) - 1
	if k < 0 {
		k = 0
	}
	if k > len(sorted)-1 {
		k = len(sorted) - 1
	}
	return sorted[k]
}

// Summary aggregates a completed run into the reported metrics.
type Summary struct {
	TotalRequests   int     `json:"total_requests" yaml:"total-requests"`
	TotalTokens     int     `json:"total_tokens" yaml:"total-tokens"`
	ElapsedSeconds  float64 `json:"elapsed_seconds" yaml:"elapsed-seconds"`
	TokensPerSecond float64 `json:"tokens_per_second" yaml:"tokens-per-second"`
	P50LatencyMs    float64 `json:"p50_latency_ms" yaml:"p50-latency-ms"`
	P99LatencyMs    float64 `json:"p99_latency_ms" yaml:"p99-latency-ms"`
}

// Summarize computes throughput and tail-latency stats over a completed
// result set. Tokens/sec is NaN when elapsed is zero or negative.
func Summarize(results []RequestResult, elapsed time.Duration) Summary {
	summary := Summary{
		TotalRequests:  len(results),
		ElapsedSeconds: elapsed.Seconds(),
	}

	latencies := make([]float64, 0, len(results))
	for _, r := range results {
		summary.TotalTokens += r.Tokens
		latencies = append(latencies, r.Latency.Seconds())
	}

	if elapsed > 0 {
		summary.TokensPerSecond = float64(summary.TotalTokens) / elapsed.Seconds()
	} else {
		summary.TokensPerSecond = math.NaN()
	}

	summary.P50LatencyMs = Percentile(latencies, 0.50) * 1000
	summary.P99LatencyMs = Percentile(latencies, 0.99) * 1000

	return summary
}
