package main

import (
	"time"

	"github.com/vllm-tools/mpobench/internal/utils"
)

// Benchmark holds the fully validated runtime configuration for one run.
// It is constructed once from the command line and never mutated.
type Benchmark struct {
	BaseURLs      []string
	APIKey        string
	ModelName     string
	Prompt        string
	MaxTokens     int
	TotalRequests int
	Concurrency   int
	Timeout       time.Duration
	Format        string
	OutputFile    string
}

// Report echoes the run configuration alongside the aggregate metrics. It is
// the unit rendered as text, JSON or YAML.
type Report struct {
	BaseURLs      []string `json:"base_urls" yaml:"base-urls"`
	Model         string   `json:"model" yaml:"model"`
	Concurrency   int      `json:"concurrency" yaml:"concurrency"`
	LatencyMs     float64  `json:"network_latency_ms" yaml:"network-latency-ms"`
	utils.Summary `yaml:",inline"`
}
