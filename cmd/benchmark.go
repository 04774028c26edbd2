package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/vllm-tools/mpobench/internal/api"
	"github.com/vllm-tools/mpobench/internal/utils"
)

// run executes the configured benchmark end to end and returns the report.
func (benchmark *Benchmark) run(ctx context.Context) (*Report, error) {
	// Discover model name if not provided
	if benchmark.ModelName == "" {
		discovered, err := api.DiscoverModel(ctx, benchmark.BaseURLs[0], benchmark.APIKey)
		if err != nil {
			return nil, fmt.Errorf("discovering model: %w", err)
		}
		log.Info().Str("model", discovered).Msg("discovered model")
		benchmark.ModelName = discovered
	}

	// Estimate base network latency; a failure degrades to 0 rather than
	// aborting the run.
	latency, err := api.MeasureLatency(benchmark.BaseURLs[0], 5)
	if err != nil {
		log.Warn().Err(err).Msg("latency preflight failed")
		latency = 0
	}

	benchmark.printHeader(latency)

	client := api.NewClient(benchmark.Timeout)
	completionReq := api.CompletionRequest{
		Model:       benchmark.ModelName,
		Prompt:      benchmark.Prompt,
		MaxTokens:   benchmark.MaxTokens,
		Temperature: 0,
		Stream:      false,
	}

	bar := progressbar.NewOptions(benchmark.TotalRequests,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("requests"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	runner := &utils.Runner{
		Config: utils.RunConfig{
			BaseURLs:      benchmark.BaseURLs,
			TotalRequests: benchmark.TotalRequests,
			Concurrency:   benchmark.Concurrency,
			Timeout:       benchmark.Timeout,
		},
		Send: func(ctx context.Context, baseURL string) (utils.RequestResult, error) {
			start := time.Now()
			resp, err := client.Complete(ctx, baseURL, completionReq)
			if err != nil {
				return utils.RequestResult{}, err
			}
			return utils.RequestResult{
				Latency: time.Since(start),
				Tokens:  resp.CompletionTokens(),
			}, nil
		},
		OnResult: func(utils.RequestResult) {
			bar.Add(1)
		},
	}

	runResults, err := runner.Run(ctx)
	bar.Finish()
	if err != nil {
		return nil, err
	}

	return &Report{
		BaseURLs:    benchmark.BaseURLs,
		Model:       benchmark.ModelName,
		Concurrency: benchmark.Concurrency,
		LatencyMs:   latency,
		Summary:     utils.Summarize(runResults.Results, runResults.Elapsed),
	}, nil
}

func (benchmark *Benchmark) printHeader(latency float64) {
	fmt.Fprintf(os.Stderr, "Model: %s\n", benchmark.ModelName)
	fmt.Fprintf(os.Stderr, "Base URLs: %s\n", strings.Join(benchmark.BaseURLs, ", "))
	fmt.Fprintf(os.Stderr, "Max tokens: %d\n", benchmark.MaxTokens)
	fmt.Fprintf(os.Stderr, "Requests: %d, concurrency: %d\n", benchmark.TotalRequests, benchmark.Concurrency)
	fmt.Fprintf(os.Stderr, "Network latency (ms): %.2f\n\n", latency)
}
