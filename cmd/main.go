package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/vllm-tools/mpobench/internal/utils"
)

// defaultPrompt is a long, repetitive brief that keeps generation
// deterministic at temperature 0 and lands in the 512-1024 input token
// range for small instruction-tuned models.
var defaultPrompt = strings.Repeat(
	"You are given a technical brief about systems performance. "+
		"Summarize the key constraints, then list the risks, then provide a short plan. "+
		"Focus on determinism, memory safety, and reproducibility. "+
		"Do not speculate beyond the given facts. "+
		"Repeat: Focus on determinism, memory safety, and reproducibility. "+
		"The system runs on a single GPU with limited memory. "+
		"Avoid excessive buffering and keep the plan minimal. "+
		"Latency, especially tail latency, is the main concern. "+
		"The workload should be stable and comparable across runs. "+
		"The benchmark must be fair and avoid hidden optimizations. "+
		"Explain what conclusions are valid and what are out of scope. "+
		"Now provide the requested output in three short sections. ", 12)

func main() {
	baseURLs := pflag.StringP("base-urls", "u", "http://127.0.0.1:8000", "Comma-separated base URLs (one for single-process, two for double)")
	apiKey := pflag.StringP("api-key", "k", "", "API key for authentication (optional)")
	model := pflag.StringP("model", "m", "", "Model to benchmark (discovered from the server when empty)")
	prompt := pflag.StringP("prompt", "p", defaultPrompt, "Prompt sent with every request")
	maxTokens := pflag.IntP("max-tokens", "t", 128, "Maximum number of tokens to generate per request")
	totalRequests := pflag.IntP("total-requests", "n", 60, "Total number of requests to send")
	concurrency := pflag.IntP("concurrency", "c", 1, "Number of in-flight requests, must be 1 or 2")
	timeoutS := pflag.Float64("timeout-s", 120.0, "Per-request timeout in seconds")
	format := pflag.StringP("format", "f", "text", "Report format: text, json or yaml")
	output := pflag.StringP("output", "o", "", "Write the report to this file instead of stdout")
	logLevel := pflag.Int("loglevel", int(zerolog.WarnLevel), "log level, 0 for debug, 1 info, 2 warn, ...")
	help := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *help {
		fmt.Printf("Usage of %s:\n", os.Args[0])
		pflag.PrintDefaults()
		os.Exit(0)
	}

	zerolog.SetGlobalLevel(zerolog.Level(*logLevel))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli})

	benchmark := &Benchmark{
		BaseURLs:      parseBaseURLs(*baseURLs),
		APIKey:        *apiKey,
		ModelName:     *model,
		Prompt:        *prompt,
		MaxTokens:     *maxTokens,
		TotalRequests: *totalRequests,
		Concurrency:   *concurrency,
		Timeout:       time.Duration(*timeoutS * float64(time.Second)),
		Format:        *format,
		OutputFile:    *output,
	}

	// Reject bad configuration before any network activity.
	runConfig := utils.RunConfig{
		BaseURLs:      benchmark.BaseURLs,
		TotalRequests: benchmark.TotalRequests,
		Concurrency:   benchmark.Concurrency,
		Timeout:       benchmark.Timeout,
	}
	if err := runConfig.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	switch benchmark.Format {
	case "text", "json", "yaml":
	default:
		log.Fatal().Msgf("unknown output format %q, want text, json or yaml", benchmark.Format)
	}

	report, err := benchmark.run(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("benchmark run failed")
	}

	rendered, err := report.Render(benchmark.Format)
	if err != nil {
		log.Fatal().Err(err).Msg("rendering report")
	}
	if err := writeReport(rendered, benchmark.OutputFile); err != nil {
		log.Fatal().Err(err).Msg("writing report")
	}
}

// parseBaseURLs splits a comma-separated URL list, dropping empty entries.
func parseBaseURLs(raw string) []string {
	var urls []string
	for _, u := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}
