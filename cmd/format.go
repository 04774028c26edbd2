package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v4"
)

// Text renders the fixed-format human-readable report.
func (report *Report) Text() string {
	var sb strings.Builder
	sb.WriteString("=== vLLM multi-process overhead benchmark ===\n")
	fmt.Fprintf(&sb, "Base URLs: %s\n", strings.Join(report.BaseURLs, ", "))
	fmt.Fprintf(&sb, "Total requests: %d\n", report.TotalRequests)
	fmt.Fprintf(&sb, "Concurrency: %d\n", report.Concurrency)
	fmt.Fprintf(&sb, "Total elapsed wall time (s): %.3f\n", report.ElapsedSeconds)
	fmt.Fprintf(&sb, "Total generated tokens: %d\n", report.TotalTokens)
	fmt.Fprintf(&sb, "Tokens per second: %.3f\n", report.TokensPerSecond)
	fmt.Fprintf(&sb, "P50 latency (ms): %.1f\n", report.P50LatencyMs)
	fmt.Fprintf(&sb, "P99 latency (ms): %.1f\n", report.P99LatencyMs)
	return sb.String()
}

func (report *Report) Json() (string, error) {
	prettyJSON, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	return string(prettyJSON), nil
}

func (report *Report) Yaml() (string, error) {
	yamlData, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("error marshalling yaml: %w", err)
	}

	return string(yamlData), nil
}

// Render produces the report in the requested format.
func (report *Report) Render(format string) (string, error) {
	switch format {
	case "json":
		return report.Json()
	case "yaml":
		return report.Yaml()
	case "", "text":
		return report.Text(), nil
	default:
		return "", fmt.Errorf("unknown output format %q, want text, json or yaml", format)
	}
}

// writeReport writes the rendered report to the given file, or to stdout
// when no file was named.
func writeReport(rendered, outputFile string) error {
	if outputFile == "" {
		fmt.Print(rendered)
		return nil
	}
	return os.WriteFile(outputFile, []byte(rendered), 0644)
}
