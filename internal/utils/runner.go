package utils

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// RunConfig describes one benchmark run.
type RunConfig struct {
	// BaseURLs is the ordered set of endpoints requests are round-robined
	// across. Request i targets BaseURLs[i % len(BaseURLs)].
	BaseURLs []string
	// TotalRequests is the exact number of requests to issue.
	TotalRequests int
	// Concurrency is the run-wide in-flight request bound. The benchmark
	// exists to measure scheduling overhead on a single GPU, so only 1 or 2
	// is accepted.
	Concurrency int
	// Timeout bounds each individual request.
	Timeout time.Duration
}

// Validate reports a configuration error before any request is issued.
func (c RunConfig) Validate() error {
	if len(c.BaseURLs) == 0 {
		return fmt.Errorf("no base URLs provided")
	}
	if c.TotalRequests < 1 {
		return fmt.Errorf("total requests must be positive, got %d", c.TotalRequests)
	}
	if c.Concurrency < 1 || c.Concurrency > 2 {
		return fmt.Errorf("concurrency must be 1 or 2 to meet benchmark rules, got %d", c.Concurrency)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// RequestResult holds the measurements taken from a single completed request.
type RequestResult struct {
	// Latency is the wall-clock duration from just before the request was
	// sent until the full response body was received and decoded.
	Latency time.Duration
	// Tokens is the number of generated tokens, taken from the response
	// usage data or estimated from the returned text.
	Tokens int
}

// RequestError wraps a request failure with enough context to diagnose
// which request against which endpoint failed.
type RequestError struct {
	Index   int
	BaseURL string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %d to %s failed: %v", e.Index, e.BaseURL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// RequestFunc performs one request/response cycle against baseURL.
type RequestFunc func(ctx context.Context, baseURL string) (RequestResult, error)

// Runner issues RunConfig.TotalRequests invocations of Send with at most
// RunConfig.Concurrency requests in flight at any instant across the whole
// run, round-robining endpoints per request index.
type Runner struct {
	Config RunConfig
	Send   RequestFunc
	// OnResult, when non-nil, is invoked once per successful request. It may
	// be called from concurrent goroutines.
	OnResult func(RequestResult)
}

// RunResults is the accumulated outcome of a completed run. Result order
// carries no meaning; the aggregate stats are order-independent.
type RunResults struct {
	Results []RequestResult
	Elapsed time.Duration
}

// Run executes the benchmark. Any single request failure aborts the run:
// no new requests are dispatched once a failure is observed, already
// in-flight requests are awaited to natural completion, and the first
// failure is returned with no partial results. Dropping failed samples
// would bias the statistics, so there is no partial-results tolerance.
func (r *Runner) Run(ctx context.Context) (*RunResults, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, err
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]RequestResult, 0, r.Config.TotalRequests)
		runErr  error
		failed  atomic.Bool
	)
	sem := make(chan struct{}, r.Config.Concurrency)

	start := time.Now()
	for i := 0; i < r.Config.TotalRequests; i++ {
		sem <- struct{}{}
		if failed.Load() {
			<-sem
			break
		}

		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			defer func() { <-sem }()

			baseURL := r.Config.BaseURLs[index%len(r.Config.BaseURLs)]
			result, err := r.Send(ctx, baseURL)
			if err != nil {
				failed.Store(true)
				mu.Lock()
				if runErr == nil {
					runErr = &RequestError{Index: index, BaseURL: baseURL, Err: err}
				}
				mu.Unlock()
				log.Error().Err(err).Int("request", index).Str("endpoint", baseURL).
					Msg("request failed, aborting run")
				return
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()

			if r.OnResult != nil {
				r.OnResult(result)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if runErr != nil {
		return nil, runErr
	}
	return &RunResults{Results: results, Elapsed: elapsed}, nil
}
