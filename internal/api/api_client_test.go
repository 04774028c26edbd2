package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteWireFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen", req.Model)
		assert.Equal(t, "hello", req.Prompt)
		assert.Equal(t, 128, req.MaxTokens)
		assert.Zero(t, req.Temperature)
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(CompletionResponse{
			Choices: []CompletionChoice{{Text: "hi there"}},
			Usage:   &CompletionUsage{CompletionTokens: 10},
		})
	}))
	defer server.Close()

	client := NewClient(time.Second)
	resp, err := client.Complete(context.Background(), server.URL, CompletionRequest{
		Model:     "qwen",
		Prompt:    "hello",
		MaxTokens: 128,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.CompletionTokens())
}

func TestCompletionTokensFallback(t *testing.T) {
	tests := []struct {
		name string
		resp CompletionResponse
		want int
	}{
		{"usage used verbatim", CompletionResponse{
			Choices: []CompletionChoice{{Text: "one two three"}},
			Usage:   &CompletionUsage{CompletionTokens: 7},
		}, 7},
		{"usage present but zero wins over text", CompletionResponse{
			Choices: []CompletionChoice{{Text: "one two"}},
			Usage:   &CompletionUsage{},
		}, 0},
		{"whitespace fallback", CompletionResponse{
			Choices: []CompletionChoice{{Text: "one two three"}},
		}, 3},
		{"empty text", CompletionResponse{
			Choices: []CompletionChoice{{Text: ""}},
		}, 0},
		{"no choices", CompletionResponse{}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.resp.CompletionTokens())
		})
	}
}

func TestCompleteFallbackOverWire(t *testing.T) {
	// No usage object at all in the payload.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"cmpl-1","choices":[{"text":"one two three","index":0}]}`))
	}))
	defer server.Close()

	client := NewClient(time.Second)
	resp, err := client.Complete(context.Background(), server.URL, CompletionRequest{Model: "qwen"})
	require.NoError(t, err)
	assert.Nil(t, resp.Usage)
	assert.Equal(t, 3, resp.CompletionTokens())
}

func TestCompleteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(time.Second)
	_, err := client.Complete(context.Background(), server.URL, CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(20 * time.Millisecond)
	_, err := client.Complete(context.Background(), server.URL, CompletionRequest{})
	require.Error(t, err)
}

func TestCompleteTrimsTrailingSlash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(time.Second)
	_, err := client.Complete(context.Background(), server.URL+"/", CompletionRequest{})
	require.NoError(t, err)
}

func TestDiscoverModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Write([]byte(`{"object":"list","data":[{"id":"qwen-0.5b","object":"model"},{"id":"other","object":"model"}]}`))
	}))
	defer server.Close()

	model, err := DiscoverModel(context.Background(), server.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "qwen-0.5b", model)
}

func TestDiscoverModelEmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	_, err := DiscoverModel(context.Background(), server.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no models available")
}

func TestMeasureLatency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	latency, err := MeasureLatency(server.URL, 3)
	require.NoError(t, err)
	assert.Greater(t, latency, 0.0)
}

func TestMeasureLatencyRejectsNonPositiveAttempts(t *testing.T) {
	for _, attempts := range []int{0, -1} {
		_, err := MeasureLatency("http://127.0.0.1:8000", attempts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "attempts must be positive")
	}
}
