// Package ai implements the completion clients used by the agents, the
// planner and the flows. Two providers are supported: Cerebras (OpenAI
// compatible chat completions) and Google Gemini.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider identifies a completion backend.
type Provider string

const (
	ProviderCerebras Provider = "cerebras"
	ProviderGemini   Provider = "gemini"
)

// Sampling defaults shared by both providers.
const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)

var (
	// ErrCompletionFailed is wrapped by every *CompletionError.
	ErrCompletionFailed = errors.New("completion failed")

	// ErrMissingAPIKey is returned by constructors when no key can be resolved.
	ErrMissingAPIKey = errors.New("api key is required")
)

// CompletionError describes a failed provider call. StatusCode is zero for
// transport and decoding failures.
type CompletionError struct {
	Provider   Provider
	StatusCode int
	Message    string
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API failed: %s", e.Provider, e.Message)
}

// Unwrap exposes both ErrCompletionFailed and the underlying cause so
// callers can match context cancellation with errors.Is.
func (e *CompletionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCompletionFailed, e.Err}
	}
	return []error{ErrCompletionFailed}
}

// VerifyResult reports whether a key works. Message is user facing.
type VerifyResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Completer is the contract every provider client satisfies.
type Completer interface {
	// Complete returns the first choice's content. Empty content is not an error.
	Complete(ctx context.Context, prompt, systemMessage string) (string, error)

	// CompleteStream invokes onChunk for every non-empty delta, in order, and
	// returns the concatenation of all chunks.
	CompleteStream(ctx context.Context, prompt, systemMessage string, onChunk func(string)) (string, error)

	// Verify checks the configured key. It never returns an error.
	Verify(ctx context.Context) VerifyResult

	// Provider returns the backend identifier.
	Provider() Provider
}

// ProviderUsage tracks usage statistics for a provider
type ProviderUsage struct {
	Provider         Provider  `json:"provider"`
	RequestCount     int64     `json:"request_count"`
	ErrorCount       int64     `json:"error_count"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	AvgLatency       float64   `json:"avg_latency"`
	LastUsed         time.Time `json:"last_used"`
}
