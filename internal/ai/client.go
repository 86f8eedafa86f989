package ai

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/metrics"
)

const defaultRequestTimeout = 120 * time.Second

var (
	limiterMu sync.RWMutex
	// Caps in-flight completions across every client in the process.
	completionLimiter = semaphore.NewWeighted(8)
)

// SetMaxConcurrency replaces the process-wide completion limiter. Call it
// once at startup, before any client is used.
func SetMaxConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	limiterMu.Lock()
	completionLimiter = semaphore.NewWeighted(int64(n))
	limiterMu.Unlock()
}

func currentLimiter() *semaphore.Weighted {
	limiterMu.RLock()
	defer limiterMu.RUnlock()
	return completionLimiter
}

// Options configures a provider client. Zero values select the defaults.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &http.Client{Timeout: timeout}
}

// NewClient builds the client for provider. An empty provider selects Cerebras.
func NewClient(provider Provider, opts Options) (Completer, error) {
	switch provider {
	case "", ProviderCerebras:
		return NewCerebrasClient(opts)
	case ProviderGemini:
		return NewGeminiClient(opts)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", provider)
	}
}

// Unconfigured stands in for a provider that has no key. Every call fails
// with ErrMissingAPIKey, so agents and the planner use their fallbacks.
type Unconfigured struct {
	Backend Provider
}

func (u Unconfigured) err() error {
	return &CompletionError{Provider: u.Provider(), Message: "no API key configured", Err: ErrMissingAPIKey}
}

func (u Unconfigured) Complete(context.Context, string, string) (string, error) {
	return "", u.err()
}

func (u Unconfigured) CompleteStream(context.Context, string, string, func(string)) (string, error) {
	return "", u.err()
}

func (u Unconfigured) Verify(context.Context) VerifyResult {
	return VerifyResult{Success: false, Message: "API key is required"}
}

func (u Unconfigured) Provider() Provider {
	if u.Backend == "" {
		return ProviderCerebras
	}
	return u.Backend
}

// usageTracker holds per-client statistics behind a mutex.
type usageTracker struct {
	mu    sync.RWMutex
	usage ProviderUsage
}

func newUsageTracker(p Provider) *usageTracker {
	return &usageTracker{usage: ProviderUsage{Provider: p}}
}

func (u *usageTracker) record(err error, duration time.Duration, promptTokens, completionTokens int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.usage.RequestCount++
	if err != nil {
		u.usage.ErrorCount++
	}
	u.usage.PromptTokens += int64(promptTokens)
	u.usage.CompletionTokens += int64(completionTokens)
	u.usage.TotalTokens += int64(promptTokens + completionTokens)
	u.usage.AvgLatency = (u.usage.AvgLatency*float64(u.usage.RequestCount-1) + duration.Seconds()) / float64(u.usage.RequestCount)
	u.usage.LastUsed = time.Now()
}

func (u *usageTracker) snapshot() ProviderUsage {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.usage
}

// call runs fn under the process-wide limiter and records usage and metrics.
func call(ctx context.Context, p Provider, mode string, usage *usageTracker, fn func() (int, int, error)) error {
	limiter := currentLimiter()
	if err := limiter.Acquire(ctx, 1); err != nil {
		return &CompletionError{Provider: p, Message: "completion queue wait aborted", Err: err}
	}
	defer limiter.Release(1)

	m := metrics.Get()
	m.CompletionsInFlight.WithLabelValues(string(p)).Inc()
	defer m.CompletionsInFlight.WithLabelValues(string(p)).Dec()

	start := time.Now()
	promptTokens, completionTokens, err := fn()
	duration := time.Since(start)

	usage.record(err, duration, promptTokens, completionTokens)
	m.RecordCompletion(string(p), mode, err, duration, promptTokens, completionTokens)
	return err
}

// transportError wraps a failed round trip. Context errors are preserved.
func transportError(p Provider, err error) *CompletionError {
	msg := err.Error()
	switch {
	case errors.Is(err, context.Canceled):
		msg = "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	}
	return &CompletionError{Provider: p, Message: msg, Err: err}
}

// readSSE feeds every "data:" payload of an event stream to onData until
// the body ends or onData returns done.
func readSSE(body io.Reader, onData func(payload string) (done bool, err error)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		done, err := onData(payload)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return scanner.Err()
}

func clientLogger(l *zap.Logger, p Provider) *zap.Logger {
	return logging.OrDefault(l).Named("ai").With(zap.String("provider", string(p)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func metricsChunk(p Provider) {
	metrics.Get().CompletionStreamedChunks.WithLabelValues(string(p)).Inc()
}

// verifyMessage prefers the provider's own message over the wrapped form.
func verifyMessage(err error) string {
	var ce *CompletionError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return err.Error()
}
