package workflow

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"ai-app-builder/internal/ai"
)

// RetryPolicy bounds how often a role is attempted.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Retryable decides whether a failed attempt may be repeated. Nil
	// means IsRetryable.
	Retryable func(error) bool
}

// DefaultRetryPolicy allows three attempts 1.5s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     1500 * time.Millisecond,
		Retryable:   IsRetryable,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsRetryable
	}
	return p
}

var fatalMarkers = []string{
	"invalid api key",
	"api key not valid",
	"unauthorized",
	"quota exhausted",
	"permission denied",
}

// IsRetryable reports whether err is worth another attempt. Cancellation,
// missing or rejected credentials and exhausted quota are fatal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ai.ErrMissingAPIKey) {
		return false
	}
	var ce *ai.CompletionError
	if errors.As(err, &ce) && (ce.StatusCode == http.StatusUnauthorized || ce.StatusCode == http.StatusForbidden) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	return true
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
