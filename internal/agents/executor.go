package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ai-app-builder/internal/ai"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/metrics"
)

// Source tells whether a result came from the model or from the canned
// fallback reply.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Result is the outcome of one role execution.
type Result struct {
	AgentID Role   `json:"agentId"`
	Success bool   `json:"success"`
	Data    Output `json:"data"`
	Error   string `json:"error,omitempty"`
	Source  Source `json:"source"`
}

// Executor runs single roles against a completion client.
type Executor struct {
	client ai.Completer
	logger *zap.Logger
}

// NewExecutor creates an executor. A nil logger uses the global one.
func NewExecutor(client ai.Completer, logger *zap.Logger) *Executor {
	return &Executor{
		client: client,
		logger: logging.OrDefault(logger).Named("agents"),
	}
}

// Execute runs role for prompt. Completion failures are absorbed into the
// fallback reply, so the only error returned is the context's.
func (e *Executor) Execute(ctx context.Context, role Role, prompt string, ec ExecContext) (Result, error) {
	if !role.Valid() {
		return Result{}, fmt.Errorf("failed to execute agent: unknown role %q", role)
	}
	if ec.Attempt < 1 {
		ec.Attempt = 1
	}

	log := e.logger.With(zap.String("agent", string(role)), zap.Int("attempt", ec.Attempt))
	start := time.Now()

	text, err := e.client.Complete(ctx, BuildUserPrompt(role, prompt, ec), SystemPrompt(role))
	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.Get().RecordAgentAttempt(string(role), "cancelled", time.Since(start))
		return Result{}, ctxErr
	}

	source := SourceModel
	switch {
	case err != nil:
		log.Warn("completion failed, using fallback response", zap.Error(err))
		metrics.Get().RecordAgentFallback(string(role), fallbackReason(err))
		text = fallbackResponse(role, prompt)
		source = SourceFallback
	case strings.TrimSpace(text) == "":
		log.Warn("empty completion, using fallback response")
		metrics.Get().RecordAgentFallback(string(role), "empty_response")
		text = fallbackResponse(role, prompt)
		source = SourceFallback
	}

	out := ParseResponse(role, text)
	if keys := out.EnhancedKeys(); len(keys) > 0 {
		log.Info("filled missing keys from defaults", zap.Strings("keys", keys))
	}
	if _, unparsed := out.(*Unparsed); unparsed {
		log.Info("response carried no JSON object", zap.Int("length", len(text)))
	}

	duration := time.Since(start)
	metrics.Get().RecordAgentAttempt(string(role), "success", duration)
	log.Debug("agent completed", zap.String("source", string(source)), zap.Duration("duration", duration))

	return Result{
		AgentID: role,
		Success: true,
		Data:    out,
		Source:  source,
	}, nil
}

func fallbackReason(err error) string {
	var ce *ai.CompletionError
	if errors.As(err, &ce) && ce.StatusCode > 0 {
		return fmt.Sprintf("status_%d", ce.StatusCode)
	}
	return "completion_error"
}
