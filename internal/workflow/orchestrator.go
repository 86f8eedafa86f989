package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ai-app-builder/internal/agents"
	"ai-app-builder/internal/ai"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/metrics"
)

// CancelledMessage is the project error recorded when a run is cancelled.
const CancelledMessage = "workflow cancelled"

// ErrEmptyPrompt is returned by Run for a blank prompt.
var ErrEmptyPrompt = errors.New("prompt is required")

// CriticalAgentError reports that a role the project cannot do without
// failed after all its attempts.
type CriticalAgentError struct {
	Role agents.Role
	Err  error
}

func (e *CriticalAgentError) Error() string {
	return fmt.Sprintf("Critical agent %s failed: %v", e.Role, e.Err)
}

func (e *CriticalAgentError) Unwrap() error { return e.Err }

// Runner executes one role. *agents.Executor is the production Runner.
type Runner interface {
	Execute(ctx context.Context, role agents.Role, prompt string, ec agents.ExecContext) (agents.Result, error)
}

// Observer receives a snapshot after every state change. Snapshots are
// deep copies and are delivered in order from the run's goroutine.
type Observer func(Project)

// Request starts a run. ProjectID is generated when empty.
type Request struct {
	Prompt    string
	ProjectID string
}

// Config tunes retry and pacing. Zero durations disable the progress
// ticker and the pause between agents.
type Config struct {
	Retry            RetryPolicy
	ProgressInterval time.Duration
	AgentPause       time.Duration
	// Step returns the simulated progress increment. Nil picks 5..15.
	Step func() int
	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
}

// DefaultConfig returns the production pacing.
func DefaultConfig() Config {
	return Config{
		Retry:            DefaultRetryPolicy(),
		ProgressInterval: 800 * time.Millisecond,
		AgentPause:       500 * time.Millisecond,
	}
}

// Orchestrator plans projects and drives the agents through them.
type Orchestrator struct {
	planner ai.Completer
	runner  Runner
	cfg     Config
	logger  *zap.Logger
}

// NewOrchestrator creates an orchestrator. A nil runner executes roles
// with an agents.Executor on client.
func NewOrchestrator(client ai.Completer, runner Runner, cfg Config, logger *zap.Logger) *Orchestrator {
	logger = logging.OrDefault(logger).Named("workflow")
	if runner == nil {
		runner = agents.NewExecutor(client, logger)
	}
	cfg.Retry = cfg.Retry.normalized()
	if cfg.Step == nil {
		cfg.Step = randomStep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{planner: client, runner: runner, cfg: cfg, logger: logger}
}

// run is the mutable state of one Run call. Only the run goroutine
// touches it.
type run struct {
	o       *Orchestrator
	project *Project
	observe Observer
	log     *zap.Logger
}

func (r *run) emit() {
	if r.observe != nil {
		r.observe(r.project.Clone())
	}
}

// Run plans the project, runs every role and assembles the codebase. The
// returned project is the final snapshot, also on error.
func (o *Orchestrator) Run(ctx context.Context, req Request, observe Observer) (Project, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Project{}, ErrEmptyPrompt
	}

	m := metrics.Get()
	m.WorkflowsActive.Inc()
	defer m.WorkflowsActive.Dec()
	started := time.Now()

	id := req.ProjectID
	if id == "" {
		id = uuid.New().String()
	}
	log := o.logger.With(zap.String("project_id", id))

	plan := planProject(ctx, o.planner, prompt, log)
	r := &run{
		o:       o,
		project: NewProject(id, plan, o.cfg.Now()),
		observe: observe,
		log:     log,
	}
	log.Info("workflow started",
		zap.String("name", plan.Name),
		zap.Bool("heuristic_plan", plan.Heuristic),
		zap.Strings("features", plan.Features))
	r.emit()

	project, err := r.execute(ctx, prompt)

	status := string(project.Status)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = "cancelled"
	}
	m.RecordWorkflow(status, time.Since(started))
	if err != nil {
		log.Warn("workflow failed", zap.Error(err), zap.Duration("duration", time.Since(started)))
	} else {
		log.Info("workflow completed", zap.Duration("duration", time.Since(started)))
	}
	return project, err
}

func (r *run) execute(ctx context.Context, prompt string) (Project, error) {
	if err := ctx.Err(); err != nil {
		return r.cancel(err)
	}

	var previous []agents.PriorOutput
	for i, role := range agents.Roles {
		if i > 0 {
			if err := sleep(ctx, r.o.cfg.AgentPause); err != nil {
				return r.cancel(err)
			}
		}

		out, err := r.runAgent(ctx, role, prompt, previous)
		if err != nil {
			if ctx.Err() != nil {
				return r.cancel(ctx.Err())
			}
			if role.IsCritical() {
				return r.fail(&CriticalAgentError{Role: role, Err: err})
			}
			r.log.Warn("non-critical agent failed, continuing", zap.String("agent", string(role)), zap.Error(err))
			continue
		}
		previous = append(previous, agents.PriorOutput{Role: role, Output: out})
	}

	codebase, err := AssembleCodebase(r.project, prompt)
	if err != nil {
		return r.fail(err)
	}
	r.project.Codebase = codebase
	r.project.Preview = &Preview{
		URL:    fmt.Sprintf("/api/projects/%s/preview", r.project.ID),
		Status: PreviewReady,
	}
	if err := r.project.SetStatus(ProjectPreview); err != nil {
		return r.project.Clone(), err
	}
	r.emit()
	return r.project.Clone(), nil
}

// runAgent drives one role through its attempts and returns its output.
func (r *run) runAgent(ctx context.Context, role agents.Role, prompt string, previous []agents.PriorOutput) (agents.Output, error) {
	agent := r.project.Agent(role)
	policy := r.o.cfg.Retry
	log := r.log.With(zap.String("agent", string(role)))

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := agent.SetStatus(AgentWorking); err != nil {
			return nil, err
		}
		start := r.o.cfg.Now()
		agent.Progress = 0
		agent.StartTime = &start
		agent.Attempts = attempt
		r.emit()

		res, err := r.executeWithProgress(ctx, agent, prompt, agents.ExecContext{
			PreviousOutputs: previous,
			Attempt:         attempt,
		})
		if err == nil && !res.Success {
			err = errors.New(nonEmpty(res.Error, "Agent execution failed"))
		}
		if err == nil {
			end := r.o.cfg.Now()
			if err := agent.SetStatus(AgentComplete); err != nil {
				return nil, err
			}
			agent.Progress = 100
			agent.EndTime = &end
			agent.Output = res.Data
			r.emit()
			return res.Data, nil
		}

		lastErr = err
		metrics.Get().RecordAgentAttempt(string(role), "error", r.o.cfg.Now().Sub(start))
		log.Warn("agent attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if ctx.Err() != nil || attempt == policy.MaxAttempts || !policy.Retryable(err) {
			break
		}
		agent.Progress = 0
		r.emit()
		if err := sleep(ctx, policy.Backoff); err != nil {
			lastErr = err
			break
		}
	}

	end := r.o.cfg.Now()
	if err := agent.SetStatus(AgentError); err != nil {
		return nil, err
	}
	agent.Progress = 0
	agent.EndTime = &end
	agent.Error = lastErr.Error()
	if ctx.Err() != nil {
		agent.Error = CancelledMessage
	}
	r.emit()
	return nil, lastErr
}

type execOutcome struct {
	res agents.Result
	err error
}

// executeWithProgress runs the role in the background and advances the
// agent's simulated progress until it returns.
func (r *run) executeWithProgress(ctx context.Context, agent *Agent, prompt string, ec agents.ExecContext) (agents.Result, error) {
	done := make(chan execOutcome, 1)
	go func() {
		res, err := r.o.runner.Execute(ctx, agent.ID, prompt, ec)
		done <- execOutcome{res: res, err: err}
	}()

	tick, stop := tickChannel(r.o.cfg.ProgressInterval)
	defer stop()

	for {
		select {
		case out := <-done:
			return out.res, out.err
		case <-tick:
			if next, ok := advanceProgress(agent.Progress, r.o.cfg.Step()); ok {
				agent.Progress = next
				r.emit()
			}
		}
	}
}

// fail moves the project to error with err's message.
func (r *run) fail(err error) (Project, error) {
	if setErr := r.project.SetStatus(ProjectError); setErr != nil {
		return r.project.Clone(), errors.Join(err, setErr)
	}
	r.project.Error = err.Error()
	r.emit()
	return r.project.Clone(), err
}

func (r *run) cancel(err error) (Project, error) {
	for i := range r.project.Agents {
		a := &r.project.Agents[i]
		if a.Status == AgentWorking {
			end := r.o.cfg.Now()
			_ = a.SetStatus(AgentError)
			a.EndTime = &end
			a.Error = CancelledMessage
		}
	}
	if setErr := r.project.SetStatus(ProjectError); setErr == nil {
		r.project.Error = CancelledMessage
	}
	r.emit()
	return r.project.Clone(), err
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
