// Package projects runs generations in the background and serves their
// snapshots. Every snapshot is written through the cache to the store and
// pushed to websocket subscribers.
package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ai-app-builder/internal/cache"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/preview"
	"ai-app-builder/internal/store"
	"ai-app-builder/internal/workflow"
)

// InterruptedMessage is recorded on projects left generating by a
// previous process.
const InterruptedMessage = "Generation was interrupted by a server restart"

var (
	// ErrNotFound is returned for an unknown project id.
	ErrNotFound = errors.New("project not found")
	// ErrCodebaseNotReady is returned before the codebase is assembled.
	ErrCodebaseNotReady = errors.New("codebase is not ready")
	// ErrShuttingDown is returned by Start after Shutdown.
	ErrShuttingDown = errors.New("service is shutting down")
)

// Runner runs a workflow. *workflow.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, req workflow.Request, observe workflow.Observer) (workflow.Project, error)
}

// Store persists projects. *store.Database implements it.
type Store interface {
	SaveProject(ctx context.Context, p workflow.Project, prompt string) error
	GetProject(ctx context.Context, id string) (*workflow.Project, error)
	ListProjects(ctx context.Context, limit int) ([]store.ProjectSummary, error)
	DeleteProject(ctx context.Context, id string) error
	FailInterruptedProjects(ctx context.Context, message string) (int64, error)
}

// Publisher pushes snapshots to subscribers. *websocket.BatchedHub
// implements it.
type Publisher interface {
	QueueSnapshot(projectID string, v any)
	PublishNow(projectID string, v any)
}

// Options wires a Service. Publisher may be nil.
type Options struct {
	Runner    Runner
	Store     Store
	Cache     *cache.ProjectCache
	Publisher Publisher
	Preview   *preview.Generator
	// ListTTL is how long listings stay cached.
	ListTTL time.Duration
	Logger  *zap.Logger
}

// Service owns the running generations.
type Service struct {
	runner    Runner
	store     Store
	cache     *cache.ProjectCache
	publisher Publisher
	preview   *preview.Generator
	listTTL   time.Duration
	logger    *zap.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	running map[string]*activeRun
	closed  bool
}

type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates the service.
func NewService(opts Options) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	listTTL := opts.ListTTL
	if listTTL <= 0 {
		listTTL = 30 * time.Second
	}
	gen := opts.Preview
	if gen == nil {
		gen = preview.NewGenerator(opts.Cache, opts.Logger)
	}
	return &Service{
		runner:    opts.Runner,
		store:     opts.Store,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		preview:   gen,
		listTTL:   listTTL,
		logger:    logging.OrDefault(opts.Logger).Named("projects"),
		baseCtx:   ctx,
		stop:      cancel,
		running:   make(map[string]*activeRun),
	}
}

// Start launches a generation and returns its first snapshot. The run
// continues in the background after Start returns.
func (s *Service) Start(ctx context.Context, prompt string) (workflow.Project, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return workflow.Project{}, ErrShuttingDown
	}
	id := uuid.New().String()
	runCtx, cancel := context.WithCancel(s.baseCtx)
	active := &activeRun{cancel: cancel, done: make(chan struct{})}
	s.running[id] = active
	s.wg.Add(1)
	s.mu.Unlock()

	first := make(chan workflow.Project, 1)
	failed := make(chan error, 1)

	go func() {
		defer s.wg.Done()
		defer s.finish(id, active)

		persistPrompt := prompt
		sent := false
		observe := func(p workflow.Project) {
			s.record(p, persistPrompt)
			persistPrompt = ""
			if !sent {
				sent = true
				first <- p
			}
		}

		_, err := s.runner.Run(runCtx, workflow.Request{Prompt: prompt, ProjectID: id}, observe)
		if !sent {
			// the run ended before planning produced a project
			failed <- err
			return
		}
		if err != nil {
			s.logger.Warn("generation failed", zap.String("project_id", id), zap.Error(err))
		}
		if s.cache != nil {
			if err := s.cache.InvalidateList(context.Background()); err != nil {
				s.logger.Debug("failed to invalidate project list", zap.Error(err))
			}
		}
	}()

	select {
	case p := <-first:
		return p, nil
	case err := <-failed:
		if err == nil {
			err = errors.New("generation produced no project")
		}
		return workflow.Project{}, err
	case <-ctx.Done():
		// the run keeps going; the caller can follow it by id
		return workflow.Project{}, ctx.Err()
	}
}

// record writes a snapshot through the cache to the store and publishes
// it.
func (s *Service) record(p workflow.Project, prompt string) {
	ctx := context.Background()
	if s.cache != nil {
		if err := s.cache.SetProject(ctx, p); err != nil {
			s.logger.Debug("failed to cache snapshot", zap.String("project_id", p.ID), zap.Error(err))
		}
	}
	if err := s.store.SaveProject(ctx, p, prompt); err != nil {
		s.logger.Warn("failed to persist snapshot", zap.String("project_id", p.ID), zap.Error(err))
	}

	if s.publisher == nil {
		return
	}
	if p.Status == workflow.ProjectGenerating {
		s.publisher.QueueSnapshot(p.ID, p)
	} else {
		s.publisher.PublishNow(p.ID, p)
	}
}

func (s *Service) finish(id string, active *activeRun) {
	s.mu.Lock()
	delete(s.running, id)
	s.mu.Unlock()
	active.cancel()
	close(active.done)
}

// Cancel stops a running generation. It reports whether one was running.
// The final snapshot is recorded by the run itself.
func (s *Service) Cancel(id string) bool {
	s.mu.Lock()
	active, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		active.cancel()
	}
	return ok
}

// Running returns how many generations are in flight.
func (s *Service) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// Get returns the latest snapshot of a project.
func (s *Service) Get(ctx context.Context, id string) (*workflow.Project, error) {
	load := func() (*workflow.Project, error) {
		p, err := s.store.GetProject(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return p, err
	}
	if s.cache == nil {
		return load()
	}
	return s.cache.GetOrLoadProject(ctx, id, load)
}

// Snapshot adapts Get to the websocket snapshot source.
func (s *Service) Snapshot(ctx context.Context, id string) (any, error) {
	return s.Get(ctx, id)
}

// List returns up to limit projects, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]store.ProjectSummary, error) {
	if s.cache == nil {
		return s.store.ListProjects(ctx, limit)
	}
	key := cache.ProjectListKey + ":" + strconv.Itoa(limit)
	data, err := s.cache.Cache().GetOrSet(ctx, key, s.listTTL, func() ([]byte, error) {
		list, err := s.store.ListProjects(ctx, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(list)
	})
	if err != nil {
		return nil, err
	}
	var list []store.ProjectSummary
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode project list: %w", err)
	}
	return list, nil
}

// Delete cancels and removes a project. A running generation is waited
// for so its last snapshot cannot bring the project back.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	active := s.running[id]
	s.mu.Unlock()
	if active != nil {
		active.cancel()
		select {
		case <-active.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateProject(ctx, id)
		_ = s.cache.InvalidateList(ctx)
	}
	s.logger.Info("project deleted", zap.String("project_id", id))
	return nil
}

// Preview renders the preview document. It returns preview.ErrNotReady
// until generation has finished.
func (s *Service) Preview(ctx context.Context, id string) (string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.preview.Generate(ctx, p)
}

// Codebase returns the assembled sections.
func (s *Service) Codebase(ctx context.Context, id string) ([]workflow.Section, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Codebase == nil {
		return nil, ErrCodebaseNotReady
	}
	return p.Codebase.Sections(), nil
}

// Report renders the project report as HTML.
func (s *Service) Report(ctx context.Context, id string) ([]byte, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return RenderReport(p), nil
}

// RecoverInterrupted fails projects a previous process left generating.
func (s *Service) RecoverInterrupted(ctx context.Context) (int64, error) {
	n, err := s.store.FailInterruptedProjects(ctx, InterruptedMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Warn("marked interrupted projects as failed", zap.Int64("count", n))
		if s.cache != nil {
			_ = s.cache.InvalidateList(ctx)
		}
	}
	return n, nil
}

// Shutdown cancels running generations and waits for them to record
// their final snapshot, or for ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
