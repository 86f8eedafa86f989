package cache

import (
	"context"
	"time"

	"ai-app-builder/internal/workflow"
)

// ProjectCache stores the latest snapshot of each project and its rendered
// preview.
type ProjectCache struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewProjectCache creates a project cache. A zero ttl uses the cache default.
func NewProjectCache(cache *RedisCache, ttl time.Duration) *ProjectCache {
	return &ProjectCache{cache: cache, ttl: ttl}
}

// GetProject returns the cached snapshot or ErrCacheMiss.
func (pc *ProjectCache) GetProject(ctx context.Context, projectID string) (*workflow.Project, error) {
	var p workflow.Project
	if err := pc.cache.GetJSON(ctx, ProjectKey(projectID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetProject stores a snapshot. A new snapshot drops any preview rendered
// from an older one.
func (pc *ProjectCache) SetProject(ctx context.Context, p workflow.Project) error {
	if err := pc.cache.SetJSON(ctx, ProjectKey(p.ID), p, pc.ttl); err != nil {
		return err
	}
	return pc.cache.Delete(ctx, PreviewKey(p.ID))
}

// GetOrLoadProject returns the cached snapshot or loads and caches it.
func (pc *ProjectCache) GetOrLoadProject(ctx context.Context, projectID string, loader func() (*workflow.Project, error)) (*workflow.Project, error) {
	if p, err := pc.GetProject(ctx, projectID); err == nil {
		return p, nil
	}
	p, err := loader()
	if err != nil {
		return nil, err
	}
	_ = pc.cache.SetJSON(ctx, ProjectKey(projectID), p, pc.ttl)
	return p, nil
}

// GetPreview returns the cached preview HTML or ErrCacheMiss.
func (pc *ProjectCache) GetPreview(ctx context.Context, projectID string) (string, error) {
	data, err := pc.cache.Get(ctx, PreviewKey(projectID))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetPreview stores rendered preview HTML.
func (pc *ProjectCache) SetPreview(ctx context.Context, projectID, html string) error {
	return pc.cache.Set(ctx, PreviewKey(projectID), []byte(html), pc.ttl)
}

// InvalidateProject drops the snapshot and preview of a project.
func (pc *ProjectCache) InvalidateProject(ctx context.Context, projectID string) error {
	if err := pc.cache.Delete(ctx, ProjectKey(projectID)); err != nil {
		return err
	}
	return pc.cache.Delete(ctx, PreviewKey(projectID))
}

// InvalidateList drops the cached project listing.
func (pc *ProjectCache) InvalidateList(ctx context.Context) error {
	return pc.cache.DeletePattern(ctx, ProjectListKey+"*")
}

// Cache exposes the underlying cache.
func (pc *ProjectCache) Cache() *RedisCache { return pc.cache }
