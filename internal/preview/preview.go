// Package preview renders a generated project as a single HTML document
// that runs in the browser with React, Babel and Tailwind from CDNs.
package preview

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ai-app-builder/internal/cache"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/metrics"
	"ai-app-builder/internal/workflow"
)

// ErrNotReady is returned for projects that have not reached preview.
var ErrNotReady = errors.New("preview is not ready")

// Generator renders previews and caches them by project id.
type Generator struct {
	cache  *cache.ProjectCache
	logger *zap.Logger
}

// NewGenerator creates a generator. A nil cache renders on every call.
func NewGenerator(c *cache.ProjectCache, logger *zap.Logger) *Generator {
	return &Generator{cache: c, logger: logging.OrDefault(logger).Named("preview")}
}

// Ready reports whether a project can be previewed.
func Ready(p *workflow.Project) bool {
	return p.Status == workflow.ProjectPreview || p.Status == workflow.ProjectDeployed
}

// Generate returns the preview HTML for p.
func (g *Generator) Generate(ctx context.Context, p *workflow.Project) (string, error) {
	if !Ready(p) {
		return "", ErrNotReady
	}
	if g.cache != nil {
		if html, err := g.cache.GetPreview(ctx, p.ID); err == nil {
			return html, nil
		}
	}

	cfg := Analyze(p)
	html, err := Render(p, cfg)
	if err != nil {
		return "", err
	}
	metrics.Get().RecordPreviewRender(string(cfg.AppType))
	g.logger.Debug("preview rendered",
		zap.String("project_id", p.ID),
		zap.String("archetype", string(cfg.AppType)),
		zap.String("complexity", string(cfg.Complexity)))

	if g.cache != nil {
		if err := g.cache.SetPreview(ctx, p.ID, html); err != nil {
			g.logger.Warn("failed to cache preview", zap.String("project_id", p.ID), zap.Error(err))
		}
	}
	return html, nil
}
