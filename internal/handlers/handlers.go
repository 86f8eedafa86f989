// Package handlers exposes the app builder over HTTP: one-shot
// completions, background project generation, previews, key settings,
// the naming and estimation flows and the template catalog.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-app-builder/internal/ai"
	"ai-app-builder/internal/flows"
	"ai-app-builder/internal/keys"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/projects"
)

// Version is reported by the health check.
const Version = "2.0.0"

// StandardResponse represents a standard API response
type StandardResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler contains all the dependencies for API handlers
type Handler struct {
	// Completer serves /api/generate. It is nil when no provider key is
	// configured.
	Completer   ai.Completer
	Projects    *projects.Service
	Keys        *keys.Settings
	Flows       *flows.Service
	Database    HealthChecker
	Environment string

	logger *zap.Logger
}

// Dependencies wires a Handler.
type Dependencies struct {
	Completer   ai.Completer
	Projects    *projects.Service
	Keys        *keys.Settings
	Flows       *flows.Service
	Database    HealthChecker
	Environment string
	Logger      *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(deps Dependencies) *Handler {
	env := deps.Environment
	if env == "" {
		env = "development"
	}
	return &Handler{
		Completer:   deps.Completer,
		Projects:    deps.Projects,
		Keys:        deps.Keys,
		Flows:       deps.Flows,
		Database:    deps.Database,
		Environment: env,
		logger:      logging.OrDefault(deps.Logger).Named("handlers"),
	}
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, StandardResponse{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, StandardResponse{Success: false, Error: message, Code: code})
}

// internalError logs err against the request and writes a 500 envelope.
func (h *Handler) internalError(c *gin.Context, code, message string, err error) {
	h.logger.Error(message,
		zap.String("request_id", c.GetString("request_id")),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	_ = c.Error(err)
	respondError(c, http.StatusInternalServerError, code, message)
}
