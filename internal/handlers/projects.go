package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ai-app-builder/internal/preview"
	"ai-app-builder/internal/projects"
	"ai-app-builder/internal/workflow"
)

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Prompt string `json:"prompt"`
}

// CreateProject starts a generation and returns its first snapshot. The
// run continues in the background; follow it over the websocket or by
// polling GET /api/projects/:id.
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Prompt is required")
		return
	}

	p, err := h.Projects.Start(c.Request.Context(), req.Prompt)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, StandardResponse{
			Success: true,
			Data:    p,
			Message: "Generation started",
		})
	case errors.Is(err, workflow.ErrEmptyPrompt):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Prompt is required")
	case errors.Is(err, projects.ErrShuttingDown):
		respondError(c, http.StatusServiceUnavailable, "SHUTTING_DOWN", "Server is shutting down")
	default:
		h.internalError(c, "GENERATION_FAILED", "Failed to start generation", err)
	}
}

// ListProjects returns persisted projects, newest first.
func (h *Handler) ListProjects(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 100 {
		respondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 100")
		return
	}

	list, err := h.Projects.List(c.Request.Context(), limit)
	if err != nil {
		h.internalError(c, "DATABASE_ERROR", "Failed to list projects", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"projects": list, "count": len(list)})
}

// GetProject returns the latest snapshot.
func (h *Handler) GetProject(c *gin.Context) {
	p, err := h.Projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.projectError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

// DeleteProject cancels a running generation and removes the project.
func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.Projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.projectError(c, err)
		return
	}
	c.JSON(http.StatusOK, StandardResponse{Success: true, Message: "Project deleted"})
}

// CancelProject stops a running generation.
func (h *Handler) CancelProject(c *gin.Context) {
	if !h.Projects.Cancel(c.Param("id")) {
		respondError(c, http.StatusConflict, "NOT_RUNNING", "Project is not generating")
		return
	}
	c.JSON(http.StatusAccepted, StandardResponse{Success: true, Message: "Cancellation requested"})
}

// GetPreview serves the rendered preview document.
func (h *Handler) GetPreview(c *gin.Context) {
	html, err := h.Projects.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.projectError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// GetCodebase returns the six codebase sections.
func (h *Handler) GetCodebase(c *gin.Context) {
	sections, err := h.Projects.Codebase(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.projectError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"sections": sections})
}

// GetReport serves the project report as HTML.
func (h *Handler) GetReport(c *gin.Context) {
	report, err := h.Projects.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.projectError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report)
}

func (h *Handler) projectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, projects.ErrNotFound):
		respondError(c, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
	case errors.Is(err, preview.ErrNotReady):
		respondError(c, http.StatusConflict, "PREVIEW_NOT_READY", "Preview is not ready yet")
	case errors.Is(err, projects.ErrCodebaseNotReady):
		respondError(c, http.StatusConflict, "CODEBASE_NOT_READY", "Codebase is not ready yet")
	default:
		h.internalError(c, "DATABASE_ERROR", "Failed to load project", err)
	}
}
