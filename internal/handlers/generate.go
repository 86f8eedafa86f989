package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-app-builder/internal/ai"
)

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt        string `json:"prompt"`
	SystemMessage string `json:"systemMessage,omitempty"`
	AgentID       string `json:"agentId,omitempty"`
}

// Generate runs a single completion. With ?stream=true the reply is sent
// as server-sent events: one "chunk" event per delta, then "done" with the
// full text, or "error".
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}
	if h.Completer == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": ai.ErrMissingAPIKey.Error()})
		return
	}

	if c.Query("stream") == "true" {
		h.generateStream(c, req)
		return
	}

	start := time.Now()
	response, err := h.Completer.Complete(c.Request.Context(), req.Prompt, req.SystemMessage)
	if err != nil {
		h.logger.Warn("generation failed",
			zap.String("agent", req.AgentID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": response,
		"agentId":  req.AgentID,
	})
}

func (h *Handler) generateStream(c *gin.Context, req GenerateRequest) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	chunks := make(chan string, 64)
	var (
		text string
		err  error
	)
	go func() {
		defer close(chunks)
		text, err = h.Completer.CompleteStream(ctx, req.Prompt, req.SystemMessage, func(chunk string) {
			select {
			case chunks <- chunk:
			case <-ctx.Done():
			}
		})
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	for chunk := range chunks {
		c.SSEvent("chunk", gin.H{"content": chunk})
		c.Writer.Flush()
	}

	// chunks is closed after text and err are set
	if err != nil {
		h.logger.Warn("streamed generation failed", zap.String("agent", req.AgentID), zap.Error(err))
		c.SSEvent("error", gin.H{"error": err.Error()})
	} else {
		c.SSEvent("done", gin.H{"success": true, "response": text, "agentId": req.AgentID})
	}
	c.Writer.Flush()
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"version":     Version,
		"environment": h.Environment,
	})
}

// Ready reports whether the database is reachable.
func (h *Handler) Ready(c *gin.Context) {
	checks := gin.H{"database": "ok"}
	status := http.StatusOK
	if h.Database != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.Database.Health(ctx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if h.Completer == nil {
		checks["ai"] = "no provider key configured"
	} else {
		checks["ai"] = string(h.Completer.Provider())
	}
	c.JSON(status, StandardResponse{Success: status == http.StatusOK, Data: checks})
}
