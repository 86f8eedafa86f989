package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-app-builder/internal/flows"
)

// FlowRequest is the body of the flow routes. Features is only read by
// the code metrics flow.
type FlowRequest struct {
	Description string   `json:"description"`
	Features    []string `json:"features,omitempty"`
}

func (h *Handler) bindFlow(c *gin.Context) (FlowRequest, bool) {
	var req FlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
		return req, false
	}
	if h.Flows == nil {
		respondError(c, http.StatusServiceUnavailable, "AI_UNAVAILABLE", "No AI provider key is configured")
		return req, false
	}
	return req, true
}

func (h *Handler) flowError(c *gin.Context, err error) {
	if errors.Is(err, flows.ErrEmptyDescription) {
		respondError(c, http.StatusBadRequest, "DESCRIPTION_REQUIRED", "Description is required")
		return
	}
	h.internalError(c, "AI_REQUEST_FAILED", "AI request failed", err)
}

// SuggestAppName returns {appName}.
func (h *Handler) SuggestAppName(c *gin.Context) {
	req, ok := h.bindFlow(c)
	if !ok {
		return
	}
	name, err := h.Flows.SuggestAppName(c.Request.Context(), req.Description)
	if err != nil {
		h.flowError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"appName": name})
}

// GenerateFeatures returns {features}.
func (h *Handler) GenerateFeatures(c *gin.Context) {
	req, ok := h.bindFlow(c)
	if !ok {
		return
	}
	features, err := h.Flows.GenerateFeatures(c.Request.Context(), req.Description)
	if err != nil {
		h.flowError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"features": features})
}

// EstimateCodeMetrics returns the clamped size estimate.
func (h *Handler) EstimateCodeMetrics(c *gin.Context) {
	req, ok := h.bindFlow(c)
	if !ok {
		return
	}
	m, err := h.Flows.EstimateCodeMetrics(c.Request.Context(), req.Description, req.Features)
	if err != nil {
		h.flowError(c, err)
		return
	}
	respondOK(c, http.StatusOK, m)
}
