package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-app-builder/internal/keys"
	"ai-app-builder/internal/store"
)

// VerifyKeyRequest is the body of POST /api/keys/verify. An empty key
// checks the stored or environment key.
type VerifyKeyRequest struct {
	Service string `json:"service"`
	Key     string `json:"key"`
}

// PutKeyRequest is the body of PUT /api/keys/:service.
type PutKeyRequest struct {
	Key string `json:"key"`
}

// VerifyKey checks a key against its service and returns
// {success, message}. Verification failures are 200 responses.
func (h *Handler) VerifyKey(c *gin.Context) {
	var req VerifyKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
		return
	}
	service, err := keys.ParseService(req.Service)
	if err != nil {
		respondError(c, http.StatusBadRequest, "UNKNOWN_SERVICE", err.Error())
		return
	}

	res, err := h.Keys.Verify(c.Request.Context(), service, req.Key)
	if err != nil {
		h.internalError(c, "VERIFICATION_FAILED", "Failed to verify key", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// VerifyAllKeys verifies every configured key concurrently.
func (h *Handler) VerifyAllKeys(c *gin.Context) {
	results, err := h.Keys.VerifyAll(c.Request.Context())
	if err != nil {
		h.internalError(c, "VERIFICATION_FAILED", "Failed to verify keys", err)
		return
	}
	respondOK(c, http.StatusOK, results)
}

// ListKeys returns the masked state of every service.
func (h *Handler) ListKeys(c *gin.Context) {
	states, err := h.Keys.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "DATABASE_ERROR", "Failed to list keys", err)
		return
	}
	respondOK(c, http.StatusOK, states)
}

// PutKey stores a key, encrypted.
func (h *Handler) PutKey(c *gin.Context) {
	service, err := keys.ParseService(c.Param("service"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "UNKNOWN_SERVICE", err.Error())
		return
	}
	var req PutKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
		return
	}

	state, err := h.Keys.Put(c.Request.Context(), service, req.Key)
	switch {
	case err == nil:
		respondOK(c, http.StatusOK, state)
	case errors.Is(err, keys.ErrKeyRequired):
		respondError(c, http.StatusBadRequest, "KEY_REQUIRED", err.Error())
	default:
		h.internalError(c, "DATABASE_ERROR", "Failed to store key", err)
	}
}

// DeleteKey removes a stored key.
func (h *Handler) DeleteKey(c *gin.Context) {
	service, err := keys.ParseService(c.Param("service"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "UNKNOWN_SERVICE", err.Error())
		return
	}

	err = h.Keys.Delete(c.Request.Context(), service)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, StandardResponse{Success: true, Message: "Key deleted"})
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, "KEY_NOT_FOUND", "No key stored for "+string(service))
	default:
		h.internalError(c, "DATABASE_ERROR", "Failed to delete key", err)
	}
}
