package handler

import (
	"github.com/gin-gonic/gin"

	"paperdex/internal/pipeline"
	"paperdex/internal/pkg/response"
)

type CacheHandler struct {
	orchestrator *pipeline.Orchestrator
}

func NewCacheHandler(orchestrator *pipeline.Orchestrator) *CacheHandler {
	return &CacheHandler{orchestrator: orchestrator}
}

func (h *CacheHandler) Clear(c *gin.Context) {
	if err := h.orchestrator.ClearCache(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}
