package handler

import (
	"github.com/gin-gonic/gin"

	"paperdex/internal/pipeline"
	"paperdex/internal/pkg/errcode"
	"paperdex/internal/pkg/response"
)

type SearchHandler struct {
	orchestrator *pipeline.Orchestrator
}

func NewSearchHandler(orchestrator *pipeline.Orchestrator) *SearchHandler {
	return &SearchHandler{orchestrator: orchestrator}
}

type setQueryRequest struct {
	Query string `json:"query"`
}

// SetQuery replaces the active search query. Ranking runs
// asynchronously; Results reflects it once the newest computation
// publishes.
func (h *SearchHandler) SetQuery(c *gin.Context) {
	var req setQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.orchestrator.SetQuery(c.Request.Context(), req.Query); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}

func (h *SearchHandler) Results(c *gin.Context) {
	results, query, err := h.orchestrator.Ranked(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"query": query, "results": trimRanked(results)})
}
