package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"paperdex/internal/ai"
	"paperdex/internal/pipeline"
	"paperdex/internal/pkg/errcode"
	"paperdex/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "document not found")
	case errors.Is(err, pipeline.ErrNotReady):
		response.Error(c, errcode.ErrNotReady, "document not processed yet")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai not configured")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
