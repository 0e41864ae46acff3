package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Documents *DocumentHandler
	Search    *SearchHandler
	Cache     *CacheHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/documents", deps.Documents.List)
	api.POST("/documents/import", deps.Documents.Import)
	api.GET("/documents/:id", deps.Documents.Get)
	api.POST("/documents/:id/reprocess", deps.Documents.Reprocess)
	api.POST("/documents/:id/question", deps.Documents.Ask)

	api.PUT("/search", deps.Search.SetQuery)
	api.GET("/search", deps.Search.Results)

	api.DELETE("/cache", deps.Cache.Clear)
}
