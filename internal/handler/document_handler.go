package handler

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"paperdex/internal/filestore"
	"paperdex/internal/model"
	"paperdex/internal/pipeline"
	"paperdex/internal/pkg/errcode"
	"paperdex/internal/pkg/response"
)

var allowedExtensions = map[string]bool{
	".pdf":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".png":      true,
	".jpg":      true,
	".jpeg":     true,
}

type DocumentHandler struct {
	orchestrator *pipeline.Orchestrator
	store        filestore.Store
}

func NewDocumentHandler(orchestrator *pipeline.Orchestrator, store filestore.Store) *DocumentHandler {
	return &DocumentHandler{orchestrator: orchestrator, store: store}
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.orchestrator.Documents(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	// The list view carries status/progress/analysis; full text only
	// comes back from Get.
	for _, doc := range docs {
		doc.Text = ""
	}
	response.Success(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.orchestrator.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"document": doc})
}

func (h *DocumentHandler) Import(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid multipart form")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, errcode.ErrInvalid, "no files provided")
		return
	}

	refs := make([]pipeline.ImportRef, 0, len(files))
	// The batch registers atomically: a failure on any file discards the
	// uploads already stored, so no orphaned keys survive.
	discard := func() {
		for _, ref := range refs {
			if err := h.store.Delete(c.Request.Context(), ref.StorageKey); err != nil {
				logutil.GetLogger(c.Request.Context()).Warn("discard stored upload failed",
					zap.String("key", ref.StorageKey), zap.Error(err))
			}
		}
	}
	for _, header := range files {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedExtensions[ext] {
			discard()
			response.Error(c, errcode.ErrInvalidFile, "unsupported file type: "+ext)
			return
		}
		file, err := header.Open()
		if err != nil {
			discard()
			response.Error(c, errcode.ErrImportFailed, "read upload failed")
			return
		}
		key := uuid.NewString() + ext
		err = h.store.Save(c.Request.Context(), key, file, header.Size)
		file.Close()
		if err != nil {
			discard()
			response.Error(c, errcode.ErrImportFailed, "store upload failed")
			return
		}
		refs = append(refs, pipeline.ImportRef{
			StorageKey: key,
			Title:      header.Filename,
		})
	}

	ids, err := h.orchestrator.Import(c.Request.Context(), refs)
	if err != nil {
		discard()
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ids": ids})
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	if err := h.orchestrator.Reprocess(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *DocumentHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	answer, err := h.orchestrator.AnswerQuestion(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"answer": answer})
}

func trimRanked(results []*model.RankedResult) []*model.RankedResult {
	for _, result := range results {
		if result.Document != nil {
			result.Document.Text = ""
		}
	}
	return results
}
