package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"paperdex/internal/ai"
	"paperdex/internal/cache"
	"paperdex/internal/extract"
	"paperdex/internal/filestore"
	"paperdex/internal/model"
	"paperdex/internal/pipeline"
	"paperdex/internal/repo"
	"paperdex/internal/search"
)

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "respuesta", nil
}

func (stubGenerator) GenerateStructured(ctx context.Context, prompt string) (*ai.StructuredAnalysis, error) {
	return &ai.StructuredAnalysis{Summary: "resumen", Category: "Otro"}, nil
}

type stubRecognizer struct{}

func (stubRecognizer) RecognizeText(ctx context.Context, image []byte, hints []string) (string, error) {
	return "texto", nil
}

func newImportHandler(t *testing.T) (*DocumentHandler, *pipeline.Orchestrator, string) {
	t.Helper()
	db, err := repo.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repo.ApplyMigrations(db))

	storeDir := t.TempDir()
	store, err := filestore.New("local", map[string]interface{}{"dir": storeDir})
	require.NoError(t, err)

	analyzer := ai.NewAnalyzer(stubGenerator{}, ai.NewRetriever(nil))
	orchestrator := pipeline.New(pipeline.Deps{
		Extractor: extract.New(stubRecognizer{}),
		Analyzer:  analyzer,
		Cache:     cache.New(repo.NewAnalysisCacheRepo(db), store),
		Ranker:    search.NewRanker(nil),
		Store:     store,
		Languages: []string{"es"},
	})
	ctx, cancel := context.WithCancel(context.Background())
	go orchestrator.Run(ctx)
	t.Cleanup(cancel)

	return NewDocumentHandler(orchestrator, store), orchestrator, storeDir
}

func multipartImportRequest(t *testing.T, files [][2]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, file := range files {
		part, err := writer.CreateFormFile("files", file[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func runImport(t *testing.T, h *DocumentHandler, files [][2]string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	body, contentType := multipartImportRequest(t, files)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/documents/import", body)
	c.Request.Header.Set("Content-Type", contentType)
	h.Import(c)
	return w
}

func storedKeys(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Name())
	}
	return keys
}

func TestImportHandler_AcceptedBatchIsStoredAndProcessed(t *testing.T) {
	h, orchestrator, storeDir := newImportHandler(t)

	runImport(t, h, [][2]string{{"nota.txt", "contenido de la nota"}})

	require.Len(t, storedKeys(t, storeDir), 1)
	require.Eventually(t, func() bool {
		docs, err := orchestrator.Documents(context.Background())
		return err == nil && len(docs) == 1 && docs[0].Status == model.StatusDone
	}, 5*time.Second, 10*time.Millisecond)
}

func TestImportHandler_RejectedBatchLeavesNoOrphanedUploads(t *testing.T) {
	h, orchestrator, storeDir := newImportHandler(t)

	// The second file's extension sinks the whole batch; the first one
	// was already stored and must be removed again.
	runImport(t, h, [][2]string{
		{"valida.txt", "contenido válido"},
		{"rara.docx", "da igual"},
	})

	require.Empty(t, storedKeys(t, storeDir))
	docs, err := orchestrator.Documents(context.Background())
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestImportHandler_EmptyBatchRejected(t *testing.T) {
	h, _, storeDir := newImportHandler(t)

	runImport(t, h, nil)

	require.Empty(t, storedKeys(t, storeDir))
}
