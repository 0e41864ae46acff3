package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"paperdex/internal/filestore"
	"paperdex/internal/model"
	"paperdex/internal/repo"
)

func newTestCache(t *testing.T) (*ContentCache, string) {
	t.Helper()
	db, err := repo.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repo.ApplyMigrations(db))

	dir := t.TempDir()
	store, err := filestore.New("local", map[string]interface{}{"dir": dir})
	require.NoError(t, err)

	return New(repo.NewAnalysisCacheRepo(db), store), dir
}

func putFile(t *testing.T, dir, key, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, key), []byte(content), 0o644))
}

func sampleAnalysis() *model.Analysis {
	return &model.Analysis{
		Summary:  "resumen de la factura",
		Category: model.CategoryFactura,
		Tags:     []string{"pago", "iva"},
	}
}

func TestContentCache_SaveAndLoadRoundTrip(t *testing.T) {
	cache, dir := newTestCache(t)
	ctx := context.Background()
	putFile(t, dir, "doc.pdf", "contenido binario")

	require.Nil(t, cache.Load(ctx, "doc.pdf"))

	cache.Save(ctx, "doc.pdf", "texto extraído", sampleAnalysis())
	entry := cache.Load(ctx, "doc.pdf")
	require.NotNil(t, entry)
	require.Equal(t, "texto extraído", entry.Text)
	require.Equal(t, model.CategoryFactura, entry.Analysis.Category)
	require.Equal(t, []string{"pago", "iva"}, entry.Analysis.Tags)
}

func TestContentCache_IdenticalBytesShareEntry(t *testing.T) {
	cache, dir := newTestCache(t)
	ctx := context.Background()
	putFile(t, dir, "a.pdf", "mismos bytes")
	putFile(t, dir, "b.pdf", "mismos bytes")

	cache.Save(ctx, "a.pdf", "texto", sampleAnalysis())

	entry := cache.Load(ctx, "b.pdf")
	require.NotNil(t, entry)
	require.Equal(t, "texto", entry.Text)
}

func TestContentCache_DifferentBytesMiss(t *testing.T) {
	cache, dir := newTestCache(t)
	ctx := context.Background()
	putFile(t, dir, "a.pdf", "contenido uno")
	putFile(t, dir, "b.pdf", "contenido dos")

	cache.Save(ctx, "a.pdf", "texto", sampleAnalysis())
	require.Nil(t, cache.Load(ctx, "b.pdf"))
}

func TestContentCache_InvalidateThenRepopulate(t *testing.T) {
	cache, dir := newTestCache(t)
	ctx := context.Background()
	putFile(t, dir, "doc.pdf", "contenido")

	cache.Save(ctx, "doc.pdf", "v1", sampleAnalysis())
	cache.Invalidate(ctx, "doc.pdf")
	require.Nil(t, cache.Load(ctx, "doc.pdf"))

	cache.Save(ctx, "doc.pdf", "v2", sampleAnalysis())
	entry := cache.Load(ctx, "doc.pdf")
	require.NotNil(t, entry)
	require.Equal(t, "v2", entry.Text)
}

func TestContentCache_ClearAll(t *testing.T) {
	cache, dir := newTestCache(t)
	ctx := context.Background()
	putFile(t, dir, "a.pdf", "uno")
	putFile(t, dir, "b.pdf", "dos")

	cache.Save(ctx, "a.pdf", "ta", sampleAnalysis())
	cache.Save(ctx, "b.pdf", "tb", sampleAnalysis())
	cache.ClearAll(ctx)

	require.Nil(t, cache.Load(ctx, "a.pdf"))
	require.Nil(t, cache.Load(ctx, "b.pdf"))
}

func TestContentCache_MissingContentSwallowed(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	// No file behind the key: every operation degrades quietly.
	require.Nil(t, cache.Load(ctx, "no-such.pdf"))
	cache.Save(ctx, "no-such.pdf", "texto", sampleAnalysis())
	cache.Invalidate(ctx, "no-such.pdf")
}

func TestContentCache_PruneOlderThan(t *testing.T) {
	cache, dir := newTestCache(t)
	ctx := context.Background()
	putFile(t, dir, "viejo.pdf", "contenido viejo")

	cache.Save(ctx, "viejo.pdf", "texto", sampleAnalysis())

	// A zero retention window makes every existing entry stale.
	time.Sleep(1100 * time.Millisecond)
	pruned, err := cache.PruneOlderThan(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), pruned)
	require.Nil(t, cache.Load(ctx, "viejo.pdf"))
}
