package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"paperdex/internal/lang"
	"paperdex/internal/model"
)

type fakeEmbedder struct {
	embed func(text string, language lang.Language) ([]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, language lang.Language) ([]float32, error) {
	if f.embed == nil {
		return nil, errors.New("no embed stub")
	}
	return f.embed(text, language)
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

func analyzedDoc(id, summary string, tags ...string) *model.DocumentRecord {
	return &model.DocumentRecord{
		ID:     id,
		Status: model.StatusDone,
		Analysis: &model.Analysis{
			Summary:  summary,
			Category: model.CategoryOtro,
			Tags:     tags,
		},
	}
}

func TestRank_EmptyQueryReturnsAllInInputOrder(t *testing.T) {
	ranker := NewRanker(nil)
	docs := []*model.DocumentRecord{
		analyzedDoc("a", "primero"),
		{ID: "b", Status: model.StatusOCR},
		analyzedDoc("c", "tercero"),
	}

	results := ranker.Rank(context.Background(), "  ", docs)
	require.Len(t, results, 3)
	require.Equal(t, "a", results[0].Document.ID)
	require.Equal(t, "b", results[1].Document.ID)
	require.Equal(t, "c", results[2].Document.ID)
	for _, r := range results {
		require.Zero(t, r.Score)
	}
}

func TestRank_SkipsDocumentsWithoutAnalysis(t *testing.T) {
	ranker := NewRanker(nil)
	docs := []*model.DocumentRecord{
		{ID: "pending", Status: model.StatusAnalyzing},
		analyzedDoc("done", "factura de servicios"),
	}

	results := ranker.Rank(context.Background(), "factura", docs)
	require.Len(t, results, 1)
	require.Equal(t, "done", results[0].Document.ID)
}

func TestRank_FuzzyOnlyWhenEmbeddingUnavailable(t *testing.T) {
	embedder := &fakeEmbedder{
		embed: func(string, lang.Language) ([]float32, error) {
			return nil, errors.New("embedding down")
		},
	}
	ranker := NewRanker(embedder)
	docs := []*model.DocumentRecord{
		analyzedDoc("cv", "curriculum vitae actualizado"),
		analyzedDoc("other", "contrato de alquiler"),
	}

	// Typo'd query still matches lexically.
	results := ranker.Rank(context.Background(), "curiculum", docs)
	require.Len(t, results, 1)
	require.Equal(t, "cv", results[0].Document.ID)
	require.GreaterOrEqual(t, results[0].Score, fuzzyThreshold)
}

func TestRank_SemanticAdmissionAndOrdering(t *testing.T) {
	embedder := &fakeEmbedder{
		embed: func(text string, _ lang.Language) ([]float32, error) {
			switch {
			case strings.Contains(text, "presupuesto"):
				return []float32{1, 0}, nil
			case strings.Contains(text, "gastos"):
				return []float32{0.8, 0.6}, nil
			default:
				return []float32{0, 1}, nil
			}
		},
	}
	ranker := NewRanker(embedder)
	docs := []*model.DocumentRecord{
		analyzedDoc("unrelated", "poema sin relación"),
		analyzedDoc("close", "informe de gastos"),
		analyzedDoc("exact", "presupuesto anual"),
	}

	results := ranker.Rank(context.Background(), "presupuesto", docs)
	require.Len(t, results, 2)
	require.Equal(t, "exact", results[0].Document.ID)
	require.Equal(t, "close", results[1].Document.ID)
	require.Greater(t, results[0].Score, results[1].Score)
}

func TestRank_CombinedScoreIsMaxOfBoth(t *testing.T) {
	embedder := &fakeEmbedder{
		embed: func(string, lang.Language) ([]float32, error) {
			return []float32{1, 1}, nil
		},
	}
	ranker := NewRanker(embedder)
	docs := []*model.DocumentRecord{
		analyzedDoc("doc", "factura de luz"),
	}

	results := ranker.Rank(context.Background(), "factura", docs)
	require.Len(t, results, 1)
	// Identical vectors and an exact token match both score 1.0.
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestRank_ZeroNormEmbeddingFallsBackToFuzzy(t *testing.T) {
	embedder := &fakeEmbedder{
		embed: func(text string, _ lang.Language) ([]float32, error) {
			if strings.Contains(text, "factura") && len(text) < 20 {
				return []float32{1, 0}, nil
			}
			return []float32{0, 0}, nil
		},
	}
	ranker := NewRanker(embedder)
	docs := []*model.DocumentRecord{
		analyzedDoc("doc", "factura telefónica"),
		analyzedDoc("other", "carta personal"),
	}

	results := ranker.Rank(context.Background(), "factura", docs)
	require.Len(t, results, 1)
	require.Equal(t, "doc", results[0].Document.ID)
}
