package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"paperdex/internal/lang"
)

type fakeEmbedder struct {
	embed func(text string, language lang.Language) ([]float32, error)
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, language lang.Language) ([]float32, error) {
	f.calls++
	if f.embed == nil {
		return nil, errors.New("no embed stub")
	}
	return f.embed(text, language)
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

func TestRetrieverContext_ShortTextReturnedVerbatim(t *testing.T) {
	embedder := &fakeEmbedder{}
	retriever := NewRetriever(embedder)

	text := "contenido corto del documento"
	got := retriever.Context(context.Background(), text, "¿de qué trata?", lang.Spanish)
	require.Equal(t, text, got)
	require.Zero(t, embedder.calls)
}

func TestRetrieverContext_SelectsMostSimilarChunks(t *testing.T) {
	filler := strings.Repeat("relleno sin relación alguna. ", 80)
	relevant := "El importe total de la factura es 1200 euros. " + strings.Repeat("detalle. ", 50)
	paragraphs := []string{filler, filler, relevant, filler, filler}
	text := strings.Join(paragraphs, "\n\n")
	require.Greater(t, utf8.RuneCountInString(text), contextBudget)

	embedder := &fakeEmbedder{
		embed: func(text string, _ lang.Language) ([]float32, error) {
			if strings.Contains(text, "importe total") {
				return []float32{1, 0}, nil
			}
			return []float32{0, 1}, nil
		},
	}
	retriever := NewRetriever(embedder)

	got := retriever.Context(context.Background(), text, "¿cuál es el importe total?", lang.Spanish)
	require.Contains(t, got, "importe total de la factura")
	require.LessOrEqual(t, utf8.RuneCountInString(got), contextBudget)
}

func TestRetrieverContext_PrefixFallbackWhenEmbeddingFails(t *testing.T) {
	text := strings.Repeat("párrafo largo del documento. ", 400)
	embedder := &fakeEmbedder{
		embed: func(string, lang.Language) ([]float32, error) {
			return nil, errors.New("embedding down")
		},
	}
	retriever := NewRetriever(embedder)

	got := retriever.Context(context.Background(), text, "pregunta", lang.Spanish)
	require.Equal(t, TruncateRunes(text, contextBudget), got)
}

func TestRetrieverContext_NoEmbedderFallsBackToPrefix(t *testing.T) {
	text := strings.Repeat("x", contextBudget+500)
	retriever := NewRetriever(nil)

	got := retriever.Context(context.Background(), text, "pregunta", lang.Spanish)
	require.Equal(t, contextBudget, utf8.RuneCountInString(got))
}

func TestRetrieverEmbed_RetriesDefaultLanguage(t *testing.T) {
	var languages []lang.Language
	embedder := &fakeEmbedder{
		embed: func(_ string, language lang.Language) ([]float32, error) {
			languages = append(languages, language)
			if language == lang.English {
				return nil, ErrLanguageUnsupported
			}
			return []float32{1}, nil
		},
	}
	retriever := NewRetriever(embedder)

	vec, err := retriever.embed(context.Background(), "text", lang.English)
	require.NoError(t, err)
	require.Equal(t, []float32{1}, vec)
	require.Equal(t, []lang.Language{lang.English, lang.Spanish}, languages)
}

func TestCosine(t *testing.T) {
	score, ok := Cosine([]float32{1, 0}, []float32{1, 0})
	require.True(t, ok)
	require.InDelta(t, 1.0, score, 1e-9)

	score, ok = Cosine([]float32{1, 0}, []float32{0, 1})
	require.True(t, ok)
	require.InDelta(t, 0.0, score, 1e-9)

	_, ok = Cosine([]float32{1, 0}, []float32{1})
	require.False(t, ok)

	_, ok = Cosine(nil, nil)
	require.False(t, ok)

	_, ok = Cosine([]float32{0, 0}, []float32{1, 1})
	require.False(t, ok)
}
