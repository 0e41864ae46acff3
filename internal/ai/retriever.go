package ai

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"paperdex/internal/lang"
)

const (
	// contextBudget is the largest context, in runes, a QA prompt may
	// carry.
	contextBudget = 9000
	// retrievalChunkSize bounds the chunks scored against the question.
	retrievalChunkSize = 2500
	// retrievalTopK chunks are joined into the final context.
	retrievalTopK = 3
)

// Retriever selects a bounded-size, question-relevant context out of a
// long document text.
type Retriever struct {
	embedder IEmbedder
}

func NewRetriever(embedder IEmbedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Context returns text verbatim when it fits the budget; otherwise it
// ranks paragraph-aligned chunks by cosine similarity to the question
// and joins the best ones. With no usable embedder it degrades to a
// plain prefix of the text.
func (r *Retriever) Context(ctx context.Context, text, question string, language lang.Language) string {
	if utf8.RuneCountInString(text) <= contextBudget {
		return text
	}
	logger := logutil.GetLogger(ctx)

	chunks := SplitChunks(text, retrievalChunkSize)
	questionVec, err := r.embed(ctx, question, language)
	if err != nil {
		logger.Warn("question embedding unavailable, using text prefix", zap.Error(err))
		return TruncateRunes(text, contextBudget)
	}

	type scored struct {
		chunk string
		score float64
	}
	ranked := make([]scored, 0, len(chunks))
	for _, chunk := range chunks {
		chunkVec, err := r.embed(ctx, chunk, language)
		if err != nil {
			continue
		}
		score, ok := Cosine(questionVec, chunkVec)
		if !ok {
			continue
		}
		ranked = append(ranked, scored{chunk: chunk, score: score})
	}
	if len(ranked) == 0 {
		return TruncateRunes(text, contextBudget)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	top := retrievalTopK
	if top > len(ranked) {
		top = len(ranked)
	}
	parts := make([]string, 0, top)
	for i := 0; i < top; i++ {
		parts = append(parts, ranked[i].chunk)
	}
	joined := strings.Join(parts, paragraphSeparator)
	// Oversized paragraphs can still blow the budget after selection.
	return TruncateRunes(joined, contextBudget)
}

// embed retries under the default language when the requested one has
// no model.
func (r *Retriever) embed(ctx context.Context, text string, language lang.Language) ([]float32, error) {
	if r.embedder == nil {
		return nil, ErrUnavailable
	}
	vec, err := r.embedder.Embed(ctx, text, language)
	if errors.Is(err, ErrLanguageUnsupported) && language != lang.Default {
		return r.embedder.Embed(ctx, text, lang.Default)
	}
	return vec, err
}
