package search

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"paperdex/internal/ai"
	"paperdex/internal/lang"
	"paperdex/internal/model"
)

const (
	// semanticThreshold admits a document on embedding similarity alone.
	semanticThreshold = 0.32
	// fuzzyThreshold admits a document on lexical similarity alone,
	// which keeps typo'd queries working when embeddings disagree.
	fuzzyThreshold = 0.82
)

// Ranker orders an analyzed document collection against a free-text
// query by the max of semantic and fuzzy lexical similarity.
type Ranker struct {
	embedder ai.IEmbedder
}

func NewRanker(embedder ai.IEmbedder) *Ranker {
	return &Ranker{embedder: embedder}
}

// Rank returns the matching documents sorted by combined score
// descending; ties keep input order. An empty query returns every
// document unranked, in input order.
func (r *Ranker) Rank(ctx context.Context, query string, docs []*model.DocumentRecord) []*model.RankedResult {
	query = strings.TrimSpace(query)
	if query == "" {
		results := make([]*model.RankedResult, 0, len(docs))
		for _, doc := range docs {
			results = append(results, &model.RankedResult{Document: doc})
		}
		return results
	}

	language := lang.Detect(query)
	queryVec := r.embed(ctx, query, language)
	queryTokens := tokens(query)

	results := make([]*model.RankedResult, 0, len(docs))
	for _, doc := range docs {
		if doc.Analysis == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		searchable := doc.Analysis.SearchableText()

		similarity := -1.0
		if queryVec != nil {
			if docVec := r.embed(ctx, searchable, language); docVec != nil {
				if score, ok := ai.Cosine(queryVec, docVec); ok {
					similarity = score
				}
			}
		}
		fuzzy := fuzzyScore(queryTokens, tokens(searchable))

		if similarity < semanticThreshold && fuzzy < fuzzyThreshold {
			continue
		}
		combined := similarity
		if fuzzy > combined {
			combined = fuzzy
		}
		results = append(results, &model.RankedResult{Document: doc, Score: combined})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// embed falls back to the default language's model when the detected
// one is unsupported, and to nil (fuzzy-only ranking) on any failure.
func (r *Ranker) embed(ctx context.Context, text string, language lang.Language) []float32 {
	if r.embedder == nil {
		return nil
	}
	vec, err := r.embedder.Embed(ctx, text, language)
	if errors.Is(err, ai.ErrLanguageUnsupported) && language != lang.Default {
		vec, err = r.embedder.Embed(ctx, text, lang.Default)
	}
	if err != nil {
		logutil.GetLogger(ctx).Debug("embedding unavailable for ranking", zap.Error(err))
		return nil
	}
	return vec
}
