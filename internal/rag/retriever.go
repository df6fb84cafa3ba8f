package rag

import (
	"context"
	"math"
	"sort"

	"astra-backend/internal/embedding"
	"astra-backend/internal/models"

	"go.uber.org/zap"
)

// Result is a knowledge document annotated with its similarity to the
// query, in [-1, 1]. Produced per query, never persisted.
type Result struct {
	Document models.KnowledgeDocument
	Score    float64
}

// Retriever ranks cached knowledge documents by cosine similarity to a
// query vector. Retrieval is an optimization, not a correctness
// requirement, so it never fails: per-document similarity errors are
// skipped and an empty cache yields an empty result.
type Retriever struct {
	cache  *DocumentCache
	logger *zap.Logger
}

func NewRetriever(cache *DocumentCache, logger *zap.Logger) *Retriever {
	return &Retriever{cache: cache, logger: logger}
}

// Search returns at most limit results, ordered by descending
// similarity. Deterministic given the same cache snapshot and query.
func (r *Retriever) Search(ctx context.Context, query []float32, limit int) []Result {
	docs := r.cache.Documents(ctx)
	if len(docs) == 0 || limit <= 0 {
		return nil
	}

	results := make([]Result, 0, len(docs))
	for _, doc := range docs {
		score, err := embedding.CosineSimilarity(query, doc.Embedding)
		if err != nil {
			r.logger.Warn("skipping document with incompatible embedding",
				zap.String("document_id", doc.ID),
				zap.Error(err))
			continue
		}
		results = append(results, Result{Document: doc, Score: score})
	}

	// NaN scores (zero vectors) sort last.
	sort.SliceStable(results, func(i, j int) bool {
		si, sj := results[i].Score, results[j].Score
		if math.IsNaN(si) {
			return false
		}
		if math.IsNaN(sj) {
			return true
		}
		return si > sj
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
