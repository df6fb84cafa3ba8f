// Package embedding wraps the external embedding provider and the
// process-wide query-embedding cache used to avoid redundant calls.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var (
	// ErrEmbeddingFailed wraps provider errors and malformed provider
	// output. Callers treat it as non-fatal: retrieval degrades to an
	// empty context instead of aborting the request.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrDimensionMismatch is returned by CosineSimilarity when the
	// two vectors differ in length.
	ErrDimensionMismatch = errors.New("vectors must have the same length")
)

// Client generates embeddings via the OpenAI API and caches recent
// query embeddings keyed by normalized text.
type Client struct {
	api    *openai.Client
	model  openai.EmbeddingModel
	cache  *queryCache
	logger *zap.Logger
}

func NewClient(apiKey, model string, cacheTTL time.Duration, logger *zap.Logger) *Client {
	return &Client{
		api:    openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
		cache:  newQueryCache(cacheTTL, defaultCacheSize),
		logger: logger,
	}
}

// Embed converts text to a fixed-length vector with a live provider
// call. Fails with ErrEmbeddingFailed on provider errors or malformed
// output.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty embedding", ErrEmbeddingFailed)
	}
	return resp.Data[0].Embedding, nil
}

// EmbedCached returns a cached embedding for the normalized text when
// one is fresh enough, falling back to a live Embed call on miss.
func (c *Client) EmbedCached(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.get(text); ok {
		return vec, nil
	}

	vec, err := c.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.put(text, vec)
	return vec, nil
}

// CosineSimilarity computes the directional closeness of two vectors
// in [-1, 1]: the dot product divided by the product of the Euclidean
// norms. A zero vector yields NaN; callers that cannot tolerate NaN
// must guard for it themselves.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
