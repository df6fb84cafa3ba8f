package rag

import (
	"context"
	"fmt"

	"astra-backend/internal/models"
	"astra-backend/internal/store"

	"go.uber.org/zap"
)

// Embedder is the minimal embedding contract seeding needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// therapyKnowledgeBase is the fixed corpus seeded into an empty store:
// technique descriptions, crisis-handling guidance, and
// professional-boundary notes.
var therapyKnowledgeBase = []models.KnowledgeDocument{
	{
		ID:       "cbt-basics",
		Content:  "Cognitive Behavioral Therapy (CBT) focuses on identifying and changing negative thought patterns and behaviors. It helps clients recognize the connection between thoughts, feelings, and behaviors.",
		Category: "therapeutic_approach",
	},
	{
		ID:       "active-listening",
		Content:  "Active listening involves fully concentrating on what the client is saying, reflecting their emotions, and asking clarifying questions to show understanding and empathy.",
		Category: "therapeutic_technique",
	},
	{
		ID:       "emotional-validation",
		Content:  "Emotional validation means acknowledging and accepting a person's feelings without judgment. It helps build trust and shows that their emotions are legitimate and understandable.",
		Category: "therapeutic_technique",
	},
	{
		ID:       "anxiety-management",
		Content:  "Anxiety management techniques include deep breathing exercises, progressive muscle relaxation, grounding techniques, and challenging catastrophic thinking patterns.",
		Category: "mental_health_condition",
	},
	{
		ID:       "depression-support",
		Content:  "Supporting someone with depression involves encouraging small daily activities, helping them identify negative thought patterns, and providing hope while maintaining professional boundaries.",
		Category: "mental_health_condition",
	},
	{
		ID:       "crisis-intervention",
		Content:  "In crisis situations, prioritize safety, remain calm, validate feelings, and guide toward professional resources. Never provide medical advice or diagnoses.",
		Category: "crisis_management",
	},
	{
		ID:       "boundary-setting",
		Content:  "Therapeutic boundaries maintain a professional relationship while providing support. This includes not giving personal advice, maintaining confidentiality, and staying within scope of practice.",
		Category: "professional_ethics",
	},
}

// SeedKnowledgeBase populates the backing store with the fixed corpus,
// computing an embedding for each entry. Idempotent: a non-empty store
// is left untouched. Individual insert failures are logged and skipped
// so one bad entry does not abort the rest of the seed.
func SeedKnowledgeBase(ctx context.Context, s store.Store, embedder Embedder, logger *zap.Logger) error {
	count, err := s.CountKnowledgeDocuments(ctx)
	if err != nil {
		return fmt.Errorf("checking knowledge corpus: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, doc := range therapyKnowledgeBase {
		vec, err := embedder.Embed(ctx, doc.Content)
		if err != nil {
			logger.Warn("skipping knowledge entry, embedding failed",
				zap.String("document_id", doc.ID),
				zap.Error(err))
			continue
		}

		seeded := doc
		seeded.Embedding = vec
		if err := s.CreateKnowledgeDocument(ctx, &seeded); err != nil {
			logger.Warn("failed to insert knowledge entry",
				zap.String("document_id", doc.ID),
				zap.Error(err))
		}
	}

	logger.Info("knowledge corpus seeded", zap.Int("entries", len(therapyKnowledgeBase)))
	return nil
}
