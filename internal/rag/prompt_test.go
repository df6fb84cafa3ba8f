package rag

import (
	"errors"
	"strings"
	"testing"

	"astra-backend/internal/models"
)

func TestComposeEmptyMessage(t *testing.T) {
	for _, msg := range []string{"", "   ", "\n\t"} {
		if _, err := Compose(msg, false, nil, nil); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Compose(%q) error = %v, want ErrEmptyMessage", msg, err)
		}
	}
}

func TestComposeOnTopicWithContext(t *testing.T) {
	docs := []Result{
		{Document: models.KnowledgeDocument{Content: "CBT reframes negative thoughts.", Category: "therapeutic_approach"}, Score: 0.9},
		{Document: models.KnowledgeDocument{Content: "Grounding calms acute anxiety.", Category: "therapeutic_technique"}, Score: 0.8},
	}
	history := []models.Message{
		{Role: models.RoleUser, Content: "I had a rough week"},
		{Role: models.RoleAssistant, Content: "That sounds exhausting."},
	}

	prompt, err := Compose("I keep worrying about work", false, docs, history)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}

	for _, want := range []string{
		"[therapeutic_approach] CBT reframes negative thoughts.",
		"[therapeutic_technique] Grounding calms acute anxiety.",
		"Relevant Knowledge:",
		"Recent Context:",
		"User: I had a rough week",
		"Therapist: That sounds exhausting.",
		"User: I keep worrying about work",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if strings.Contains(prompt, redirectionNote) {
		t.Error("on-topic prompt contains the redirection note")
	}
	if !strings.HasPrefix(prompt, systemPrompt) {
		t.Error("prompt does not begin with the persona instruction")
	}
}

func TestComposeOffTopicOmitsKnowledge(t *testing.T) {
	docs := []Result{
		{Document: models.KnowledgeDocument{Content: "should not appear", Category: "x"}},
	}

	prompt, err := Compose("what's the weather", true, docs, nil)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}

	if !strings.Contains(prompt, redirectionNote) {
		t.Error("off-topic prompt missing the redirection note")
	}
	if strings.Contains(prompt, "Relevant Knowledge:") {
		t.Error("off-topic prompt includes a knowledge block")
	}
}

func TestComposeHistoryWindow(t *testing.T) {
	var history []models.Message
	for i := 0; i < 10; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		history = append(history, models.Message{Role: role, Content: strings.Repeat("x", 1) + string(rune('a'+i))})
	}

	prompt, err := Compose("message", false, nil, history)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}

	// Only the last three exchanges (six turns) appear.
	if strings.Contains(prompt, "User: xa") {
		t.Error("prompt contains history older than the window")
	}
	if !strings.Contains(prompt, "User: xe") {
		t.Error("prompt missing history inside the window")
	}
}
