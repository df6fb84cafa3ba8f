package rag

import (
	"errors"
	"fmt"
	"strings"

	"astra-backend/internal/models"
)

// ErrEmptyMessage is returned by Compose when no user message is supplied.
var ErrEmptyMessage = errors.New("user message is empty")

// historyWindow is the number of recent exchanges (user + assistant
// pairs) included in the prompt.
const historyWindow = 3

// systemPrompt is the fixed persona instruction that opens every
// composed prompt.
const systemPrompt = `You are a compassionate AI therapist focused on mental health and wellbeing. Your role is to:

1. STAY FOCUSED ON MENTAL HEALTH: Always keep conversations centered on mental health, emotional wellbeing, and therapeutic support. If users try to change topics, gently redirect them back to their mental health needs.

2. PROVIDE THERAPEUTIC SUPPORT: Use evidence-based therapeutic techniques like CBT, active listening, and emotional validation. Draw from your therapy knowledge base to provide informed responses.

3. MAINTAIN BOUNDARIES: You are not a replacement for professional therapy. Encourage users to seek professional help when appropriate, especially for crisis situations.

4. PREVENT TOPIC DEVIATION: If a user asks about unrelated topics (technology, politics, general knowledge, etc.), respond with something like: "I understand you're curious about that, but I'm here to focus on your mental health and wellbeing. How are you feeling today? Is there something on your mind that's affecting your emotional state?"

5. CRISIS MANAGEMENT: If someone expresses suicidal thoughts or immediate danger, prioritize their safety and direct them to crisis resources immediately.

6. BE EMPATHETIC: Validate emotions, show understanding, and create a safe space for sharing.

Remember: Your primary purpose is mental health support. Always guide conversations back to emotional wellbeing and therapeutic goals.`

const redirectionNote = `IMPORTANT: The user appears to be asking about something unrelated to mental health. Gently redirect them back to discussing their emotional wellbeing, feelings, or mental health concerns. Acknowledge their question briefly but guide the conversation back to therapeutic topics.`

// Compose assembles the full generation instruction: the persona
// prompt, an optional off-topic redirection note, retrieved knowledge
// snippets labeled by category, recent turns labeled by speaker, the
// literal user message, and a closing brevity instruction.
//
// When offTopic is set the retrieved-document block is omitted
// entirely, since no retrieval was performed for off-topic queries.
// Pure string building; the only failure mode is an empty userMessage.
func Compose(userMessage string, offTopic bool, docs []Result, history []models.Message) (string, error) {
	if strings.TrimSpace(userMessage) == "" {
		return "", ErrEmptyMessage
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	if offTopic {
		b.WriteString(redirectionNote)
		b.WriteString("\n\n")
	} else if context := formatKnowledge(docs); context != "" {
		b.WriteString("Relevant Knowledge:\n")
		b.WriteString(context)
		b.WriteString("\n\n")
	}

	if recent := formatHistory(history, historyWindow); recent != "" {
		b.WriteString("Recent Context:\n")
		b.WriteString(recent)
		b.WriteString("\n\n")
	}

	b.WriteString("User: ")
	b.WriteString(userMessage)
	b.WriteString("\n\nRespond as a compassionate therapist. Keep responses concise (2-3 sentences max) and focus on mental health. Be brief but supportive.")

	return b.String(), nil
}

func formatKnowledge(docs []Result) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("[%s] %s", d.Document.Category, d.Document.Content)
	}
	return strings.Join(parts, "\n\n")
}

// formatHistory renders the last `window` exchanges as speaker-prefixed
// lines, oldest first.
func formatHistory(history []models.Message, window int) string {
	if len(history) == 0 {
		return ""
	}

	start := len(history) - window*2
	if start < 0 {
		start = 0
	}

	lines := make([]string, 0, len(history)-start)
	for _, msg := range history[start:] {
		speaker := "User"
		if msg.Role == models.RoleAssistant {
			speaker = "Therapist"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, msg.Content))
	}
	return strings.Join(lines, "\n")
}
