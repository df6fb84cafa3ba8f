// Package llm wraps the text-generation provider: incremental token
// streaming seeded with conversation history, and single-shot
// completions for title generation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"astra-backend/internal/models"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// maxTitleLength caps generated conversation titles.
const maxTitleLength = 80

type Client struct {
	api        *openai.Client
	chatModel  string
	titleModel string
	logger     *zap.Logger
}

func NewClient(apiKey, chatModel, titleModel string, logger *zap.Logger) *Client {
	return &Client{
		api:        openai.NewClient(apiKey),
		chatModel:  chatModel,
		titleModel: titleModel,
		logger:     logger,
	}
}

// StreamReply opens a token stream seeded with the prior-turn history
// and the composed prompt as the live user turn, invoking onChunk for
// each token chunk as it arrives. It returns the accumulated text and,
// when the stream ends abnormally, the provider or forwarding error.
// Whatever text accumulated before the failure is still returned so
// callers can persist the partial reply.
func (c *Client) StreamReply(ctx context.Context, history []models.Message, prompt string, onChunk func(string) error) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("opening generation stream: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return full.String(), fmt.Errorf("generation stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if err := onChunk(chunk); err != nil {
			// Caller stopped consuming (client disconnect); return
			// what we have for best-effort persistence.
			return full.String(), fmt.Errorf("forwarding chunk: %w", err)
		}
	}
}

// GenerateTitle summarizes seed text into a short conversation title
// with a single completion call, then sanitizes the result.
func (c *Client) GenerateTitle(ctx context.Context, seed string) (string, error) {
	prompt := strings.Join([]string{
		"Summarize the following user message into a very short, human-readable chat title:",
		"- Max 8 words",
		"- No surrounding quotes",
		"- No trailing punctuation",
		"",
		fmt.Sprintf(`Message: """%s"""`, seed),
		"",
		"Title:",
	}, "\n")

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.titleModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   32,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("title generation returned no choices")
	}

	title := SanitizeTitle(resp.Choices[0].Message.Content)
	if title == "" {
		return "", fmt.Errorf("title generation returned empty text")
	}
	return title, nil
}

// SanitizeTitle trims whitespace plus leading/trailing quote and
// markup characters, and caps the result at maxTitleLength runes.
func SanitizeTitle(raw string) string {
	title := strings.TrimFunc(raw, func(r rune) bool {
		switch r {
		case '"', '\'', '#', '*', '-', '–':
			return true
		}
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	runes := []rune(title)
	if len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}
	return title
}
