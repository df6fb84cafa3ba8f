package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"astra-backend/internal/models"
	"astra-backend/internal/notify"
	"astra-backend/internal/rag"
	"astra-backend/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	mu          sync.Mutex
	chunks      []string
	streamErr   error
	title       string
	titleErr    error
	streamCalls int
	titleCalls  int
	lastHistory []models.Message
	lastPrompt  string
}

func (g *fakeGenerator) StreamReply(ctx context.Context, history []models.Message, prompt string, onChunk func(string) error) (string, error) {
	g.mu.Lock()
	g.streamCalls++
	g.lastHistory = history
	g.lastPrompt = prompt
	g.mu.Unlock()

	var full strings.Builder
	for _, c := range g.chunks {
		full.WriteString(c)
		if err := onChunk(c); err != nil {
			return full.String(), err
		}
	}
	return full.String(), g.streamErr
}

func (g *fakeGenerator) GenerateTitle(ctx context.Context, seed string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.titleCalls++
	return g.title, g.titleErr
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeEmbedder) EmbedCached(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0}, nil
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	results []rag.Result
}

func (s *fakeSearcher) Search(ctx context.Context, query []float32, limit int) []rag.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.results
}

type chatFixture struct {
	svc        *ChatService
	store      *store.MemoryStore
	generator  *fakeGenerator
	embedder   *fakeEmbedder
	searcher   *fakeSearcher
	background *Background
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	logger := zap.NewNop()
	mem := store.NewMemoryStore()
	gen := &fakeGenerator{
		chunks: []string{"It sounds like ", "work has been weighing on you."},
		title:  "Worrying About Work",
	}
	emb := &fakeEmbedder{}
	search := &fakeSearcher{results: []rag.Result{
		{Document: models.KnowledgeDocument{Content: "Grounding helps.", Category: "therapeutic_technique"}, Score: 0.9},
	}}
	bg := NewBackground(5*time.Second, logger, notify.NewSlackNotifier("", "", logger))

	return &chatFixture{
		svc:        NewChatService(mem, gen, emb, search, bg, time.Minute, logger),
		store:      mem,
		generator:  gen,
		embedder:   emb,
		searcher:   search,
		background: bg,
	}
}

func chatRequest(content string) models.ChatRequest {
	return models.ChatRequest{
		Messages: []models.ChatMessage{{Role: models.RoleUser, Content: content}},
	}
}

func TestChatNewSessionWithTitle(t *testing.T) {
	f := newChatFixture(t)
	userID := uuid.New()

	req := chatRequest("I can't stop worrying about work")
	req.WantTitle = true
	req.Message = "I can't stop worrying about work"

	prep, err := f.svc.Prepare(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !prep.NewSession {
		t.Error("expected a newly created session")
	}
	if prep.SessionID == uuid.Nil {
		t.Error("session ID not set")
	}
	if prep.Title != "Worrying About Work" {
		t.Errorf("title = %q, want %q", prep.Title, "Worrying About Work")
	}
	if prep.OffTopic {
		t.Error("on-topic message classified off-topic")
	}
	if prep.FastReply != "" {
		t.Errorf("unexpected fast-path reply %q", prep.FastReply)
	}

	var body strings.Builder
	if err := f.svc.StreamReply(context.Background(), prep, func(chunk string) error {
		body.WriteString(chunk)
		return nil
	}); err != nil {
		t.Fatalf("StreamReply: %v", err)
	}
	if body.String() == "" {
		t.Error("streamed body is empty")
	}

	f.background.Wait()

	msgs, err := f.store.ListMessagesBySession(context.Background(), prep.SessionID)
	if err != nil {
		t.Fatalf("listing messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[1].Role != models.RoleAssistant {
		t.Errorf("message roles = [%s, %s], want [user, assistant]", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Content != body.String() {
		t.Errorf("persisted assistant text differs from streamed body")
	}
	if msgs[1].Truncated {
		t.Error("clean stream persisted as truncated")
	}

	sess, err := f.store.GetSessionByID(context.Background(), prep.SessionID)
	if err != nil {
		t.Fatalf("fetching session: %v", err)
	}
	if sess.Title == nil || *sess.Title != "Worrying About Work" {
		t.Error("generated title not applied to the session")
	}
}

func TestChatForeignSessionRejected(t *testing.T) {
	f := newChatFixture(t)

	owner := uuid.New()
	sess, err := f.store.CreateSession(context.Background(), uuid.New(), owner)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}

	req := chatRequest("I feel stuck")
	req.ConversationID = &sess.ID

	_, err = f.svc.Prepare(context.Background(), uuid.New(), req)
	if !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("Prepare error = %v, want ErrInvalidConversation", err)
	}

	f.background.Wait()
	msgs, _ := f.store.ListMessagesBySession(context.Background(), sess.ID)
	if len(msgs) != 0 {
		t.Errorf("persisted %d messages for rejected request, want 0", len(msgs))
	}
}

func TestChatUnknownSessionRejected(t *testing.T) {
	f := newChatFixture(t)

	missing := uuid.New()
	req := chatRequest("I feel stuck")
	req.ConversationID = &missing

	if _, err := f.svc.Prepare(context.Background(), uuid.New(), req); !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("Prepare error = %v, want ErrInvalidConversation", err)
	}
}

func TestChatFastPath(t *testing.T) {
	f := newChatFixture(t)
	userID := uuid.New()

	prep, err := f.svc.Prepare(context.Background(), userID, chatRequest("thanks"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	want := FastResponse("thanks")
	if prep.FastReply != want {
		t.Errorf("fast reply = %q, want %q", prep.FastReply, want)
	}

	f.svc.FinishFastPath(prep)
	f.background.Wait()

	if f.generator.streamCalls != 0 {
		t.Errorf("generation stream opened %d times on fast path, want 0", f.generator.streamCalls)
	}
	if f.embedder.calls != 0 {
		t.Errorf("embedder called %d times on fast path, want 0", f.embedder.calls)
	}
	if f.searcher.calls != 0 {
		t.Errorf("retrieval called %d times on fast path, want 0", f.searcher.calls)
	}

	msgs, _ := f.store.ListMessagesBySession(context.Background(), prep.SessionID)
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[0].Content != "thanks" {
		t.Errorf("first persisted message = %s %q, want user \"thanks\"", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != models.RoleAssistant || msgs[1].Content != want {
		t.Errorf("second persisted message = %s %q, want the canned reply", msgs[1].Role, msgs[1].Content)
	}
}

func TestChatOffTopicSkipsRetrieval(t *testing.T) {
	f := newChatFixture(t)

	prep, err := f.svc.Prepare(context.Background(), uuid.New(), chatRequest("What's the weather like today"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !prep.OffTopic {
		t.Fatal("weather question not classified off-topic")
	}
	if f.embedder.calls != 0 {
		t.Errorf("embedder called %d times for off-topic query, want 0", f.embedder.calls)
	}
	if f.searcher.calls != 0 {
		t.Errorf("retrieval called %d times for off-topic query, want 0", f.searcher.calls)
	}
}

func TestChatRetrievalDegradesOnEmbeddingFailure(t *testing.T) {
	f := newChatFixture(t)
	f.embedder.err = errors.New("provider down")

	prep, err := f.svc.Prepare(context.Background(), uuid.New(), chatRequest("I feel anxious all the time"))
	if err != nil {
		t.Fatalf("Prepare failed on degraded retrieval: %v", err)
	}
	if f.searcher.calls != 0 {
		t.Errorf("retrieval called %d times despite embedding failure, want 0", f.searcher.calls)
	}
	if prep.prompt == "" {
		t.Error("prompt not composed on degraded path")
	}
}

func TestChatValidation(t *testing.T) {
	f := newChatFixture(t)

	tests := []struct {
		name string
		req  models.ChatRequest
	}{
		{"no messages", models.ChatRequest{}},
		{"empty final content", chatRequest("   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Prepare(context.Background(), uuid.New(), tt.req); !errors.Is(err, ErrValidation) {
				t.Errorf("Prepare error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestChatPersistsPartialOnStreamFailure(t *testing.T) {
	f := newChatFixture(t)
	f.generator.streamErr = errors.New("provider reset")

	prep, err := f.svc.Prepare(context.Background(), uuid.New(), chatRequest("I feel overwhelmed"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	err = f.svc.StreamReply(context.Background(), prep, func(string) error { return nil })
	if err == nil {
		t.Fatal("StreamReply returned nil for failed stream")
	}

	f.background.Wait()

	msgs, _ := f.store.ListMessagesBySession(context.Background(), prep.SessionID)
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2 (user + partial assistant)", len(msgs))
	}
	last := msgs[1]
	if !last.Truncated {
		t.Error("partial assistant message not marked truncated")
	}
	if last.Content == "" {
		t.Error("partial assistant text not persisted")
	}
}

func TestChatHistoryExcludesActiveTurn(t *testing.T) {
	f := newChatFixture(t)
	userID := uuid.New()

	sess, err := f.store.CreateSession(context.Background(), uuid.New(), userID)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	seedTurns := []struct{ role, content string }{
		{models.RoleUser, "I had trouble sleeping"},
		{models.RoleAssistant, "That sounds difficult."},
	}
	for _, turn := range seedTurns {
		if _, err := f.store.CreateMessage(context.Background(), store.CreateMessageParams{
			ID: uuid.New(), SessionID: sess.ID, UserID: userID,
			Role: turn.role, Content: turn.content,
		}); err != nil {
			t.Fatalf("seeding message: %v", err)
		}
	}

	req := chatRequest("It happened again last night")
	req.ConversationID = &sess.ID

	prep, err := f.svc.Prepare(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := f.svc.StreamReply(context.Background(), prep, func(string) error { return nil }); err != nil {
		t.Fatalf("StreamReply: %v", err)
	}

	f.generator.mu.Lock()
	history := f.generator.lastHistory
	f.generator.mu.Unlock()

	if len(history) != 2 {
		t.Fatalf("model history has %d turns, want 2 prior turns", len(history))
	}
	for _, msg := range history {
		if msg.Content == "It happened again last night" {
			t.Error("active turn leaked into model history")
		}
	}
	// Roles survive the persistence round trip.
	if history[0].Role != models.RoleUser || history[1].Role != models.RoleAssistant {
		t.Errorf("history roles = [%s, %s], want [user, assistant]", history[0].Role, history[1].Role)
	}
}

func TestChatTitleFallbackOnGenerationFailure(t *testing.T) {
	f := newChatFixture(t)
	f.generator.titleErr = errors.New("provider down")

	req := chatRequest("I can't stop worrying about work")
	req.WantTitle = true
	req.Message = "I can't stop worrying about work"

	prep, err := f.svc.Prepare(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if prep.Title != "I can't stop worrying about work" {
		t.Errorf("fallback title = %q, want the seed text", prep.Title)
	}
}
