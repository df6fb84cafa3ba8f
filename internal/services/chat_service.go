package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"astra-backend/internal/llm"
	"astra-backend/internal/models"
	"astra-backend/internal/rag"
	"astra-backend/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Chat orchestration errors surfaced before streaming starts.
var (
	// ErrInvalidConversation means the supplied session does not exist
	// or belongs to another user.
	ErrInvalidConversation = errors.New("conversation not found")

	// ErrBackendUnavailable means the persistence backend failed during
	// the synchronous phase of the request.
	ErrBackendUnavailable = errors.New("backend service unavailable")
)

// Generator is the text-generation contract the orchestrator needs.
type Generator interface {
	StreamReply(ctx context.Context, history []models.Message, prompt string, onChunk func(string) error) (string, error)
	GenerateTitle(ctx context.Context, seed string) (string, error)
}

// Embedder converts query text to a vector, consulting the process-wide
// embedding cache first.
type Embedder interface {
	EmbedCached(ctx context.Context, text string) ([]float32, error)
}

// Searcher ranks the knowledge corpus against a query vector.
type Searcher interface {
	Search(ctx context.Context, query []float32, limit int) []rag.Result
}

// ChatService orchestrates one chat request: session resolution, title
// generation, fast-path short-circuiting, retrieval, prompt composition,
// token streaming, and asynchronous persistence of the exchange.
type ChatService struct {
	store      store.Store
	generator  Generator
	embedder   Embedder
	searcher   Searcher
	background *Background
	logger     *zap.Logger

	// titleWait bounds how long header writing waits for the title
	// branch; a title that arrives later is applied asynchronously.
	titleWait      time.Duration
	streamTimeout  time.Duration
	retrievalLimit int
}

func NewChatService(s store.Store, generator Generator, embedder Embedder, searcher Searcher, background *Background, streamTimeout time.Duration, logger *zap.Logger) *ChatService {
	return &ChatService{
		store:          s,
		generator:      generator,
		embedder:       embedder,
		searcher:       searcher,
		background:     background,
		logger:         logger,
		titleWait:      3 * time.Second,
		streamTimeout:  streamTimeout,
		retrievalLimit: 3,
	}
}

// PreparedChat carries everything the handler needs to answer one chat
// request: response metadata that must be written before the first
// body byte, plus either a canned fast-path reply or a composed prompt
// ready for streaming.
type PreparedChat struct {
	SessionID  uuid.UUID
	NewSession bool
	Title      string
	OffTopic   bool
	FastReply  string

	userID      uuid.UUID
	userMessage string
	history     []models.Message // prior turns, active turn excluded
	prompt      string
	titleCh     <-chan string // non-nil when the title is still pending
}

type sessionResult struct {
	sess    *models.Session
	created bool
	err     error
}

// Prepare runs the synchronous phase of a chat request: validation,
// the concurrent session/title/fast-path launches, user-message
// persistence, topic classification, retrieval, and prompt
// composition. Any error it returns maps to a pre-stream HTTP status;
// once Prepare succeeds the response is committed.
func (s *ChatService) Prepare(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*PreparedChat, error) {
	content, err := activeMessage(req)
	if err != nil {
		return nil, err
	}

	// Concurrent phase: session resolution, title generation, and the
	// fast-path check settle independently; a failure in one branch
	// never cancels its siblings.
	sessionCh := make(chan sessionResult, 1)
	go func() {
		sessionCh <- s.resolveSession(ctx, userID, req.ConversationID)
	}()

	var titleCh chan string
	if req.WantTitle && strings.TrimSpace(req.Message) != "" {
		titleCh = make(chan string, 1)
		seed := req.Message
		// The title call may outlive the request on the fast path, so
		// detach it from request cancellation.
		tctx := context.WithoutCancel(ctx)
		go func() {
			title, err := s.generator.GenerateTitle(tctx, seed)
			if err != nil {
				// Deterministic fallback derived from the seed text.
				s.logger.Warn("title generation failed, falling back to seed",
					zap.Error(err))
				title = llm.SanitizeTitle(seed)
			}
			titleCh <- title
		}()
	}

	fastCh := make(chan string, 1)
	go func() {
		fastCh <- FastResponse(content)
	}()

	// Session resolution is required; title is not waited on here.
	res := <-sessionCh
	if res.err != nil {
		return nil, res.err
	}
	fastReply := <-fastCh

	prep := &PreparedChat{
		SessionID:   res.sess.ID,
		NewSession:  res.created,
		userID:      userID,
		userMessage: content,
	}
	prep.Title, prep.titleCh = awaitTitle(titleCh, s.titleWait)

	if fastReply != "" {
		prep.FastReply = fastReply
		return prep, nil
	}

	// Full pipeline. The user message is persisted before the
	// generation stream opens so conversational order is preserved.
	_, err = s.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:        uuid.New(),
		SessionID: prep.SessionID,
		UserID:    userID,
		Role:      models.RoleUser,
		Content:   content,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: persisting user message: %v", ErrBackendUnavailable, err)
	}

	history, err := s.store.ListMessagesBySession(ctx, prep.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching history: %v", ErrBackendUnavailable, err)
	}
	if n := len(history); n > 0 {
		// Exclude the active turn just persisted; it is passed to the
		// model separately as the live message.
		history = history[:n-1]
	}
	prep.history = history

	prep.OffTopic = rag.IsOffTopic(content)

	var docs []rag.Result
	if !prep.OffTopic {
		vec, err := s.embedder.EmbedCached(ctx, content)
		if err != nil {
			// Retrieval is an optimization; degrade to an empty
			// context and keep going.
			s.logger.Warn("retrieval degraded, continuing without context",
				zap.String("session_id", prep.SessionID.String()),
				zap.Error(err))
		} else {
			docs = s.searcher.Search(ctx, vec, s.retrievalLimit)
		}
	}

	prompt, err := rag.Compose(content, prep.OffTopic, docs, prep.history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	prep.prompt = prompt

	return prep, nil
}

// StreamReply opens the generation stream for a prepared request and
// forwards each chunk through onChunk. After the stream ends, normally
// or not, the accumulated text is persisted in the background, marked
// truncated when the stream failed partway. The returned error is
// informational only: headers are committed by the time it happens.
func (s *ChatService) StreamReply(ctx context.Context, prep *PreparedChat, onChunk func(string) error) error {
	sctx, cancel := context.WithTimeout(ctx, s.streamTimeout)
	defer cancel()

	full, streamErr := s.generator.StreamReply(sctx, prep.history, prep.prompt, onChunk)

	if full != "" || streamErr == nil {
		truncated := streamErr != nil
		sessionID, userID := prep.SessionID, prep.userID
		s.background.Go("persist-assistant-message", func(bctx context.Context) error {
			_, err := s.store.CreateMessage(bctx, store.CreateMessageParams{
				ID:        uuid.New(),
				SessionID: sessionID,
				UserID:    userID,
				Role:      models.RoleAssistant,
				Content:   full,
				Truncated: truncated,
			})
			return err
		})
	}

	s.applyTitle(prep)
	return streamErr
}

// FinishFastPath persists the fast-path exchange after the canned reply
// has already been written to the caller, preserving user-before-
// assistant order within the single background job.
func (s *ChatService) FinishFastPath(prep *PreparedChat) {
	sessionID, userID := prep.SessionID, prep.userID
	userMessage, reply := prep.userMessage, prep.FastReply
	s.background.Go("persist-fast-path-exchange", func(bctx context.Context) error {
		if _, err := s.store.CreateMessage(bctx, store.CreateMessageParams{
			ID:        uuid.New(),
			SessionID: sessionID,
			UserID:    userID,
			Role:      models.RoleUser,
			Content:   userMessage,
		}); err != nil {
			return err
		}
		_, err := s.store.CreateMessage(bctx, store.CreateMessageParams{
			ID:        uuid.New(),
			SessionID: sessionID,
			UserID:    userID,
			Role:      models.RoleAssistant,
			Content:   reply,
		})
		return err
	})

	s.applyTitle(prep)
}

// applyTitle persists the generated title for sessions created by this
// request, waiting in the background for a title that was still
// pending when headers were written.
func (s *ChatService) applyTitle(prep *PreparedChat) {
	if !prep.NewSession {
		return
	}

	sessionID := prep.SessionID
	if prep.Title != "" {
		title := prep.Title
		s.background.Go("apply-session-title", func(bctx context.Context) error {
			return s.store.UpdateSessionTitle(bctx, sessionID, title)
		})
		return
	}

	if prep.titleCh != nil {
		ch := prep.titleCh
		s.background.Go("apply-late-session-title", func(bctx context.Context) error {
			select {
			case title := <-ch:
				if title == "" {
					return nil
				}
				return s.store.UpdateSessionTitle(bctx, sessionID, title)
			case <-bctx.Done():
				return bctx.Err()
			}
		})
	}
}

func (s *ChatService) resolveSession(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID) sessionResult {
	if conversationID == nil {
		sess, err := s.store.CreateSession(ctx, uuid.New(), userID)
		if err != nil {
			return sessionResult{err: fmt.Errorf("%w: creating session: %v", ErrBackendUnavailable, err)}
		}
		return sessionResult{sess: sess, created: true}
	}

	sess, err := s.store.GetSessionByID(ctx, *conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return sessionResult{err: ErrInvalidConversation}
		}
		return sessionResult{err: fmt.Errorf("%w: fetching session: %v", ErrBackendUnavailable, err)}
	}
	if sess.UserID != userID {
		return sessionResult{err: ErrInvalidConversation}
	}
	return sessionResult{sess: sess}
}

// activeMessage extracts the live user turn: the final message's
// content, falling back to the request-level message field.
func activeMessage(req models.ChatRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("%w: no messages provided", ErrValidation)
	}

	content := strings.TrimSpace(req.Messages[len(req.Messages)-1].Content)
	if content == "" {
		content = strings.TrimSpace(req.Message)
	}
	if content == "" {
		return "", fmt.Errorf("%w: no message content found", ErrValidation)
	}
	return content, nil
}

// awaitTitle waits up to wait for the title branch. On timeout the
// pending channel is handed back so the title can be applied once it
// arrives, after the response has gone out.
func awaitTitle(titleCh chan string, wait time.Duration) (string, <-chan string) {
	if titleCh == nil {
		return "", nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case title := <-titleCh:
		return title, nil
	case <-timer.C:
		return "", titleCh
	}
}
