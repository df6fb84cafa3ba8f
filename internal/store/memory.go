package store

import (
	"context"
	"sync"
	"time"

	"astra-backend/internal/models"

	"github.com/google/uuid"
)

// Compile-time check to ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store implementation used in tests and
// local development. Messages are kept in insertion order per session,
// which matches the created_at ordering of the Postgres store.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]*models.User
	sessions  map[uuid.UUID]*models.Session
	messages  map[uuid.UUID][]models.Message
	knowledge map[string]models.KnowledgeDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uuid.UUID]*models.User),
		sessions:  make(map[uuid.UUID]*models.Session),
		messages:  make(map[uuid.UUID][]models.Message),
		knowledge: make(map[string]models.KnowledgeDocument),
	}
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *user
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	s.users[copied.ID] = &copied
	return nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, id, userID uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &models.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	s.sessions[id] = sess
	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) GetSessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) UpdateSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Title = &title
	return nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, arg CreateMessageParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:        arg.ID,
		SessionID: arg.SessionID,
		UserID:    arg.UserID,
		Role:      arg.Role,
		Content:   arg.Content,
		Truncated: arg.Truncated,
		CreatedAt: time.Now(),
	}
	s.messages[arg.SessionID] = append(s.messages[arg.SessionID], msg)
	copied := msg
	return &copied, nil
}

func (s *MemoryStore) ListMessagesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) ListKnowledgeDocuments(ctx context.Context) ([]models.KnowledgeDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.KnowledgeDocument, 0, len(s.knowledge))
	for _, doc := range s.knowledge {
		out = append(out, doc)
	}
	return out, nil
}

func (s *MemoryStore) CountKnowledgeDocuments(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.knowledge), nil
}

func (s *MemoryStore) CreateKnowledgeDocument(ctx context.Context, doc *models.KnowledgeDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.knowledge[doc.ID]; exists {
		return nil
	}
	s.knowledge[doc.ID] = *doc
	return nil
}
