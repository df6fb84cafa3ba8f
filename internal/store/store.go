package store

import (
	"context"
	"errors"

	"astra-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateMessageParams contains parameters for persisting a chat message.
type CreateMessageParams struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	UserID    uuid.UUID
	Role      string // models.RoleUser or models.RoleAssistant
	Content   string
	Truncated bool
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// User operations
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// Session operations
	CreateSession(ctx context.Context, id, userID uuid.UUID) (*models.Session, error)
	GetSessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	UpdateSessionTitle(ctx context.Context, id uuid.UUID, title string) error

	// Message operations. ListMessagesBySession returns messages in
	// creation order, oldest first.
	CreateMessage(ctx context.Context, arg CreateMessageParams) (*models.Message, error)
	ListMessagesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Message, error)

	// Knowledge corpus operations
	ListKnowledgeDocuments(ctx context.Context) ([]models.KnowledgeDocument, error)
	CountKnowledgeDocuments(ctx context.Context) (int, error)
	CreateKnowledgeDocument(ctx context.Context, doc *models.KnowledgeDocument) error
}
