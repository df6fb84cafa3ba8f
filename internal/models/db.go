package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles as stored in chat_messages.role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User represents a user in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
}

// Session represents a persisted conversation thread belonging to one user.
// Title is nil until a title has been generated for the conversation.
type Session struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Title     *string   `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}

// Message represents one turn (user or assistant) within a session.
// Truncated marks assistant messages whose generation stream failed
// partway, so callers can tell the stored text is incomplete.
type Message struct {
	ID        uuid.UUID `db:"id"`
	SessionID uuid.UUID `db:"session_id"`
	UserID    uuid.UUID `db:"user_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	Truncated bool      `db:"truncated"`
	CreatedAt time.Time `db:"created_at"`
}

// KnowledgeDocument is one entry of the therapeutic knowledge corpus.
// The corpus is small, seeded once, and immutable afterwards; the
// embedding is computed at seed time and stored alongside the text.
type KnowledgeDocument struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	Category  string    `db:"category"`
	Embedding []float32 `db:"embedding"`
}
