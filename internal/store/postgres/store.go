package postgres

import (
	"context"
	"errors"
	"fmt"

	"astra-backend/internal/models"
	"astra-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// --- User Methods ---

// GetUserByEmail retrieves a user by their email address.
// Returns store.ErrNotFound if the user does not exist.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, hashed_password, created_at
		FROM users
		WHERE email = $1`

	user := &models.User{}
	err := s.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}

	return user, nil
}

// CreateUser inserts a new user record into the database.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, hashed_password)
		VALUES ($1, $2, $3)`
	// created_at has a database default (NOW())

	_, err := s.db.Exec(ctx, query, user.ID, user.Email, user.HashedPassword)
	if err != nil {
		return fmt.Errorf("database error creating user: %w", err)
	}
	return nil
}

// --- Session Methods ---

const createSession = `
INSERT INTO chat_sessions (id, user_id)
VALUES ($1, $2)
RETURNING id, user_id, title, created_at`

func (s *PostgresStore) CreateSession(ctx context.Context, id, userID uuid.UUID) (*models.Session, error) {
	sess := &models.Session{}
	err := s.db.QueryRow(ctx, createSession, id, userID).Scan(
		&sess.ID,
		&sess.UserID,
		&sess.Title,
		&sess.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("database error creating session: %w", err)
	}
	return sess, nil
}

const getSessionByID = `
SELECT id, user_id, title, created_at
FROM chat_sessions
WHERE id = $1`

// GetSessionByID retrieves a session by ID. Ownership checks are the
// caller's responsibility; returns store.ErrNotFound when absent.
func (s *PostgresStore) GetSessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess := &models.Session{}
	err := s.db.QueryRow(ctx, getSessionByID, id).Scan(
		&sess.ID,
		&sess.UserID,
		&sess.Title,
		&sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching session: %w", err)
	}
	return sess, nil
}

const updateSessionTitle = `
UPDATE chat_sessions
SET title = $2
WHERE id = $1`

func (s *PostgresStore) UpdateSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := s.db.Exec(ctx, updateSessionTitle, id, title)
	if err != nil {
		return fmt.Errorf("database error updating session title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- Message Methods ---

const createMessage = `
INSERT INTO chat_messages (id, session_id, user_id, role, content, truncated)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, session_id, user_id, role, content, truncated, created_at`

func (s *PostgresStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	msg := &models.Message{}
	err := s.db.QueryRow(ctx, createMessage,
		arg.ID,
		arg.SessionID,
		arg.UserID,
		arg.Role,
		arg.Content,
		arg.Truncated,
	).Scan(
		&msg.ID,
		&msg.SessionID,
		&msg.UserID,
		&msg.Role,
		&msg.Content,
		&msg.Truncated,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("database error creating message: %w", err)
	}
	return msg, nil
}

const listMessagesBySession = `
SELECT id, session_id, user_id, role, content, truncated, created_at
FROM chat_messages
WHERE session_id = $1
ORDER BY created_at ASC`

func (s *PostgresStore) ListMessagesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, listMessagesBySession, sessionID)
	if err != nil {
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.UserID,
			&msg.Role,
			&msg.Content,
			&msg.Truncated,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("database error scanning message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating messages: %w", err)
	}
	return messages, nil
}

// --- Knowledge Corpus Methods ---

const listKnowledgeDocuments = `
SELECT id, content, category, embedding
FROM therapy_knowledge`

func (s *PostgresStore) ListKnowledgeDocuments(ctx context.Context) ([]models.KnowledgeDocument, error) {
	rows, err := s.db.Query(ctx, listKnowledgeDocuments)
	if err != nil {
		return nil, fmt.Errorf("database error listing knowledge documents: %w", err)
	}
	defer rows.Close()

	var docs []models.KnowledgeDocument
	for rows.Next() {
		var doc models.KnowledgeDocument
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Category, &doc.Embedding); err != nil {
			return nil, fmt.Errorf("database error scanning knowledge document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating knowledge documents: %w", err)
	}
	return docs, nil
}

func (s *PostgresStore) CountKnowledgeDocuments(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM therapy_knowledge`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error counting knowledge documents: %w", err)
	}
	return count, nil
}

const createKnowledgeDocument = `
INSERT INTO therapy_knowledge (id, content, category, embedding)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING`

func (s *PostgresStore) CreateKnowledgeDocument(ctx context.Context, doc *models.KnowledgeDocument) error {
	_, err := s.db.Exec(ctx, createKnowledgeDocument, doc.ID, doc.Content, doc.Category, doc.Embedding)
	if err != nil {
		return fmt.Errorf("database error creating knowledge document: %w", err)
	}
	return nil
}
