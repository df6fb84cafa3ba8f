package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChatMessage is one prior turn supplied by the client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest defines the body for POST /v1/chat.
//
// Messages carries the ordered prior turns with the active user turn
// last. ConversationID resumes an existing session when set; otherwise
// a new session is created. When WantTitle is set and Message holds
// seed text, a short conversation title is generated alongside the
// reply and returned via the X-Generated-Title response header.
type ChatRequest struct {
	Messages       []ChatMessage `json:"messages"`
	ConversationID *uuid.UUID    `json:"conversationId,omitempty"`
	WantTitle      bool          `json:"wantTitle,omitempty"`
	Message        string        `json:"message,omitempty"`
}

// --- Response Structs ---

// UserResponse defines the user information returned by the API.
// Avoid returning sensitive info like HashedPassword.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// SessionResponse defines the data returned for a chat session.
type SessionResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     *string   `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
