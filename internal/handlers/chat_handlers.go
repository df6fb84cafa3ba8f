package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"astra-backend/internal/auth"
	"astra-backend/internal/models"
	"astra-backend/internal/services"
	"astra-backend/pkg/httputil"

	"go.uber.org/zap"
)

// Response headers carrying chat metadata. They are written before the
// first body byte since they cannot be amended once streaming starts.
const (
	HeaderConversationID = "X-Conversation-Id"
	HeaderGeneratedTitle = "X-Generated-Title"
	HeaderOffTopic       = "X-Off-Topic"
)

// ChatHandlers handles the streaming chat endpoint.
type ChatHandlers struct {
	chatService *services.ChatService
	logger      *zap.Logger
}

func NewChatHandlers(chatService *services.ChatService, logger *zap.Logger) *ChatHandlers {
	return &ChatHandlers{chatService: chatService, logger: logger}
}

// HandleChat handles POST /v1/chat. Errors detected before the first
// body byte become structured JSON responses; once streaming starts,
// failures truncate the stream instead.
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("response writer does not support streaming")
		httputil.RespondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	prep, err := h.chatService.Prepare(r.Context(), userID, req)
	if err != nil {
		h.respondPrepareError(w, err)
		return
	}

	// Headers must be complete before the first chunk goes out.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(HeaderConversationID, prep.SessionID.String())
	if prep.Title != "" {
		w.Header().Set(HeaderGeneratedTitle, prep.Title)
	}
	if prep.OffTopic {
		w.Header().Set(HeaderOffTopic, "true")
	}

	if prep.FastReply != "" {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, prep.FastReply)
		flusher.Flush()
		h.chatService.FinishFastPath(prep)
		return
	}

	// The status is committed implicitly by the first chunk write, so a
	// stream that fails before producing anything can still surface a
	// structured error.
	var wroteBody bool
	err = h.chatService.StreamReply(r.Context(), prep, func(chunk string) error {
		if _, werr := io.WriteString(w, chunk); werr != nil {
			return werr
		}
		wroteBody = true
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !wroteBody {
			h.logger.Error("generation stream failed before first chunk",
				zap.String("session_id", prep.SessionID.String()),
				zap.Error(err))
			httputil.RespondError(w, http.StatusServiceUnavailable, "Generation service unavailable")
			return
		}
		// Headers are committed; the client sees a truncated body.
		h.logger.Warn("chat stream ended abnormally",
			zap.String("session_id", prep.SessionID.String()),
			zap.Error(err))
	}
	if !wroteBody {
		w.WriteHeader(http.StatusOK)
	}
}

func (h *ChatHandlers) respondPrepareError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidConversation):
		httputil.RespondError(w, http.StatusForbidden, "Conversation not found or not owned by user")
	case errors.Is(err, services.ErrBackendUnavailable):
		httputil.RespondError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		h.logger.Error("chat preparation failed", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
