package api

import (
	"net/http"

	"astra-backend/internal/config"
	"astra-backend/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterDependencies holds all the dependencies required by the router
// setup, primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler *handlers.AuthHandler
	ChatHandler *handlers.ChatHandlers
	Config      *config.Config
	Logger      *zap.Logger
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	// No global timeout middleware: the chat endpoint streams for an
	// unbounded-by-router duration; its own stream timeout applies.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- CORS Configuration ---
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://*.onrender.com"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{handlers.HeaderConversationID, handlers.HeaderGeneratedTitle, handlers.HeaderOffTopic},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret, deps.Logger))

		if deps.ChatHandler == nil {
			panic("ChatHandler dependency is nil in router setup")
		}
		r.Post("/chat", deps.ChatHandler.HandleChat)
	})

	return r
}
