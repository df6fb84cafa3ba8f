package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"astra-backend/internal/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func authedProbe(t *testing.T, wantUserID uuid.UUID) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			t.Error("user ID missing from authenticated request context")
		} else if userID != wantUserID {
			t.Errorf("context user ID = %s, want %s", userID, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestJwtAuthMiddlewareValidToken(t *testing.T) {
	userID := uuid.New()
	token, err := auth.NewAccessToken(userID, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}

	mw := JwtAuthMiddleware(testSecret, zap.NewNop())
	r := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw(authedProbe(t, userID)).ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestJwtAuthMiddlewareRejections(t *testing.T) {
	expired, err := auth.NewAccessToken(uuid.New(), testSecret, -time.Hour)
	if err != nil {
		t.Fatalf("minting expired token: %v", err)
	}
	wrongKey, err := auth.NewAccessToken(uuid.New(), "other-secret", time.Hour)
	if err != nil {
		t.Fatalf("minting foreign token: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", "Token abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
	}

	mw := JwtAuthMiddleware(testSecret, zap.NewNop())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with invalid credentials")
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw(next).ServeHTTP(rec, r)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}
