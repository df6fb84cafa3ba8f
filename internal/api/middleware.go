package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"astra-backend/internal/auth"
	"astra-backend/pkg/httputil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JwtAuthMiddleware verifies the JWT token from the Authorization header.
// If valid, it injects the UserID into the request context. This runs
// before any other work on authenticated routes.
func JwtAuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				httputil.RespondError(w, http.StatusUnauthorized, "Malformed Authorization header (Expected: Bearer <token>)")
				return
			}

			claims := &auth.CustomClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil {
				logger.Debug("token parse failed", zap.Error(err))
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					httputil.RespondError(w, http.StatusUnauthorized, "Token has expired")
				case errors.Is(err, jwt.ErrTokenMalformed):
					httputil.RespondError(w, http.StatusUnauthorized, "Malformed token")
				default:
					httputil.RespondError(w, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			if !token.Valid || claims.UserID == uuid.Nil {
				httputil.RespondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), claims.UserID)))
		})
	}
}
