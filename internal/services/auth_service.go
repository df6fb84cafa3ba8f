package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"astra-backend/internal/auth"
	"astra-backend/internal/config"
	"astra-backend/internal/models"
	"astra-backend/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Custom errors for auth service
var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrValidation         = errors.New("input validation failed")
)

type AuthService struct {
	store  store.Store
	cfg    *config.Config
	logger *zap.Logger
}

func NewAuthService(s store.Store, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{store: s, cfg: cfg, logger: logger}
}

// Signup creates a new user and returns an access token for it.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password cannot be empty", ErrValidation)
	}

	_, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: hashedPassword,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueToken(user)
}

// Login verifies credentials and returns an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password cannot be empty", ErrValidation)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.HashedPassword) {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

func (s *AuthService) issueToken(user *models.User) (*models.AuthResponse, error) {
	token, err := auth.NewAccessToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenExpiration)
	if err != nil {
		s.logger.Error("failed to sign access token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &models.AuthResponse{
		AccessToken: token,
		User: models.UserResponse{
			ID:    user.ID,
			Email: user.Email,
		},
	}, nil
}
