package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
	"github.com/SAP-F-2025/study-buddy-service/internal/storage"
	"github.com/SAP-F-2025/study-buddy-service/internal/timer"
	"github.com/SAP-F-2025/study-buddy-service/internal/validator"
)

// PasswordHasher produces the stored form of a password
type PasswordHasher interface {
	Hash(password string) (string, error)
}

type identityService struct {
	backend   storage.Backend
	verifier  repositories.CredentialVerifier
	hasher    PasswordHasher
	clock     timer.Clock
	logger    *slog.Logger
	validator *validator.Validator
}

func NewIdentityService(backend storage.Backend, verifier repositories.CredentialVerifier, hasher PasswordHasher, clock timer.Clock, logger *slog.Logger, validator *validator.Validator) IdentityService {
	return &identityService{
		backend:   backend,
		verifier:  verifier,
		hasher:    hasher,
		clock:     clock,
		logger:    logger,
		validator: validator,
	}
}

func (s *identityService) Register(ctx context.Context, deviceID string, req *RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Validate(req); err != nil {
		return nil, wrapValidation(err)
	}

	s.logger.Info("Registering user", "username", req.Username)

	store := s.backend.ForDevice(deviceID)
	existing, err := store.Get(ctx, models.UserKey(req.Username), true)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now().UnixMilli(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := store.Set(ctx, models.UserKey(user.Username), string(data), true); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	if err := s.setCurrentUser(ctx, store, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "username", user.Username)
	return user.Public(), nil
}

func (s *identityService) Login(ctx context.Context, deviceID string, req *LoginRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Validate(req); err != nil {
		return nil, wrapValidation(err)
	}

	store := s.backend.ForDevice(deviceID)
	user, err := s.loadUser(ctx, store, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.Info("Login rejected", "username", req.Username, "reason", "unknown user")
		return nil, ErrInvalidCredentials
	}

	ok, err := s.verifier.Verify(ctx, user, req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}
	if !ok {
		s.logger.Info("Login rejected", "username", req.Username, "reason", "bad password")
		return nil, ErrInvalidCredentials
	}

	if err := s.setCurrentUser(ctx, store, user); err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", "username", user.Username)
	return user.Public(), nil
}

func (s *identityService) Logout(ctx context.Context, deviceID string) error {
	store := s.backend.ForDevice(deviceID)
	if err := store.Delete(ctx, models.CurrentUserKey, false); err != nil {
		return fmt.Errorf("failed to clear current user: %w", err)
	}
	return nil
}

func (s *identityService) Current(ctx context.Context, deviceID string) (*models.User, error) {
	if deviceID == "" {
		return nil, ErrNotAuthenticated
	}
	entry, err := s.backend.ForDevice(deviceID).Get(ctx, models.CurrentUserKey, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read current user: %w", err)
	}
	if entry == nil {
		return nil, ErrNotAuthenticated
	}

	var user models.User
	if err := json.Unmarshal([]byte(entry.Value), &user); err != nil || user.Username == "" {
		s.logger.Warn("Discarding unreadable current user", "device_id", deviceID, "error", err)
		return nil, ErrNotAuthenticated
	}
	return &user, nil
}

func (s *identityService) loadUser(ctx context.Context, store storage.Store, username string) (*models.User, error) {
	entry, err := store.Get(ctx, models.UserKey(username), true)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(entry.Value), &user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", username, err)
	}
	return &user, nil
}

// setCurrentUser stores the session pointer without the password hash
func (s *identityService) setCurrentUser(ctx context.Context, store storage.Store, user *models.User) error {
	data, err := json.Marshal(user.Public())
	if err != nil {
		return fmt.Errorf("failed to marshal current user: %w", err)
	}
	if err := store.Set(ctx, models.CurrentUserKey, string(data), false); err != nil {
		return fmt.Errorf("failed to save current user: %w", err)
	}
	return nil
}
