package repositories

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
)

// BcryptVerifier checks passwords against the bcrypt hash stored on the user record
type BcryptVerifier struct {
	cost int
}

func NewBcryptVerifier(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{cost: cost}
}

// Hash produces the stored form of a password
func (v *BcryptVerifier) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (v *BcryptVerifier) Verify(_ context.Context, user *models.User, password string) (bool, error) {
	if user == nil || user.PasswordHash == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		// malformed hash in storage
		return false, fmt.Errorf("failed to compare password: %w", err)
	}
}
