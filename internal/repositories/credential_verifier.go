package repositories

import (
	"context"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
)

// CredentialVerifier checks a password against a stored user.
// A false result with a nil error means the credentials were rejected.
type CredentialVerifier interface {
	Verify(ctx context.Context, user *models.User, password string) (bool, error)
}
