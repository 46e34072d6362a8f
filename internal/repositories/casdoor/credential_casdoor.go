package casdoor

import (
	"context"
	"fmt"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// passwordChecker is the part of the Casdoor client used here
type passwordChecker interface {
	CheckUserPassword(user *casdoorsdk.User) (bool, error)
}

// CredentialCasdoor verifies passwords against a Casdoor organization.
// The local user record only supplies the username.
type CredentialCasdoor struct {
	client       passwordChecker
	organization string
}

func NewCredentialCasdoor(config CasdoorConfig) repositories.CredentialVerifier {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &CredentialCasdoor{
		client:       client,
		organization: config.OrganizationName,
	}
}

func (c *CredentialCasdoor) Verify(ctx context.Context, user *models.User, password string) (bool, error) {
	if user == nil {
		return false, nil
	}

	ok, err := c.client.CheckUserPassword(&casdoorsdk.User{
		Owner:    c.organization,
		Name:     user.Username,
		Password: password,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check password with Casdoor: %w", err)
	}

	return ok, nil
}
