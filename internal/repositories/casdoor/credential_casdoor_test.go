package casdoor

import (
	"context"
	"errors"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
)

type fakeChecker struct {
	passwords map[string]string
	err       error
	lastOwner string
}

func (f *fakeChecker) CheckUserPassword(user *casdoorsdk.User) (bool, error) {
	f.lastOwner = user.Owner
	if f.err != nil {
		return false, f.err
	}
	return f.passwords[user.Name] == user.Password, nil
}

func TestCredentialCasdoor_Verify(t *testing.T) {
	checker := &fakeChecker{passwords: map[string]string{"ana": "secret1"}}
	verifier := &CredentialCasdoor{client: checker, organization: "study"}
	ctx := context.Background()

	tests := []struct {
		name     string
		user     *models.User
		password string
		want     bool
	}{
		{name: "correct password", user: &models.User{Username: "ana"}, password: "secret1", want: true},
		{name: "wrong password", user: &models.User{Username: "ana"}, password: "nope", want: false},
		{name: "unknown user", user: &models.User{Username: "ben"}, password: "secret1", want: false},
		{name: "nil user", user: nil, password: "secret1", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := verifier.Verify(ctx, tt.user, tt.password)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}

	if checker.lastOwner != "study" {
		t.Errorf("owner = %q, want organization name", checker.lastOwner)
	}

	checker.err = errors.New("casdoor unreachable")
	if _, err := verifier.Verify(ctx, &models.User{Username: "ana"}, "secret1"); err == nil {
		t.Error("Verify() should surface client errors")
	}
}
