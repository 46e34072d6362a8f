package services

import (
	"context"
	"testing"
)

func TestServiceManager_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sm := NewDefaultServiceManager(Dependencies{
		Backend:   env.backend,
		Repo:      env.repository(t),
		Hasher:    env.hasher,
		Publisher: env.publisher,
		Clock:     env.clock,
		Logger:    env.logger,
		Validator: env.validator,
	})

	t.Run("getters panic before Initialize", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		sm.Identity()
	})

	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() before Initialize should fail")
	}

	if err := sm.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := sm.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}

	if sm.Identity() == nil || sm.Classroom() == nil || sm.Presence() == nil || sm.StudySession() == nil || sm.History() == nil {
		t.Fatal("all services should be available after Initialize")
	}

	if err := sm.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	user, err := sm.Identity().Register(ctx, "device-1", &RegisterRequest{Username: "alice", Password: "secret1"})
	if err != nil || user.Username != "alice" {
		t.Fatalf("Register() through manager = %v, %v", user, err)
	}

	if err := sm.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() after Shutdown should fail")
	}
}

func TestServiceManager_RequiresBackend(t *testing.T) {
	env := newTestEnv(t)
	sm := NewDefaultServiceManager(Dependencies{Repo: env.repository(t), Hasher: env.hasher})
	if err := sm.Initialize(context.Background()); err == nil {
		t.Error("Initialize() without a storage backend should fail")
	}
}
