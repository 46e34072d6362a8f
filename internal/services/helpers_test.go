package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/study-buddy-service/internal/events"
	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/study-buddy-service/internal/storage"
	"github.com/SAP-F-2025/study-buddy-service/internal/timer"
	"github.com/SAP-F-2025/study-buddy-service/internal/validator"
)

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	mr        *miniredis.Miniredis
	backend   *countingBackend
	clock     *timer.ManualClock
	publisher *events.MockEventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	hasher    *repositories.BcryptVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		mr:        mr,
		backend:   newCountingBackend(storage.NewRedisBackend(client, "test:")),
		clock:     timer.NewManualClock(testStart),
		publisher: events.NewMockEventPublisher(logger),
		logger:    logger,
		validator: validator.New(),
		hasher:    repositories.NewBcryptVerifier(4),
	}
}

func (e *testEnv) identity() IdentityService {
	return NewIdentityService(e.backend, e.hasher, e.hasher, e.clock, e.logger, e.validator)
}

func (e *testEnv) classrooms() ClassroomService {
	return NewClassroomService(e.backend, e.publisher, e.clock, e.logger, e.validator)
}

func (e *testEnv) presence() PresenceService {
	return NewPresenceService(e.backend, e.publisher, e.clock, PresenceConfig{
		StaleAfter:      models.DefaultStaleAfter,
		DefaultDuration: 25,
	}, e.logger, e.validator)
}

func (e *testEnv) repository(t *testing.T) repositories.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "history.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	rm := postgres.NewRepositoryManager(postgres.RepositoryConfig{DB: db, LocalVerifier: e.hasher})
	if err := rm.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = rm.Shutdown(context.Background()) })
	return rm.GetRepository()
}

// putPresence writes a raw presence record as another client would
func (e *testEnv) putPresence(t *testing.T, classroomID string, rec models.PresenceRecord) {
	t.Helper()
	data := mustJSON(t, rec)
	if err := e.backend.Shared().Set(context.Background(), models.PresenceKey(classroomID, rec.Username), data, true); err != nil {
		t.Fatalf("failed to seed presence: %v", err)
	}
}

func (e *testEnv) getPresence(t *testing.T, classroomID, username string) *storage.Entry {
	t.Helper()
	entry, err := e.backend.Shared().Get(context.Background(), models.PresenceKey(classroomID, username), true)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return entry
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return string(data)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// countingBackend counts writes per key and can inject failures
type countingBackend struct {
	storage.Backend

	mu      sync.Mutex
	sets     map[string]int
	failAll  error
	failGets map[string]error
}

func newCountingBackend(inner storage.Backend) *countingBackend {
	return &countingBackend{Backend: inner, sets: make(map[string]int)}
}

func (b *countingBackend) ForDevice(deviceID string) storage.Store {
	return &countingStore{Store: b.Backend.ForDevice(deviceID), parent: b}
}

func (b *countingBackend) Shared() storage.Store {
	return &countingStore{Store: b.Backend.Shared(), parent: b}
}

func (b *countingBackend) Sets(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sets[key]
}

func (b *countingBackend) ResetCounts() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sets = make(map[string]int)
}

// FailWith makes every subsequent operation return err; nil restores normal behavior
func (b *countingBackend) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAll = err
}

// FailGet makes reads of a single key return err
func (b *countingBackend) FailGet(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failGets == nil {
		b.failGets = make(map[string]error)
	}
	b.failGets[key] = err
}

func (b *countingBackend) getFailure(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAll != nil {
		return b.failAll
	}
	return b.failGets[key]
}

func (b *countingBackend) failure() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failAll
}

type countingStore struct {
	storage.Store
	parent *countingBackend
}

func (s *countingStore) Get(ctx context.Context, key string, shared bool) (*storage.Entry, error) {
	if err := s.parent.getFailure(key); err != nil {
		return nil, err
	}
	return s.Store.Get(ctx, key, shared)
}

func (s *countingStore) Set(ctx context.Context, key, value string, shared bool) error {
	if err := s.parent.failure(); err != nil {
		return err
	}
	s.parent.mu.Lock()
	s.parent.sets[key]++
	s.parent.mu.Unlock()
	return s.Store.Set(ctx, key, value, shared)
}

func (s *countingStore) Delete(ctx context.Context, key string, shared bool) error {
	if err := s.parent.failure(); err != nil {
		return err
	}
	return s.Store.Delete(ctx, key, shared)
}

func (s *countingStore) List(ctx context.Context, prefix string, shared bool) ([]string, error) {
	if err := s.parent.failure(); err != nil {
		return nil, err
	}
	return s.Store.List(ctx, prefix, shared)
}
