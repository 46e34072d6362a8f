package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/study-buddy-service/internal/events"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
	"github.com/SAP-F-2025/study-buddy-service/internal/storage"
	"github.com/SAP-F-2025/study-buddy-service/internal/timer"
	"github.com/SAP-F-2025/study-buddy-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Presence          PresenceConfig
	HeartbeatInterval time.Duration

	// History disables study log recording and reports when false
	HistoryEnabled bool
}

// Dependencies are the collaborators shared by all services
type Dependencies struct {
	Backend   storage.Backend
	Repo      repositories.Repository
	Hasher    PasswordHasher
	Publisher events.Publisher
	Clock     timer.Clock
	Logger    *slog.Logger
	Validator *validator.Validator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig
	logger *slog.Logger

	// Service instances
	identityService     IdentityService
	classroomService    ClassroomService
	presenceService     PresenceService
	studySessionService StudySessionService
	historyService      HistoryService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Clock == nil {
		deps.Clock = timer.RealClock{}
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewNoopPublisher()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &serviceManager{
		deps:   deps,
		config: config,
		logger: deps.Logger,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps Dependencies) ServiceManager {
	return NewServiceManager(deps, ServiceManagerConfig{
		Presence: PresenceConfig{
			StaleAfter:      5 * time.Minute,
			DefaultDuration: 25,
		},
		HeartbeatInterval: timer.DefaultHeartbeatInterval,
		HistoryEnabled:    deps.Repo != nil,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() error {
	d := sm.deps
	if d.Backend == nil {
		return fmt.Errorf("storage backend is required")
	}

	var verifier repositories.CredentialVerifier
	if d.Repo != nil {
		verifier = d.Repo.Credentials()
	}
	if verifier == nil {
		return fmt.Errorf("credential verifier is required")
	}
	if d.Hasher == nil {
		return fmt.Errorf("password hasher is required")
	}

	sm.identityService = NewIdentityService(d.Backend, verifier, d.Hasher, d.Clock, d.Logger, d.Validator)
	sm.logger.Info("Identity service initialized")

	sm.classroomService = NewClassroomService(d.Backend, d.Publisher, d.Clock, d.Logger, d.Validator)
	sm.logger.Info("Classroom service initialized")

	sm.presenceService = NewPresenceService(d.Backend, d.Publisher, d.Clock, sm.config.Presence, d.Logger, d.Validator)
	sm.logger.Info("Presence service initialized")

	if sm.config.HistoryEnabled && d.Repo != nil {
		sm.historyService = NewHistoryService(d.Repo, sm.classroomService, d.Clock, d.Logger)
		sm.logger.Info("History service initialized")
	}

	sm.studySessionService = NewStudySessionService(sm.presenceService, sm.historyService, d.Publisher, d.Logger,
		WithSessionClock(d.Clock),
		WithSessionHeartbeatInterval(sm.config.HeartbeatInterval),
	)
	sm.logger.Info("Study session service initialized")

	return nil
}

// Service getters
func (sm *serviceManager) Identity() IdentityService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.identityService
}

func (sm *serviceManager) Classroom() ClassroomService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.classroomService
}

func (sm *serviceManager) Presence() PresenceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.presenceService
}

func (sm *serviceManager) StudySession() StudySessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.studySessionService
}

// History returns nil when history is disabled
func (sm *serviceManager) History() HistoryService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.historyService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Backend.Ping(ctx); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}

	if sm.deps.Repo != nil {
		if err := sm.deps.Repo.Ping(ctx); err != nil {
			return fmt.Errorf("repository health check failed: %w", err)
		}
	}

	return nil
}

// Shutdown ends open study sessions. Storage and repository connections are owned by the caller.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.studySessionService != nil {
		sm.studySessionService.Shutdown(ctx)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// ===== UTILITY METHODS =====

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}

// IsShutdown returns whether the service manager has been shut down
func (sm *serviceManager) IsShutdown() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.shutdown
}
