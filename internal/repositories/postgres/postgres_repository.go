package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories/casdoor"
)

// PostgreSQLRepository implements the main Repository interface.
// It also runs on SQLite for local setups; nothing here is Postgres specific.
type PostgreSQLRepository struct {
	db *gorm.DB

	// Repository instances
	studyLog    repositories.StudyLogRepository
	credentials repositories.CredentialVerifier
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB            *gorm.DB
	CasdoorConfig casdoor.CasdoorConfig
	// Fallback verifier used when Casdoor is not configured
	LocalVerifier repositories.CredentialVerifier
}

// NewPostgreSQLRepository creates a repository with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	repo := &PostgreSQLRepository{
		db:       config.DB,
		studyLog: NewStudyLogPostgreSQL(config.DB),
	}

	// Credentials come from Casdoor when it is configured
	if config.CasdoorConfig.Endpoint != "" {
		repo.credentials = casdoor.NewCredentialCasdoor(config.CasdoorConfig)
	} else {
		repo.credentials = config.LocalVerifier
	}

	return repo
}

// StudyLog returns the study log repository
func (r *PostgreSQLRepository) StudyLog() repositories.StudyLogRepository {
	return r.studyLog
}

// Credentials returns the credential verifier
func (r *PostgreSQLRepository) Credentials() repositories.CredentialVerifier {
	return r.credentials
}

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:       tx,
			studyLog: NewStudyLogPostgreSQL(tx),
			// external, not transactional
			credentials: r.credentials,
		}
		return fn(txRepo)
	})
}

// Ping checks the health of the database connection
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize checks the connection, migrates the schema and builds the repositories
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if err := rm.config.DB.WithContext(ctx).AutoMigrate(&models.StudyLog{}); err != nil {
		return fmt.Errorf("failed to migrate study logs: %w", err)
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}
