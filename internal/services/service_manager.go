package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coursekit/quiz-service/internal/events"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/validator"
	"gorm.io/gorm"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	EnableDebugLogging bool
	LogLevel           slog.Level

	// Service-specific configurations
	Quiz     ServiceConfig
	Question ServiceConfig
	Attempt  ServiceConfig
	Grading  ServiceConfig

	DefaultTimeout time.Duration
}

type ServiceConfig struct {
	Enabled      bool
	CacheEnabled bool
	CacheTTL     time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db             *gorm.DB
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	config         ServiceManagerConfig

	// Service instances
	quizService         QuizService
	questionService     QuestionService
	attemptService      AttemptService
	gradingService      GradingService
	importExportService ImportExportService
	notificationService NotificationEventService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:             db,
		repo:           repo,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
		config:         config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,

		Quiz: ServiceConfig{
			Enabled:      true,
			CacheEnabled: true,
			CacheTTL:     10 * time.Minute,
		},
		Question: ServiceConfig{
			Enabled:      true,
			CacheEnabled: true,
			CacheTTL:     10 * time.Minute,
		},
		Attempt: ServiceConfig{
			Enabled:      true,
			CacheEnabled: false, // Real-time data
			CacheTTL:     0,
		},
		Grading: ServiceConfig{
			Enabled:      true,
			CacheEnabled: false,
			CacheTTL:     0,
		},

		DefaultTimeout: 30 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, eventPublisher, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	// Notification events feed the other services, wire them first
	sm.notificationService = NewNotificationEventService(sm.repo, sm.eventPublisher, sm.logger, sm.validator)

	if sm.config.Quiz.Enabled {
		sm.quizService = NewQuizService(sm.repo, sm.db, sm.logger, sm.validator, sm.notificationService)
		sm.logger.Info("Quiz service initialized")
	}

	if sm.config.Question.Enabled {
		sm.questionService = NewQuestionService(sm.repo, sm.db, sm.logger, sm.validator)
		sm.logger.Info("Question service initialized")
	}

	if sm.config.Attempt.Enabled {
		sm.attemptService = NewAttemptService(sm.repo, sm.db, sm.logger, sm.validator, sm.notificationService)
		sm.logger.Info("Attempt service initialized")
	}

	if sm.config.Grading.Enabled {
		sm.gradingService = NewGradingService(sm.db, sm.repo, sm.logger, sm.validator, sm.notificationService)
		sm.logger.Info("Grading service initialized")
	}

	sm.importExportService = NewImportExportService(sm.repo, sm.logger, sm.validator, sm.questionService)
	sm.logger.Info("ImportExport service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Quiz.Enabled && sm.quizService != nil {
		return sm.quizService
	}

	panic("quiz service not enabled or not initialized")
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Question.Enabled && sm.questionService != nil {
		return sm.questionService
	}

	panic("question service not enabled or not initialized")
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Attempt.Enabled && sm.attemptService != nil {
		return sm.attemptService
	}

	panic("attempt service not enabled or not initialized")
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Grading.Enabled && sm.gradingService != nil {
		return sm.gradingService
	}

	panic("grading service not enabled or not initialized")
}

func (sm *serviceManager) ImportExport() ImportExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.importExportService != nil {
		return sm.importExportService
	}

	panic("import/export service not initialized")
}

func (sm *serviceManager) NotificationEvent() NotificationEventService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.notificationService != nil {
		return sm.notificationService
	}

	panic("notification event service not initialized")
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

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.eventPublisher != nil {
		if err := sm.eventPublisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if err := sm.repo.Close(); err != nil {
		sm.logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// ===== UTILITY METHODS =====

// WithTimeout creates a context with the default timeout
func (sm *serviceManager) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sm.config.DefaultTimeout)
}

// ===== FACTORY FUNCTIONS =====

// CreateProductionServiceManager creates a service manager configured for production
func CreateProductionServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,

		Quiz:     ServiceConfig{Enabled: true, CacheEnabled: true, CacheTTL: 10 * time.Minute},
		Question: ServiceConfig{Enabled: true, CacheEnabled: true, CacheTTL: 30 * time.Minute},
		Attempt:  ServiceConfig{Enabled: true, CacheEnabled: false},
		Grading:  ServiceConfig{Enabled: true, CacheEnabled: false},

		DefaultTimeout: 60 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, eventPublisher, config)
}

// CreateDevelopmentServiceManager creates a service manager configured for development
func CreateDevelopmentServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: true,
		LogLevel:           slog.LevelDebug,

		Quiz:     ServiceConfig{Enabled: true, CacheEnabled: false},
		Question: ServiceConfig{Enabled: true, CacheEnabled: false},
		Attempt:  ServiceConfig{Enabled: true, CacheEnabled: false},
		Grading:  ServiceConfig{Enabled: true, CacheEnabled: false},

		DefaultTimeout: 10 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, eventPublisher, config)
}
