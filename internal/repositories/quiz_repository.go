package repositories

import (
	"context"

	"github.com/coursekit/quiz-service/internal/models"
	"gorm.io/gorm"
)

// QuizRepository interface for quiz aggregate persistence
type QuizRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters QuizFilters) ([]*models.Quiz, int64, error)
	GetByCourse(ctx context.Context, tx *gorm.DB, courseID uint, filters QuizFilters) ([]*models.Quiz, int64, error)
	GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters QuizFilters) ([]*models.Quiz, int64, error)

	// Lifecycle
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.QuizStatus) error
	ExpireOverdue(ctx context.Context, tx *gorm.DB) ([]uint, error)

	// Questions within the aggregate
	SaveQuestionOrder(ctx context.Context, tx *gorm.DB, quizID uint, orderedIDs []uint) error

	// Validation and checks
	HasAttempts(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	QuestionCount(ctx context.Context, tx *gorm.DB, id uint) (int64, error)

	// Statistics
	GetStats(ctx context.Context, tx *gorm.DB, id uint) (*QuizStats, error)
}

// QuestionRepository interface for question-specific operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Bulk operations
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error)

	// Query operations
	GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error)
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)

	// Content management
	UpdateContent(ctx context.Context, tx *gorm.DB, id uint, content interface{}) error
}

// AttemptRepository interface for quiz attempt operations
type AttemptRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error)
	GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error

	// Query operations
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
	GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
	GetInProgress(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (*models.QuizAttempt, error)

	// Attempt accounting
	CountByStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (int64, error)
	ExpireOverdue(ctx context.Context, tx *gorm.DB, quizID uint, timeLimitMinutes int) ([]uint, error)

	// Statistics
	GetStats(ctx context.Context, tx *gorm.DB, quizID uint) (*AttemptStats, error)
}

// AnswerRepository interface for per-question answer rows
type AnswerRepository interface {
	Create(ctx context.Context, tx *gorm.DB, answer *models.StudentAnswer) error
	CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.StudentAnswer) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.StudentAnswer, error)
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.StudentAnswer, error)
	Update(ctx context.Context, tx *gorm.DB, answer *models.StudentAnswer) error

	// Manual grading queue
	GetPendingGrading(ctx context.Context, tx *gorm.DB, quizID uint, filters AnswerFilters) ([]*models.StudentAnswer, int64, error)
	GetGradingStats(ctx context.Context, tx *gorm.DB, quizID uint) (*GradingStats, error)
}

// UserRepository interface for user operations (read-only, identity provider
// owns the data)
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)

	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)

	ExistsByID(ctx context.Context, id string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}
