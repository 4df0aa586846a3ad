package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateQuizRequest = validator.QuizCreateRequest
type UpdateQuizRequest = validator.QuizUpdateRequest
type QuizSettingsRequest = validator.QuizSettingsRequest

// Use business validator types
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type ReorderQuestionsRequest = validator.ReorderRequest

type SubmitAnswerRequest = validator.SubmitAnswerRequest
type SubmitAttemptRequest = validator.SubmitAttemptRequest
type ManualGradeRequest = validator.ManualGradeRequest

type QuizResponse struct {
	*models.Quiz
	TotalPoints    int  `json:"total_points"`
	TotalQuestions int  `json:"total_questions"`
	CanEdit        bool `json:"can_edit"`
	CanDelete      bool `json:"can_delete"`
	CanTake        bool `json:"can_take"`
}

type QuizListResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Size    int             `json:"size"`
}

type UpdateStatusRequest struct {
	Status models.QuizStatus `json:"status" validate:"required,oneof=draft active expired archived"`
	Reason *string           `json:"reason" validate:"omitempty,max=500"`
}

type QuestionResponse struct {
	*models.Question
	EffectivePoints int  `json:"effective_points"`
	CanEdit         bool `json:"can_edit"`
	CanDelete       bool `json:"can_delete"`
}

type QuestionListResponse struct {
	Questions []*QuestionResponse `json:"questions"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	Size      int                 `json:"size"`
}

// ===== ATTEMPT RELATED DTOs =====

type StartAttemptRequest struct {
	QuizID uint `json:"quiz_id" validate:"required"`
}

type AttemptResponse struct {
	*models.QuizAttempt
	CanSubmit        bool `json:"can_submit"`
	IsPendingGrade   bool `json:"is_pending_grade"`
	TimeRemainingSec *int `json:"time_remaining_sec,omitempty"`
}

// ===== GRADING RELATED DTOs =====

type GradingResult struct {
	AnswerID              uint      `json:"answer_id"`
	QuestionID            uint      `json:"question_id"`
	Score                 float64   `json:"score"`
	MaxScore              float64   `json:"max_score"`
	IsCorrect             bool      `json:"is_correct"`
	PartialCredit         bool      `json:"partial_credit"`
	RequiresManualGrading bool      `json:"requires_manual_grading"`
	Feedback              *string   `json:"feedback"`
	GradedAt              time.Time `json:"graded_at"`
	GradedBy              *string   `json:"graded_by"`
}

type AttemptGradingResult struct {
	AttemptID  uint            `json:"attempt_id"`
	TotalScore float64         `json:"total_score"`
	MaxScore   float64         `json:"max_score"`
	Percentage float64         `json:"percentage"`
	IsPassing  bool            `json:"is_passing"`
	Grade      *string         `json:"grade"`
	Questions  []GradingResult `json:"questions"`
	GradedAt   time.Time       `json:"graded_at"`
	GradedBy   string          `json:"graded_by"`
}

// ===== IMPORT/EXPORT DTOs =====

type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ===== SERVICE INTERFACES =====

type QuizService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*QuizResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List and search operations
	List(ctx context.Context, filters repositories.QuizFilters, userID string) (*QuizListResponse, error)
	GetByCourse(ctx context.Context, courseID uint, filters repositories.QuizFilters, userID string) (*QuizListResponse, error)
	GetByCreator(ctx context.Context, creatorID string, filters repositories.QuizFilters) (*QuizListResponse, error)

	// Status management
	UpdateStatus(ctx context.Context, id uint, req *UpdateStatusRequest, userID string) error
	Publish(ctx context.Context, id uint, userID string) error
	Archive(ctx context.Context, id uint, userID string) error
	ExpireOverdue(ctx context.Context) ([]uint, error)

	// Question ordering lives on the aggregate
	ReorderQuestions(ctx context.Context, quizID uint, req *ReorderQuestionsRequest, userID string) error

	// Statistics
	GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizStats, error)

	// Permission checks
	CanAccess(ctx context.Context, quizID uint, userID string) (bool, error)
	CanEdit(ctx context.Context, quizID uint, userID string) (bool, error)
	CanDelete(ctx context.Context, quizID uint, userID string) (bool, error)
	CanTake(ctx context.Context, quizID uint, userID string) (bool, error)
}

type QuestionService interface {
	// Core CRUD operations
	Create(ctx context.Context, quizID uint, req *CreateQuestionRequest, creatorID string) (*QuestionResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List operations
	GetByQuiz(ctx context.Context, quizID uint, userID string) ([]*QuestionResponse, error)
	List(ctx context.Context, filters repositories.QuestionFilters, userID string) (*QuestionListResponse, error)

	// Bulk operations
	CreateBatch(ctx context.Context, quizID uint, questions []*CreateQuestionRequest, creatorID string) ([]*QuestionResponse, []error)

	// CreateDefault returns an unsaved skeleton question for the builder
	CreateDefault(ctx context.Context, questionType models.QuestionType) (*models.Question, error)

	// Permission checks
	CanEdit(ctx context.Context, questionID uint, userID string) (bool, error)
}

type AttemptService interface {
	// Core attempt operations
	Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) error
	Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, studentID string) (*AttemptResponse, error)

	// Get operations
	GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error)
	GetByIDWithAnswers(ctx context.Context, id uint, userID string) (*AttemptResponse, error)

	// List operations
	GetByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error)
	GetByQuiz(ctx context.Context, quizID uint, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error)

	// Validation
	CanStart(ctx context.Context, quizID uint, studentID string) (bool, error)
	GetAttemptCount(ctx context.Context, quizID uint, studentID string) (int, error)

	// Time management
	HandleTimeout(ctx context.Context, attemptID uint) error
	ExpireOverdue(ctx context.Context, quizID uint) ([]uint, error)

	// Statistics
	GetStats(ctx context.Context, quizID uint, userID string) (*repositories.AttemptStats, error)
}

type GradingService interface {
	// Auto grading
	AutoGradeAttempt(ctx context.Context, attemptID uint) (*AttemptGradingResult, error)
	AutoGradeQuiz(ctx context.Context, quizID uint) (map[uint]*AttemptGradingResult, error)

	// Manual grading
	GradeAnswer(ctx context.Context, answerID uint, req *ManualGradeRequest, graderID string) (*GradingResult, error)

	// Grading utilities. CalculateScore returns the earned fraction of the
	// question's effective points plus full correctness.
	CalculateScore(ctx context.Context, questionType models.QuestionType, questionContent json.RawMessage, studentAnswer json.RawMessage) (float64, bool, error)
	GenerateFeedback(ctx context.Context, questionType models.QuestionType, questionContent json.RawMessage, studentAnswer json.RawMessage, isCorrect bool) (*string, error)

	// Manual grading queue
	GetPendingGrading(ctx context.Context, quizID uint, filters repositories.AnswerFilters, userID string) ([]*models.StudentAnswer, int64, error)
	GetGradingOverview(ctx context.Context, quizID uint, userID string) (*repositories.GradingStats, error)
}

type ImportExportService interface {
	ExportQuiz(ctx context.Context, quizID uint, userID string) ([]byte, error)
	ImportQuestions(ctx context.Context, quizID uint, data []byte, userID string) (*ImportResult, error)
}

type NotificationEventService interface {
	NotifyQuizPublished(ctx context.Context, quiz *models.Quiz) error
	NotifyQuizArchived(ctx context.Context, quiz *models.Quiz, reason *string) error
	NotifyQuizExpired(ctx context.Context, quizID uint) error
	NotifyAttemptStarted(ctx context.Context, attempt *models.QuizAttempt) error
	NotifyAttemptSubmitted(ctx context.Context, attempt *models.QuizAttempt) error
	NotifyAttemptGraded(ctx context.Context, attempt *models.QuizAttempt) error
	NotifyGradingPending(ctx context.Context, attempt *models.QuizAttempt, pendingCount int) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Quiz() QuizService
	Question() QuestionService
	Attempt() AttemptService
	Grading() GradingService

	// Additional service getters
	ImportExport() ImportExportService
	NotificationEvent() NotificationEventService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
