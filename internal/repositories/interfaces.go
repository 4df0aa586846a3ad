package repositories

import (
	"time"

	"github.com/coursekit/quiz-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	Status    *models.QuizStatus `json:"status"`
	CourseID  *uint              `json:"course_id"`
	LessonID  *uint              `json:"lesson_id"`
	CreatedBy *string            `json:"created_by"`
	DateFrom  *time.Time         `json:"date_from"`
	DateTo    *time.Time         `json:"date_to"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title", "status"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type QuestionFilters struct {
	Type       *models.QuestionType    `json:"type"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	CreatedBy  *string                 `json:"created_by"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortBy     string                  `json:"sort_by"`
	SortOrder  string                  `json:"sort_order"`
}

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	QuizID    *uint                 `json:"quiz_id"`
	StudentID *string               `json:"student_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type AnswerFilters struct {
	RequiresManualGrading *bool   `json:"requires_manual_grading"`
	GradedBy              *string `json:"graded_by"`
	Limit                 int     `json:"limit"`
	Offset                int     `json:"offset"`
}

// UserFilters defines filters for user queries
type UserFilters struct {
	Query  string // search query for name or email
	Limit  int
	Offset int
}

// ===== SHARED STATISTICS STRUCTS =====

type QuizStats struct {
	TotalAttempts     int     `json:"total_attempts"`
	CompletedAttempts int     `json:"completed_attempts"`
	AverageScore      float64 `json:"average_score"`
	PassRate          float64 `json:"pass_rate"`
	AverageTimeSpent  int     `json:"average_time_spent"`
	QuestionCount     int     `json:"question_count"`
	TotalPoints       int     `json:"total_points"`
}

type AttemptStats struct {
	TotalAttempts    int                          `json:"total_attempts"`
	StatusBreakdown  map[models.AttemptStatus]int `json:"status_breakdown"`
	AverageScore     float64                      `json:"average_score"`
	AverageTimeSpent int                          `json:"average_time_spent"`
	PassRate         float64                      `json:"pass_rate"`
}

type GradingStats struct {
	TotalAnswers   int     `json:"total_answers"`
	GradedAnswers  int     `json:"graded_answers"`
	PendingAnswers int     `json:"pending_answers"`
	AutoGraded     int     `json:"auto_graded"`
	ManualGraded   int     `json:"manual_graded"`
	AverageScore   float64 `json:"average_score"`
}
