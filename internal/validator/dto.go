package validator

import (
	"encoding/json"
	"time"

	"github.com/coursekit/quiz-service/internal/models"
)

// QuizCreateRequest represents the request structure for creating quizzes
type QuizCreateRequest struct {
	Title          string               `json:"title" validate:"required,quiz_title"`
	Description    *string              `json:"description" validate:"omitempty,quiz_description"`
	CourseID       uint                 `json:"course_id" validate:"required"`
	LessonID       *uint                `json:"lesson_id"`
	Settings       *QuizSettingsRequest `json:"settings"`
	AvailableFrom  *time.Time           `json:"available_from"`
	AvailableUntil *time.Time           `json:"available_until"`
	AccessLevel    *string              `json:"access_level" validate:"omitempty,oneof=free paid"`
}

// QuizUpdateRequest represents the request structure for updating quizzes
type QuizUpdateRequest struct {
	Title          *string              `json:"title" validate:"omitempty,quiz_title"`
	Description    *string              `json:"description" validate:"omitempty,quiz_description"`
	LessonID       *uint                `json:"lesson_id"`
	Settings       *QuizSettingsRequest `json:"settings"`
	AvailableFrom  *time.Time           `json:"available_from"`
	AvailableUntil *time.Time           `json:"available_until"`
	AccessLevel    *string              `json:"access_level" validate:"omitempty,oneof=free paid"`
}

// QuizSettingsRequest represents delivery settings
type QuizSettingsRequest struct {
	TimeLimit        *int  `json:"time_limit" validate:"omitempty,min=1,max=480"`
	PassingScore     *int  `json:"passing_score" validate:"omitempty,passing_score"`
	ShuffleQuestions *bool `json:"shuffle_questions"`
	ShuffleOptions   *bool `json:"shuffle_options"`
	ShowAnswersAfter *bool `json:"show_answers_after"`
	AllowRetake      *bool `json:"allow_retake"`
	MaxAttempts      *int  `json:"max_attempts" validate:"omitempty,max_attempts"`
}

// QuestionCreateRequest represents the request structure for creating questions
type QuestionCreateRequest struct {
	Type        models.QuestionType    `json:"type" validate:"required,question_type"`
	Text        string                 `json:"text" validate:"required,min=1,max=2000"`
	Description *string                `json:"description" validate:"omitempty,max=2000"`
	Content     json.RawMessage        `json:"content"`
	Points      int                    `json:"points" validate:"required,points_range"`
	Difficulty  models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Explanation *string                `json:"explanation" validate:"omitempty,max=2000"`
	Hints       []string               `json:"hints" validate:"omitempty,max=5,dive,max=200"`
	AccessLevel *string                `json:"access_level" validate:"omitempty,oneof=free paid"`
}

// QuestionUpdateRequest represents the request structure for updating questions
type QuestionUpdateRequest struct {
	Text        *string                 `json:"text" validate:"omitempty,min=1,max=2000"`
	Description *string                 `json:"description" validate:"omitempty,max=2000"`
	Content     json.RawMessage         `json:"content"`
	Points      *int                    `json:"points" validate:"omitempty,points_range"`
	Difficulty  *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Explanation *string                 `json:"explanation" validate:"omitempty,max=2000"`
	Hints       []string                `json:"hints" validate:"omitempty,max=5,dive,max=200"`
	AccessLevel *string                 `json:"access_level" validate:"omitempty,oneof=free paid"`
}

// ReorderRequest carries the complete new question ordering for a quiz
type ReorderRequest struct {
	QuestionIDs []uint `json:"question_ids" validate:"required,min=1"`
}

// SubmitAnswerRequest carries one answer within an in-progress attempt
type SubmitAnswerRequest struct {
	QuestionID uint            `json:"question_id" validate:"required"`
	Answer     json.RawMessage `json:"answer" validate:"required"`
}

// SubmitAttemptRequest finalizes an attempt with its full answer set
type SubmitAttemptRequest struct {
	Answers []SubmitAnswerRequest `json:"answers" validate:"required,dive"`
}

// ManualGradeRequest applies an instructor grade to one answer
type ManualGradeRequest struct {
	EarnedPoints float64 `json:"earned_points" validate:"min=0"`
	Feedback     *string `json:"feedback" validate:"omitempty,max=5000"`
}
