package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
	AttemptStatusGraded     AttemptStatus = "graded"
	AttemptStatusExpired    AttemptStatus = "expired"
)

// QuizAttempt is one student's pass through a quiz.
type QuizAttempt struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	QuizID uint `json:"quiz_id" gorm:"not null;index:idx_attempt_quiz_student"`

	StudentID string `json:"student_id" gorm:"not null;index:idx_attempt_quiz_student;size:255"`

	AttemptNumber int           `json:"attempt_number" gorm:"default:1"`
	Status        AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	Score       float64 `json:"score" gorm:"default:0"`        // earned points
	MaxScore    float64 `json:"max_score" gorm:"default:0"`    // quiz total at submit time
	Percentage  float64 `json:"percentage" gorm:"default:0"`   // 0..100
	LetterGrade string  `json:"letter_grade" gorm:"size:2"`    // A..F, set once graded
	Passed      bool    `json:"passed" gorm:"default:false"`
	IsGraded    bool    `json:"is_graded" gorm:"default:false"` // false while manual grading is pending

	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	GradedAt    *time.Time `json:"graded_at"`
	GradedBy    *string    `json:"graded_by" gorm:"size:255"`

	TimeSpentSeconds int `json:"time_spent_seconds" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Quiz    *Quiz           `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
	Student User            `json:"student" gorm:"foreignKey:StudentID"`
	Answers []StudentAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// StudentAnswer is a single submitted answer within an attempt.
type StudentAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;index"`
	QuestionID uint `json:"question_id" gorm:"not null;index"`

	// Submission payload in the variant's shape
	Answer datatypes.JSON `json:"answer" gorm:"type:jsonb"`

	EarnedPoints float64 `json:"earned_points" gorm:"default:0"`
	MaxPoints    float64 `json:"max_points" gorm:"default:0"`
	IsCorrect    bool    `json:"is_correct" gorm:"default:false"`

	// Manual grading for essay and code questions
	RequiresManualGrading bool       `json:"requires_manual_grading" gorm:"default:false"`
	GraderFeedback        *string    `json:"grader_feedback" gorm:"type:text"`
	GradedAt              *time.Time `json:"graded_at"`
	GradedBy              *string    `json:"graded_by" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}
