package models

import (
	"fmt"
	"time"
)

type QuizStatus string

const (
	QuizStatusDraft    QuizStatus = "draft"
	QuizStatusActive   QuizStatus = "active"
	QuizStatusExpired  QuizStatus = "expired"
	QuizStatusArchived QuizStatus = "archived"
)

func IsValidQuizStatus(s QuizStatus) bool {
	switch s {
	case QuizStatusDraft, QuizStatusActive, QuizStatusExpired, QuizStatusArchived:
		return true
	}
	return false
}

// QuizSettings controls delivery behavior; embedded on the quiz row.
type QuizSettings struct {
	TimeLimit        *int `json:"time_limit" gorm:"column:time_limit"` // minutes
	PassingScore     int  `json:"passing_score" gorm:"column:passing_score;default:60" validate:"min=0,max=100"`
	ShuffleQuestions bool `json:"shuffle_questions" gorm:"column:shuffle_questions;default:false"`
	ShuffleOptions   bool `json:"shuffle_options" gorm:"column:shuffle_options;default:false"`
	ShowAnswersAfter bool `json:"show_answers_after" gorm:"column:show_answers_after;default:true"`
	AllowRetake      bool `json:"allow_retake" gorm:"column:allow_retake;default:true"`
	MaxAttempts      *int `json:"max_attempts" gorm:"column:max_attempts" validate:"omitempty,min=1,max=10"`
}

type Quiz struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:255" validate:"required,max=255"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=5000"`
	CourseID    uint    `json:"course_id" gorm:"not null;index"`
	LessonID    *uint   `json:"lesson_id" gorm:"index"`

	Status QuizStatus `json:"status" gorm:"default:draft;index"`

	Settings QuizSettings `json:"settings" gorm:"embedded"`

	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`

	AccessLevel string `json:"access_level" gorm:"default:paid;size:20"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
	Creator   User       `json:"creator" gorm:"foreignKey:CreatedBy"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// ===== AGGREGATE OPERATIONS =====
//
// The mutating operations below are value-style: they return a new Quiz with
// an updated question list and never modify the receiver's slice in place.
// Persistence maps the returned value back onto rows.

// AddQuestion appends a question to the quiz and assigns it the next order
// position.
func (q Quiz) AddQuestion(question Question) Quiz {
	question.QuizID = q.ID
	question.Order = len(q.Questions)

	questions := make([]Question, 0, len(q.Questions)+1)
	questions = append(questions, q.Questions...)
	questions = append(questions, question)

	q.Questions = questions
	return q
}

// UpdateQuestion replaces the question with the matching ID, keeping its
// position. Unknown IDs leave the quiz unchanged.
func (q Quiz) UpdateQuestion(question Question) Quiz {
	questions := make([]Question, len(q.Questions))
	copy(questions, q.Questions)

	for i := range questions {
		if questions[i].ID == question.ID {
			question.QuizID = q.ID
			question.Order = questions[i].Order
			questions[i] = question
			break
		}
	}

	q.Questions = questions
	return q
}

// DeleteQuestion removes the question with the given ID and closes the order
// gap. Deleting an unknown ID is a no-op.
func (q Quiz) DeleteQuestion(questionID uint) Quiz {
	questions := make([]Question, 0, len(q.Questions))
	for _, question := range q.Questions {
		if question.ID == questionID {
			continue
		}
		questions = append(questions, question)
	}
	for i := range questions {
		questions[i].Order = i
	}

	q.Questions = questions
	return q
}

// ReorderQuestions rearranges the quiz's questions to match orderedIDs.
// The new order must be a permutation of the current question IDs.
func (q Quiz) ReorderQuestions(orderedIDs []uint) (Quiz, error) {
	if len(orderedIDs) != len(q.Questions) {
		return q, fmt.Errorf("reorder list has %d ids, quiz has %d questions", len(orderedIDs), len(q.Questions))
	}

	byID := make(map[uint]Question, len(q.Questions))
	for _, question := range q.Questions {
		byID[question.ID] = question
	}

	questions := make([]Question, 0, len(orderedIDs))
	seen := make(map[uint]bool, len(orderedIDs))
	for i, id := range orderedIDs {
		question, ok := byID[id]
		if !ok {
			return q, fmt.Errorf("question %d is not part of the quiz", id)
		}
		if seen[id] {
			return q, fmt.Errorf("question %d appears more than once in reorder list", id)
		}
		seen[id] = true
		question.Order = i
		questions = append(questions, question)
	}

	q.Questions = questions
	return q, nil
}

// TotalPoints sums the effective point value of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for i := range q.Questions {
		total += q.Questions[i].EffectivePoints()
	}
	return total
}

func (q Quiz) TotalQuestions() int {
	return len(q.Questions)
}

// IsAvailableAt reports whether the quiz can be taken at the given time,
// respecting status and the availability window.
func (q Quiz) IsAvailableAt(now time.Time) bool {
	if q.Status != QuizStatusActive {
		return false
	}
	if q.AvailableFrom != nil && now.Before(*q.AvailableFrom) {
		return false
	}
	if q.AvailableUntil != nil && now.After(*q.AvailableUntil) {
		return false
	}
	return true
}
