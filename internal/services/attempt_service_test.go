package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/validator"
	"gorm.io/gorm"
)

func TestNewAttemptService(t *testing.T) {
	type args struct {
		repo      repositories.Repository
		db        *gorm.DB
		logger    *slog.Logger
		validator *validator.Validator
	}
	tests := []struct {
		name string
		args args
		want AttemptService
	}{
		{name: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewAttemptService(tt.args.repo, tt.args.db, tt.args.logger, tt.args.validator, nil)
		})
	}
}

func TestAttemptExpired(t *testing.T) {
	thirty := 30

	untimed := &models.Quiz{}
	timed := &models.Quiz{Settings: models.QuizSettings{TimeLimit: &thirty}}

	tests := []struct {
		name    string
		quiz    *models.Quiz
		started time.Time
		want    bool
	}{
		{name: "untimed quiz never expires", quiz: untimed, started: time.Now().Add(-48 * time.Hour), want: false},
		{name: "within the time limit", quiz: timed, started: time.Now().Add(-10 * time.Minute), want: false},
		{name: "past the time limit", quiz: timed, started: time.Now().Add(-31 * time.Minute), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &attemptService{}
			attempt := &models.QuizAttempt{StartedAt: tt.started}
			if got := s.attemptExpired(attempt, tt.quiz); got != tt.want {
				t.Errorf("attemptExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
