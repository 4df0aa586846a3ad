package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/validator"
	"gorm.io/gorm"
)

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	notifier  NotificationEventService
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, notifier NotificationEventService) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		notifier:  notifier,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Starting quiz attempt",
		"quiz_id", req.QuizID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, req.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	// Resume instead of stacking up parallel attempts
	existing, err := s.repo.Attempt().GetInProgress(ctx, nil, req.QuizID, studentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check for active attempt: %w", err)
	}
	if existing != nil {
		if s.attemptExpired(existing, quiz) {
			if err := s.HandleTimeout(ctx, existing.ID); err != nil {
				s.logger.Error("Failed to expire stale attempt", "attempt_id", existing.ID, "error", err)
			}
		} else {
			s.logger.Info("Resuming existing attempt", "attempt_id", existing.ID)
			return s.buildAttemptResponse(existing, quiz), nil
		}
	}

	count, err := s.repo.Attempt().CountByStudent(ctx, nil, req.QuizID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	if errors := s.validator.GetBusinessValidator().ValidateAttemptStart(quiz, int(count)); errors.HasErrors() {
		return nil, errors
	}

	attempt := &models.QuizAttempt{
		QuizID:        req.QuizID,
		StudentID:     studentID,
		AttemptNumber: int(count) + 1,
		Status:        models.AttemptStatusInProgress,
		MaxScore:      float64(quiz.TotalPoints()),
		StartedAt:     time.Now(),
	}

	if err := s.repo.Attempt().Create(ctx, nil, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAttemptStarted(ctx, attempt); err != nil {
			s.logger.Warn("Failed to publish attempt started event", "attempt_id", attempt.ID, "error", err)
		}
	}

	s.logger.Info("Quiz attempt started successfully",
		"attempt_id", attempt.ID,
		"quiz_id", req.QuizID,
		"attempt_number", attempt.AttemptNumber)

	return s.buildAttemptResponse(attempt, quiz), nil
}

func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) error {
	s.logger.Info("Submitting answer",
		"attempt_id", attemptID,
		"question_id", req.QuestionID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	attempt, quiz, err := s.getActiveAttempt(ctx, attemptID, studentID, "submit_answer")
	if err != nil {
		return err
	}

	return s.upsertAnswer(ctx, nil, attempt, quiz, req)
}

func (s *attemptService) Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting quiz attempt",
		"attempt_id", attemptID,
		"student_id", studentID,
		"answers_count", len(req.Answers))

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	attempt, quiz, err := s.getActiveAttempt(ctx, attemptID, studentID, "submit")
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		for i := range req.Answers {
			if err := s.upsertAnswer(ctx, txRepo, attempt, quiz, &req.Answers[i]); err != nil {
				return fmt.Errorf("failed to store answer for question %d: %w", req.Answers[i].QuestionID, err)
			}
		}

		attempt.Status = models.AttemptStatusSubmitted
		attempt.SubmittedAt = timePtr(time.Now())
		attempt.TimeSpentSeconds = int(time.Since(attempt.StartedAt).Seconds())

		if err := txRepo.Attempt().Update(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit attempt: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAttemptSubmitted(ctx, attempt); err != nil {
			s.logger.Warn("Failed to publish attempt submitted event", "attempt_id", attemptID, "error", err)
		}
	}

	// Everything with an answer key is graded immediately; the rest lands in
	// the manual grading queue
	gradingService := NewGradingService(s.db, s.repo, s.logger, s.validator, s.notifier)
	if _, err := gradingService.AutoGradeAttempt(ctx, attemptID); err != nil {
		s.logger.Error("Failed to auto-grade attempt", "attempt_id", attemptID, "error", err)
	}

	s.logger.Info("Quiz attempt submitted successfully",
		"attempt_id", attemptID,
		"student_id", studentID)

	return s.GetByIDWithAnswers(ctx, attemptID, studentID)
}

func timePtr(now time.Time) *time.Time {
	return &now
}

// ===== GET OPERATIONS =====

func (s *attemptService) GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if err := s.checkAttemptAccess(ctx, attempt, userID, "read"); err != nil {
		return nil, err
	}

	return s.buildAttemptResponse(attempt, nil), nil
}

func (s *attemptService) GetByIDWithAnswers(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt with answers: %w", err)
	}

	if err := s.checkAttemptAccess(ctx, attempt, userID, "read"); err != nil {
		return nil, err
	}

	return s.buildAttemptResponse(attempt, nil), nil
}

// ===== LIST OPERATIONS =====

func (s *attemptService) GetByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error) {
	attempts, total, err := s.repo.Attempt().GetByStudent(ctx, nil, studentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get attempts by student: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = s.buildAttemptResponse(attempt, nil)
	}

	return responses, total, nil
}

func (s *attemptService) GetByQuiz(ctx context.Context, quizID uint, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error) {
	if err := s.checkQuizOwnership(ctx, quizID, userID, "view_attempts"); err != nil {
		return nil, 0, err
	}

	attempts, total, err := s.repo.Attempt().GetByQuiz(ctx, nil, quizID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get attempts by quiz: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = s.buildAttemptResponse(attempt, nil)
	}

	return responses, total, nil
}

// ===== VALIDATION =====

func (s *attemptService) CanStart(ctx context.Context, quizID uint, studentID string) (bool, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrQuizNotFound
		}
		return false, fmt.Errorf("failed to get quiz: %w", err)
	}

	count, err := s.repo.Attempt().CountByStudent(ctx, nil, quizID, studentID)
	if err != nil {
		return false, fmt.Errorf("failed to count attempts: %w", err)
	}

	errors := s.validator.GetBusinessValidator().ValidateAttemptStart(quiz, int(count))
	return !errors.HasErrors(), nil
}

func (s *attemptService) GetAttemptCount(ctx context.Context, quizID uint, studentID string) (int, error) {
	count, err := s.repo.Attempt().CountByStudent(ctx, nil, quizID, studentID)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return int(count), nil
}

// ===== TIME MANAGEMENT =====

// HandleTimeout closes an overdue attempt and grades what was submitted so
// far.
func (s *attemptService) HandleTimeout(ctx context.Context, attemptID uint) error {
	s.logger.Info("Handling attempt timeout", "attempt_id", attemptID)

	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.Status != models.AttemptStatusInProgress {
		return ErrAttemptNotActive
	}

	attempt.Status = models.AttemptStatusExpired
	attempt.SubmittedAt = timePtr(time.Now())
	attempt.TimeSpentSeconds = int(time.Since(attempt.StartedAt).Seconds())

	if err := s.repo.Attempt().Update(ctx, nil, attempt); err != nil {
		return fmt.Errorf("failed to expire attempt: %w", err)
	}

	gradingService := NewGradingService(s.db, s.repo, s.logger, s.validator, s.notifier)
	if _, err := gradingService.AutoGradeAttempt(ctx, attemptID); err != nil {
		s.logger.Error("Failed to auto-grade expired attempt", "attempt_id", attemptID, "error", err)
	}

	return nil
}

func (s *attemptService) ExpireOverdue(ctx context.Context, quizID uint) ([]uint, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	// Untimed quizzes never expire attempts
	if quiz.Settings.TimeLimit == nil {
		return nil, nil
	}

	expired, err := s.repo.Attempt().ExpireOverdue(ctx, nil, quizID, *quiz.Settings.TimeLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue attempts: %w", err)
	}

	if len(expired) > 0 {
		s.logger.Info("Expired overdue attempts", "quiz_id", quizID, "count", len(expired))
	}

	return expired, nil
}

// ===== STATISTICS =====

func (s *attemptService) GetStats(ctx context.Context, quizID uint, userID string) (*repositories.AttemptStats, error) {
	if err := s.checkQuizOwnership(ctx, quizID, userID, "view_stats"); err != nil {
		return nil, err
	}

	stats, err := s.repo.Attempt().GetStats(ctx, nil, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt stats: %w", err)
	}

	return stats, nil
}
