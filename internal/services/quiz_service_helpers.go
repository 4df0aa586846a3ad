package services

import (
	"context"
	"fmt"
	"time"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
)

// ===== PERMISSION CHECKS =====

func (s *quizService) CanAccess(ctx context.Context, quizID uint, userID string) (bool, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrQuizNotFound
		}
		return false, fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.CreatedBy == userID {
		return true, nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Role == models.RoleAdmin || user.Role == models.RoleProctor {
		return true, nil
	}

	// Students see a quiz once it is published
	return quiz.Status == models.QuizStatusActive, nil
}

func (s *quizService) CanEdit(ctx context.Context, quizID uint, userID string) (bool, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrQuizNotFound
		}
		return false, fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.Status == models.QuizStatusArchived {
		return false, nil
	}

	if quiz.CreatedBy == userID {
		return true, nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	return user.Role == models.RoleAdmin, nil
}

func (s *quizService) CanDelete(ctx context.Context, quizID uint, userID string) (bool, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrQuizNotFound
		}
		return false, fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.CreatedBy != userID {
		user, err := s.repo.User().GetByID(ctx, userID)
		if err != nil {
			return false, fmt.Errorf("failed to get user: %w", err)
		}
		if user.Role != models.RoleAdmin {
			return false, nil
		}
	}

	hasAttempts, err := s.repo.Quiz().HasAttempts(ctx, nil, quizID)
	if err != nil {
		return false, fmt.Errorf("failed to check quiz attempts: %w", err)
	}

	if errors := s.validator.GetBusinessValidator().ValidateDeletePermission(hasAttempts, quiz.Status); errors.HasErrors() {
		return false, nil
	}

	return true, nil
}

func (s *quizService) CanTake(ctx context.Context, quizID uint, userID string) (bool, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrQuizNotFound
		}
		return false, fmt.Errorf("failed to get quiz: %w", err)
	}

	// Authors do not take their own quizzes
	if quiz.CreatedBy == userID {
		return false, nil
	}

	return quiz.IsAvailableAt(time.Now()), nil
}

func (s *quizService) canCreateQuiz(ctx context.Context, creatorID string) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, creatorID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	return user.IsInstructor() || user.Role == models.RoleAdmin, nil
}

func (s *quizService) getUserRole(ctx context.Context, userID string) (models.UserRole, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return user.Role, nil
}

// ===== RESPONSE BUILDING =====

func (s *quizService) buildQuizResponse(ctx context.Context, quiz *models.Quiz, userID string) *QuizResponse {
	canEdit := quiz.CreatedBy == userID && quiz.Status != models.QuizStatusArchived
	canDelete := quiz.CreatedBy == userID && quiz.Status == models.QuizStatusDraft
	canTake := quiz.CreatedBy != userID && quiz.IsAvailableAt(time.Now())

	return &QuizResponse{
		Quiz:           quiz,
		TotalPoints:    quiz.TotalPoints(),
		TotalQuestions: quiz.TotalQuestions(),
		CanEdit:        canEdit,
		CanDelete:      canDelete,
		CanTake:        canTake,
	}
}

func (s *quizService) buildQuizListResponse(ctx context.Context, quizzes []*models.Quiz, total int64, filters repositories.QuizFilters, userID string) *QuizListResponse {
	responses := make([]*QuizResponse, len(quizzes))
	for i, quiz := range quizzes {
		responses[i] = s.buildQuizResponse(ctx, quiz, userID)
	}

	page := 1
	size := len(responses)
	if filters.Limit > 0 {
		size = filters.Limit
		page = (filters.Offset / filters.Limit) + 1
	}

	return &QuizListResponse{
		Quizzes: responses,
		Total:   total,
		Page:    page,
		Size:    size,
	}
}

// ===== UPDATE HELPERS =====

func buildQuizSettings(req *QuizSettingsRequest) models.QuizSettings {
	settings := models.QuizSettings{
		PassingScore:     60,
		ShowAnswersAfter: true,
		AllowRetake:      true,
	}
	if req == nil {
		return settings
	}

	settings.TimeLimit = req.TimeLimit
	settings.MaxAttempts = req.MaxAttempts
	if req.PassingScore != nil {
		settings.PassingScore = *req.PassingScore
	}
	if req.ShuffleQuestions != nil {
		settings.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		settings.ShuffleOptions = *req.ShuffleOptions
	}
	if req.ShowAnswersAfter != nil {
		settings.ShowAnswersAfter = *req.ShowAnswersAfter
	}
	if req.AllowRetake != nil {
		settings.AllowRetake = *req.AllowRetake
	}

	return settings
}

func applyQuizUpdates(quiz *models.Quiz, req *UpdateQuizRequest) {
	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.LessonID != nil {
		quiz.LessonID = req.LessonID
	}
	if req.AvailableFrom != nil {
		quiz.AvailableFrom = req.AvailableFrom
	}
	if req.AvailableUntil != nil {
		quiz.AvailableUntil = req.AvailableUntil
	}
	if req.AccessLevel != nil {
		quiz.AccessLevel = *req.AccessLevel
	}

	if req.Settings != nil {
		if req.Settings.TimeLimit != nil {
			quiz.Settings.TimeLimit = req.Settings.TimeLimit
		}
		if req.Settings.PassingScore != nil {
			quiz.Settings.PassingScore = *req.Settings.PassingScore
		}
		if req.Settings.ShuffleQuestions != nil {
			quiz.Settings.ShuffleQuestions = *req.Settings.ShuffleQuestions
		}
		if req.Settings.ShuffleOptions != nil {
			quiz.Settings.ShuffleOptions = *req.Settings.ShuffleOptions
		}
		if req.Settings.ShowAnswersAfter != nil {
			quiz.Settings.ShowAnswersAfter = *req.Settings.ShowAnswersAfter
		}
		if req.Settings.AllowRetake != nil {
			quiz.Settings.AllowRetake = *req.Settings.AllowRetake
		}
		if req.Settings.MaxAttempts != nil {
			quiz.Settings.MaxAttempts = req.Settings.MaxAttempts
		}
	}
}

// ===== EVENTS =====

func (s *quizService) publishStatusEvent(ctx context.Context, quiz *models.Quiz, newStatus models.QuizStatus, reason *string) {
	if s.notifier == nil {
		return
	}

	quiz.Status = newStatus

	var err error
	switch newStatus {
	case models.QuizStatusActive:
		err = s.notifier.NotifyQuizPublished(ctx, quiz)
	case models.QuizStatusArchived:
		err = s.notifier.NotifyQuizArchived(ctx, quiz, reason)
	default:
		return
	}

	if err != nil {
		s.logger.Warn("Failed to publish quiz status event",
			"quiz_id", quiz.ID,
			"status", newStatus,
			"error", err)
	}
}
