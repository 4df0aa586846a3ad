package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/validator"
	"gorm.io/gorm"
)

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	notifier  NotificationEventService
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, notifier NotificationEventService) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		notifier:  notifier,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*QuizResponse, error) {
	s.logger.Info("Creating quiz", "creator_id", creatorID, "title", req.Title)

	// Validate request with business rules
	if errors := s.validator.GetBusinessValidator().ValidateQuizCreate(req); errors.HasErrors() {
		return nil, errors
	}

	// Only instructors create quizzes
	canCreate, err := s.canCreateQuiz(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !canCreate {
		return nil, NewPermissionError(creatorID, 0, "quiz", "create", "insufficient role permissions")
	}

	quiz := &models.Quiz{
		Title:          req.Title,
		Description:    req.Description,
		CourseID:       req.CourseID,
		LessonID:       req.LessonID,
		Status:         models.QuizStatusDraft,
		Settings:       buildQuizSettings(req.Settings),
		AvailableFrom:  req.AvailableFrom,
		AvailableUntil: req.AvailableUntil,
		AccessLevel:    "paid",
		CreatedBy:      creatorID,
	}
	if req.AccessLevel != nil {
		quiz.AccessLevel = *req.AccessLevel
	}

	if err := s.repo.Quiz().Create(ctx, nil, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created successfully", "quiz_id", quiz.ID)

	return s.GetByIDWithQuestions(ctx, quiz.ID, creatorID)
}

func (s *quizService) GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "quiz", "read", "not owner or insufficient permissions")
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	return s.buildQuizResponse(ctx, quiz, userID), nil
}

func (s *quizService) GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "quiz", "read", "not owner or insufficient permissions")
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz with questions: %w", err)
	}

	return s.buildQuizResponse(ctx, quiz, userID), nil
}

func (s *quizService) Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error) {
	s.logger.Info("Updating quiz", "quiz_id", id, "user_id", userID)

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	// Validate request with business rules
	if errors := s.validator.GetBusinessValidator().ValidateQuizUpdate(req, quiz); errors.HasErrors() {
		return nil, errors
	}

	canEdit, err := s.CanEdit(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, NewPermissionError(userID, id, "quiz", "update", "not owner or quiz not editable")
	}

	applyQuizUpdates(quiz, req)

	if err := s.repo.Quiz().Update(ctx, nil, quiz); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}

	s.logger.Info("Quiz updated successfully", "quiz_id", id)

	return s.GetByIDWithQuestions(ctx, id, userID)
}

func (s *quizService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting quiz", "quiz_id", id, "user_id", userID)

	canDelete, err := s.CanDelete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !canDelete {
		return NewPermissionError(userID, id, "quiz", "delete", "not owner or quiz has attempts")
	}

	if err := s.repo.Quiz().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	s.logger.Info("Quiz deleted successfully", "quiz_id", id)
	return nil
}

// ===== LIST AND SEARCH OPERATIONS =====

func (s *quizService) List(ctx context.Context, filters repositories.QuizFilters, userID string) (*QuizListResponse, error) {
	userRole, err := s.getUserRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Apply role-based filtering
	switch userRole {
	case models.RoleStudent:
		// Students only see published quizzes
		activeStatus := models.QuizStatusActive
		filters.Status = &activeStatus
	case models.RoleInstructor:
		// Instructors see their own quizzes
		filters.CreatedBy = &userID
	}

	quizzes, total, err := s.repo.Quiz().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return s.buildQuizListResponse(ctx, quizzes, total, filters, userID), nil
}

func (s *quizService) GetByCourse(ctx context.Context, courseID uint, filters repositories.QuizFilters, userID string) (*QuizListResponse, error) {
	userRole, err := s.getUserRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	if userRole == models.RoleStudent {
		activeStatus := models.QuizStatusActive
		filters.Status = &activeStatus
	}

	quizzes, total, err := s.repo.Quiz().GetByCourse(ctx, nil, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get quizzes by course: %w", err)
	}

	return s.buildQuizListResponse(ctx, quizzes, total, filters, userID), nil
}

func (s *quizService) GetByCreator(ctx context.Context, creatorID string, filters repositories.QuizFilters) (*QuizListResponse, error) {
	quizzes, total, err := s.repo.Quiz().GetByCreator(ctx, nil, creatorID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get quizzes by creator: %w", err)
	}

	return s.buildQuizListResponse(ctx, quizzes, total, filters, creatorID), nil
}

// ===== STATUS MANAGEMENT =====

func (s *quizService) UpdateStatus(ctx context.Context, id uint, req *UpdateStatusRequest, userID string) error {
	s.logger.Info("Updating quiz status", "quiz_id", id, "new_status", req.Status, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	canEdit, err := s.CanEdit(ctx, id, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, id, "quiz", "update_status", "not owner or insufficient permissions")
	}

	questionCount, err := s.repo.Quiz().QuestionCount(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}

	// Enforce the lifecycle state machine
	if errors := s.validator.GetBusinessValidator().ValidateStatusTransition(quiz.Status, req.Status, int(questionCount)); errors.HasErrors() {
		return errors
	}

	if err := s.repo.Quiz().UpdateStatus(ctx, nil, id, req.Status); err != nil {
		return fmt.Errorf("failed to update quiz status: %w", err)
	}

	s.publishStatusEvent(ctx, quiz, req.Status, req.Reason)

	s.logger.Info("Quiz status updated successfully", "quiz_id", id, "status", req.Status)
	return nil
}

func (s *quizService) Publish(ctx context.Context, id uint, userID string) error {
	return s.UpdateStatus(ctx, id, &UpdateStatusRequest{Status: models.QuizStatusActive}, userID)
}

func (s *quizService) Archive(ctx context.Context, id uint, userID string) error {
	return s.UpdateStatus(ctx, id, &UpdateStatusRequest{Status: models.QuizStatusArchived}, userID)
}

// ExpireOverdue transitions every active quiz whose availability window has
// closed. Intended to run from a scheduler.
func (s *quizService) ExpireOverdue(ctx context.Context) ([]uint, error) {
	expired, err := s.repo.Quiz().ExpireOverdue(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue quizzes: %w", err)
	}

	if len(expired) > 0 {
		s.logger.Info("Expired overdue quizzes", "count", len(expired), "quiz_ids", expired)
	}

	if s.notifier != nil {
		for _, quizID := range expired {
			if err := s.notifier.NotifyQuizExpired(ctx, quizID); err != nil {
				s.logger.Warn("Failed to publish quiz expired event", "quiz_id", quizID, "error", err)
			}
		}
	}

	return expired, nil
}

// ===== QUESTION ORDERING =====

func (s *quizService) ReorderQuestions(ctx context.Context, quizID uint, req *ReorderQuestionsRequest, userID string) error {
	s.logger.Info("Reordering quiz questions", "quiz_id", quizID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	canEdit, err := s.CanEdit(ctx, quizID, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, quizID, "quiz", "reorder_questions", "not owner or insufficient permissions")
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz with questions: %w", err)
	}

	// The aggregate rejects anything that is not a permutation of the
	// current question ids
	reordered, err := quiz.ReorderQuestions(req.QuestionIDs)
	if err != nil {
		return NewValidationError("question_ids", err.Error(), req.QuestionIDs)
	}

	orderedIDs := make([]uint, len(reordered.Questions))
	for i, question := range reordered.Questions {
		orderedIDs[i] = question.ID
	}

	if err := s.repo.Quiz().SaveQuestionOrder(ctx, nil, quizID, orderedIDs); err != nil {
		return fmt.Errorf("failed to save question order: %w", err)
	}

	s.logger.Info("Questions reordered successfully", "quiz_id", quizID)
	return nil
}

// ===== STATISTICS =====

func (s *quizService) GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizStats, error) {
	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "quiz", "view_stats", "not owner or insufficient permissions")
	}

	stats, err := s.repo.Quiz().GetStats(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}

	return stats, nil
}
