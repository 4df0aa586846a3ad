package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, quizID uint, req *CreateQuestionRequest, creatorID string) (*QuestionResponse, error) {
	s.logger.Info("Creating question", "quiz_id", quizID, "type", req.Type, "creator_id", creatorID)

	// Struct rules plus the type-specific content rules
	if errors := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); errors.HasErrors() {
		return nil, errors
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if err := s.checkQuizEditable(ctx, quiz, creatorID, "add_question"); err != nil {
		return nil, err
	}

	count, err := s.repo.Quiz().QuestionCount(ctx, nil, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	question := &models.Question{
		QuizID:      quizID,
		Type:        req.Type,
		Text:        req.Text,
		Description: req.Description,
		Content:     datatypes.JSON(req.Content),
		Points:      req.Points,
		Order:       int(count),
		Difficulty:  req.Difficulty,
		Explanation: req.Explanation,
		AccessLevel: "paid",
		CreatedBy:   creatorID,
	}
	if question.Difficulty == "" {
		question.Difficulty = models.DifficultyMedium
	}
	if req.AccessLevel != nil {
		question.AccessLevel = *req.AccessLevel
	}
	if len(req.Hints) > 0 {
		hints, err := json.Marshal(req.Hints)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal hints: %w", err)
		}
		question.Hints = hints
	}

	reconcileFillBlankPoints(question)

	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question created successfully", "question_id", question.ID, "quiz_id", quizID)

	return s.buildQuestionResponse(question, creatorID), nil
}

func (s *questionService) GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return s.buildQuestionResponse(question, userID), nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error) {
	s.logger.Info("Updating question", "question_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	canEdit, err := s.CanEdit(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, NewPermissionError(userID, id, "question", "update", "not owner or insufficient permissions")
	}

	// Replacement content must satisfy the rules for the question's type
	if len(req.Content) > 0 {
		if errors := s.validator.GetContentValidator().ValidateContent(question.Type, req.Content); errors.HasErrors() {
			return nil, errors
		}
		question.Content = datatypes.JSON(req.Content)
	}

	applyQuestionUpdates(question, req)
	reconcileFillBlankPoints(question)

	if err := s.repo.Question().Update(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.Info("Question updated successfully", "question_id", id)

	return s.buildQuestionResponse(question, userID), nil
}

func (s *questionService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting question", "question_id", id, "user_id", userID)

	canEdit, err := s.CanEdit(ctx, id, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, id, "question", "delete", "not owner or insufficient permissions")
	}

	if err := s.repo.Question().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted successfully", "question_id", id)
	return nil
}

// ===== LIST OPERATIONS =====

func (s *questionService) GetByQuiz(ctx context.Context, quizID uint, userID string) ([]*QuestionResponse, error) {
	questions, err := s.repo.Question().GetByQuiz(ctx, nil, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions by quiz: %w", err)
	}

	responses := make([]*QuestionResponse, len(questions))
	for i, question := range questions {
		responses[i] = s.buildQuestionResponse(question, userID)
	}

	return responses, nil
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters, userID string) (*QuestionListResponse, error) {
	questions, total, err := s.repo.Question().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	responses := make([]*QuestionResponse, len(questions))
	for i, question := range questions {
		responses[i] = s.buildQuestionResponse(question, userID)
	}

	page := 1
	size := len(responses)
	if filters.Limit > 0 {
		size = filters.Limit
		page = (filters.Offset / filters.Limit) + 1
	}

	return &QuestionListResponse{
		Questions: responses,
		Total:     total,
		Page:      page,
		Size:      size,
	}, nil
}

// ===== BULK OPERATIONS =====

func (s *questionService) CreateBatch(ctx context.Context, quizID uint, questions []*CreateQuestionRequest, creatorID string) ([]*QuestionResponse, []error) {
	responses := make([]*QuestionResponse, len(questions))
	errs := make([]error, len(questions))

	for i, req := range questions {
		response, err := s.Create(ctx, quizID, req, creatorID)
		responses[i] = response
		errs[i] = err
	}

	return responses, errs
}

// ===== BUILDER SUPPORT =====

// CreateDefault returns an unsaved skeleton question for the builder. The
// skeleton is deliberately incomplete: defaults carry empty option text, so
// saving one unedited fails validation.
func (s *questionService) CreateDefault(ctx context.Context, questionType models.QuestionType) (*models.Question, error) {
	content, err := models.NewDefaultContent(questionType)
	if err != nil {
		return nil, NewValidationError("type", err.Error(), questionType)
	}

	return &models.Question{
		Type:       questionType,
		Points:     10,
		Difficulty: models.DifficultyMedium,
		Content:    datatypes.JSON(content),
	}, nil
}

// ===== PERMISSION CHECKS =====

func (s *questionService) CanEdit(ctx context.Context, questionID uint, userID string) (bool, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrQuestionNotFound
		}
		return false, fmt.Errorf("failed to get question: %w", err)
	}

	if question.CreatedBy == userID {
		return true, nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	return user.Role == models.RoleAdmin, nil
}

func (s *questionService) checkQuizEditable(ctx context.Context, quiz *models.Quiz, userID, action string) error {
	if quiz.Status == models.QuizStatusArchived {
		return NewPermissionError(userID, quiz.ID, "quiz", action, "quiz is archived")
	}

	if quiz.CreatedBy == userID {
		return nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role != models.RoleAdmin {
		return NewPermissionError(userID, quiz.ID, "quiz", action, "not owner or insufficient permissions")
	}

	return nil
}

// ===== HELPERS =====

func (s *questionService) buildQuestionResponse(question *models.Question, userID string) *QuestionResponse {
	return &QuestionResponse{
		Question:        question,
		EffectivePoints: question.EffectivePoints(),
		CanEdit:         question.CreatedBy == userID,
		CanDelete:       question.CreatedBy == userID,
	}
}

func applyQuestionUpdates(question *models.Question, req *UpdateQuestionRequest) {
	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Description != nil {
		question.Description = req.Description
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.Explanation != nil {
		question.Explanation = req.Explanation
	}
	if req.AccessLevel != nil {
		question.AccessLevel = *req.AccessLevel
	}
	if req.Hints != nil {
		if hints, err := json.Marshal(req.Hints); err == nil {
			question.Hints = hints
		}
	}
}

// reconcileFillBlankPoints keeps a fill-blank question's declared points in
// step with the sum of its blanks' points, which is what scoring awards.
func reconcileFillBlankPoints(question *models.Question) {
	if question.Type != models.FillBlank {
		return
	}

	var content models.FillBlankContent
	if err := json.Unmarshal(question.Content, &content); err != nil {
		return
	}

	sum := 0
	for _, blank := range content.Blanks {
		sum += blank.Points
	}
	if sum > 0 {
		question.Points = sum
	}
}
