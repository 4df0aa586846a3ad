package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"gorm.io/datatypes"
)

// getActiveAttempt loads an attempt and checks that the student owns it, it
// is still in progress and its time limit has not run out.
func (s *attemptService) getActiveAttempt(ctx context.Context, attemptID uint, studentID, action string) (*models.QuizAttempt, *models.Quiz, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return nil, nil, NewPermissionError(studentID, attemptID, "attempt", action, "not owned by student")
	}

	switch attempt.Status {
	case models.AttemptStatusInProgress:
		// proceed
	case models.AttemptStatusSubmitted, models.AttemptStatusGraded:
		return nil, nil, ErrAttemptAlreadySubmitted
	default:
		return nil, nil, ErrAttemptNotActive
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, attempt.QuizID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if s.attemptExpired(attempt, quiz) {
		if err := s.HandleTimeout(ctx, attemptID); err != nil {
			s.logger.Error("Failed to handle timeout", "attempt_id", attemptID, "error", err)
		}
		return nil, nil, ErrAttemptTimeExpired
	}

	return attempt, quiz, nil
}

func (s *attemptService) attemptExpired(attempt *models.QuizAttempt, quiz *models.Quiz) bool {
	if quiz.Settings.TimeLimit == nil {
		return false
	}
	deadline := attempt.StartedAt.Add(time.Duration(*quiz.Settings.TimeLimit) * time.Minute)
	return time.Now().After(deadline)
}

// upsertAnswer stores or replaces the answer for one question of an attempt.
// Checkbox selection-count constraints are checked here, before any scoring,
// because they constrain the submission rather than its correctness.
func (s *attemptService) upsertAnswer(ctx context.Context, txRepo repositories.Repository, attempt *models.QuizAttempt, quiz *models.Quiz, req *SubmitAnswerRequest) error {
	if txRepo == nil {
		txRepo = s.repo
	}

	var question *models.Question
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == req.QuestionID {
			question = &quiz.Questions[i]
			break
		}
	}
	if question == nil {
		return NewValidationError("question_id", "question does not belong to the quiz", req.QuestionID)
	}

	if question.Type == models.Checkbox {
		if err := s.checkSelectionConstraints(question, req.Answer); err != nil {
			return err
		}
	}

	answers, err := txRepo.Answer().GetByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to get existing answers: %w", err)
	}

	for _, existing := range answers {
		if existing.QuestionID == req.QuestionID {
			existing.Answer = datatypes.JSON(req.Answer)
			if err := txRepo.Answer().Update(ctx, nil, existing); err != nil {
				return fmt.Errorf("failed to update answer: %w", err)
			}
			return nil
		}
	}

	answer := &models.StudentAnswer{
		AttemptID:  attempt.ID,
		QuestionID: req.QuestionID,
		Answer:     datatypes.JSON(req.Answer),
		MaxPoints:  float64(question.EffectivePoints()),
	}
	if err := txRepo.Answer().Create(ctx, nil, answer); err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}

	return nil
}

func (s *attemptService) checkSelectionConstraints(question *models.Question, rawAnswer json.RawMessage) error {
	var content models.CheckboxContent
	if err := json.Unmarshal(question.Content, &content); err != nil {
		return fmt.Errorf("failed to unmarshal checkbox content: %w", err)
	}

	var selected []string
	if err := json.Unmarshal(rawAnswer, &selected); err != nil {
		return NewValidationError("answer", "checkbox answer must be a list of option ids", string(rawAnswer))
	}

	if errors := s.validator.GetContentValidator().ValidateSubmissionConstraints(&content, selected); errors.HasErrors() {
		return errors
	}

	return nil
}

// ===== ACCESS CHECKS =====

func (s *attemptService) checkAttemptAccess(ctx context.Context, attempt *models.QuizAttempt, userID, action string) error {
	if attempt.StudentID == userID {
		return nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.CanGrade() {
		return nil
	}

	return NewPermissionError(userID, attempt.ID, "attempt", action, "not owner or insufficient permissions")
}

func (s *attemptService) checkQuizOwnership(ctx context.Context, quizID uint, userID, action string) error {
	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.CreatedBy == userID {
		return nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role == models.RoleAdmin {
		return nil
	}

	return NewPermissionError(userID, quizID, "quiz", action, "not owner or insufficient permissions")
}

// ===== RESPONSE BUILDING =====

func (s *attemptService) buildAttemptResponse(attempt *models.QuizAttempt, quiz *models.Quiz) *AttemptResponse {
	response := &AttemptResponse{
		QuizAttempt:    attempt,
		CanSubmit:      attempt.Status == models.AttemptStatusInProgress,
		IsPendingGrade: attempt.Status == models.AttemptStatusSubmitted && !attempt.IsGraded,
	}

	if quiz != nil && quiz.Settings.TimeLimit != nil && attempt.Status == models.AttemptStatusInProgress {
		deadline := attempt.StartedAt.Add(time.Duration(*quiz.Settings.TimeLimit) * time.Minute)
		remaining := int(time.Until(deadline).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		response.TimeRemainingSec = &remaining
	}

	return response
}
