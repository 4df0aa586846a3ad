package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/validator"
	"gorm.io/gorm"
)

type gradingService struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	notifier  NotificationEventService
}

func NewGradingService(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, notifier NotificationEventService) GradingService {
	return &gradingService{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		notifier:  notifier,
	}
}

// ===== AUTO GRADING =====

func (s *gradingService) AutoGradeAttempt(ctx context.Context, attemptID uint) (*AttemptGradingResult, error) {
	s.logger.Info("Auto-grading attempt", "attempt_id", attemptID)

	var result *AttemptGradingResult

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := txRepo.Attempt().GetByIDWithAnswers(ctx, nil, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		quiz, err := txRepo.Quiz().GetByIDWithQuestions(ctx, nil, attempt.QuizID)
		if err != nil {
			return fmt.Errorf("failed to get quiz: %w", err)
		}

		questionsByID := make(map[uint]*models.Question, len(quiz.Questions))
		for i := range quiz.Questions {
			questionsByID[quiz.Questions[i].ID] = &quiz.Questions[i]
		}

		answers, err := txRepo.Answer().GetByAttempt(ctx, nil, attemptID)
		if err != nil {
			return fmt.Errorf("failed to get attempt answers: %w", err)
		}

		questionResults, hasManualGrading, err := s.autoGradeAnswers(ctx, txRepo, answers, questionsByID)
		if err != nil {
			return fmt.Errorf("failed to auto-grade answers: %w", err)
		}

		totalScore := 0.0
		for _, r := range questionResults {
			totalScore += r.Score
		}

		// Unanswered questions still count toward the maximum
		maxTotalScore := float64(quiz.TotalPoints())

		percentage := 0.0
		if maxTotalScore > 0 {
			percentage = (totalScore / maxTotalScore) * 100
		}

		isPassing := percentage >= float64(quiz.Settings.PassingScore)
		grade := calculateLetterGrade(percentage)

		attempt.Score = totalScore
		attempt.MaxScore = maxTotalScore
		attempt.Percentage = percentage
		attempt.LetterGrade = grade
		attempt.Passed = isPassing
		attempt.IsGraded = !hasManualGrading
		attempt.Status = models.AttemptStatusSubmitted
		if !hasManualGrading {
			attempt.Status = models.AttemptStatusGraded
			attempt.GradedAt = timePtr(time.Now())
		}

		if err := txRepo.Attempt().Update(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to update attempt grade: %w", err)
		}

		result = &AttemptGradingResult{
			AttemptID:  attemptID,
			TotalScore: totalScore,
			MaxScore:   maxTotalScore,
			Percentage: percentage,
			IsPassing:  isPassing,
			Grade:      &grade,
			Questions:  questionResults,
			GradedAt:   time.Now(),
			GradedBy:   "", // Auto-graded
		}

		if s.notifier != nil {
			if hasManualGrading {
				pending := 0
				for _, r := range questionResults {
					if r.RequiresManualGrading {
						pending++
					}
				}
				if err := s.notifier.NotifyGradingPending(ctx, attempt, pending); err != nil {
					s.logger.Warn("Failed to publish grading pending event", "attempt_id", attemptID, "error", err)
				}
			} else {
				if err := s.notifier.NotifyAttemptGraded(ctx, attempt); err != nil {
					s.logger.Warn("Failed to publish attempt graded event", "attempt_id", attemptID, "error", err)
				}
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Attempt auto-graded successfully",
		"attempt_id", attemptID,
		"total_score", result.TotalScore,
		"percentage", result.Percentage,
		"is_passing", result.IsPassing)

	return result, nil
}

// autoGradeAnswers grades every answer of an attempt in one pass. Answers on
// question types without an answer key are flagged for manual grading instead
// of earning a score.
func (s *gradingService) autoGradeAnswers(ctx context.Context, txRepo repositories.Repository, answers []*models.StudentAnswer, questionsByID map[uint]*models.Question) ([]GradingResult, bool, error) {
	if len(answers) == 0 {
		return []GradingResult{}, false, nil
	}

	var results []GradingResult
	hasManualGrading := false

	for _, answer := range answers {
		question, exists := questionsByID[answer.QuestionID]
		if !exists {
			s.logger.Warn("Answer references unknown question",
				"answer_id", answer.ID,
				"question_id", answer.QuestionID)
			continue
		}

		maxPoints := float64(question.EffectivePoints())

		if !isAutoGradeable(question.Type) {
			answer.MaxPoints = maxPoints
			answer.RequiresManualGrading = true
			if err := txRepo.Answer().Update(ctx, nil, answer); err != nil {
				return nil, false, fmt.Errorf("failed to flag answer %d for manual grading: %w", answer.ID, err)
			}
			hasManualGrading = true

			results = append(results, GradingResult{
				AnswerID:              answer.ID,
				QuestionID:            answer.QuestionID,
				Score:                 0,
				MaxScore:              maxPoints,
				IsCorrect:             false,
				RequiresManualGrading: true,
				GradedAt:              time.Now(),
			})
			continue
		}

		// Empty submissions earn zero without consulting the answer key
		fraction := 0.0
		isCorrect := false
		if len(answer.Answer) > 0 {
			var err error
			fraction, isCorrect, err = s.CalculateScore(ctx, question.Type, json.RawMessage(question.Content), json.RawMessage(answer.Answer))
			if err != nil {
				s.logger.Warn("Failed to calculate score, marking as 0",
					"answer_id", answer.ID,
					"question_type", question.Type,
					"error", err)
				fraction = 0.0
				isCorrect = false
			}
		}

		feedback, err := s.GenerateFeedback(ctx, question.Type, json.RawMessage(question.Content), json.RawMessage(answer.Answer), isCorrect)
		if err != nil {
			s.logger.Warn("Failed to generate feedback", "answer_id", answer.ID, "error", err)
		}

		earned := fraction * maxPoints
		answer.EarnedPoints = earned
		answer.MaxPoints = maxPoints
		answer.IsCorrect = isCorrect
		answer.GraderFeedback = feedback
		answer.GradedAt = timePtr(time.Now())
		// GradedBy stays nil for auto-graded answers

		if err := txRepo.Answer().Update(ctx, nil, answer); err != nil {
			return nil, false, fmt.Errorf("failed to update graded answer %d: %w", answer.ID, err)
		}

		results = append(results, GradingResult{
			AnswerID:      answer.ID,
			QuestionID:    answer.QuestionID,
			Score:         earned,
			MaxScore:      maxPoints,
			IsCorrect:     isCorrect,
			PartialCredit: fraction > 0 && fraction < 1.0,
			Feedback:      feedback,
			GradedAt:      time.Now(),
			GradedBy:      nil,
		})
	}

	return results, hasManualGrading, nil
}

func (s *gradingService) AutoGradeQuiz(ctx context.Context, quizID uint) (map[uint]*AttemptGradingResult, error) {
	s.logger.Info("Auto-grading all attempts for quiz", "quiz_id", quizID)

	status := models.AttemptStatusSubmitted
	filters := repositories.AttemptFilters{
		Status: &status,
	}

	attempts, _, err := s.repo.Attempt().GetByQuiz(ctx, nil, quizID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz attempts: %w", err)
	}

	results := make(map[uint]*AttemptGradingResult)

	for _, attempt := range attempts {
		result, err := s.AutoGradeAttempt(ctx, attempt.ID)
		if err != nil {
			s.logger.Error("Failed to auto-grade attempt", "attempt_id", attempt.ID, "error", err)
			continue
		}
		results[attempt.ID] = result
	}

	s.logger.Info("Quiz auto-grading completed",
		"quiz_id", quizID,
		"attempts_processed", len(results))

	return results, nil
}

// ===== MANUAL GRADING =====

// GradeAnswer applies an instructor grade to one answer. Once the attempt has
// no pending manual answers left, the attempt's final grade is recomputed.
func (s *gradingService) GradeAnswer(ctx context.Context, answerID uint, req *ManualGradeRequest, graderID string) (*GradingResult, error) {
	s.logger.Info("Manually grading answer",
		"answer_id", answerID,
		"earned_points", req.EarnedPoints,
		"grader_id", graderID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.checkGradingPermission(ctx, graderID); err != nil {
		return nil, err
	}

	var result *GradingResult

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		answer, err := txRepo.Answer().GetByID(ctx, nil, answerID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAnswerNotFound
			}
			return fmt.Errorf("failed to get answer: %w", err)
		}

		maxScore := answer.MaxPoints
		if maxScore == 0 && answer.Question != nil {
			maxScore = float64(answer.Question.EffectivePoints())
		}
		if req.EarnedPoints > maxScore {
			return NewValidationError("earned_points", "earned points must not exceed max points", req.EarnedPoints)
		}

		answer.EarnedPoints = req.EarnedPoints
		answer.MaxPoints = maxScore
		answer.IsCorrect = req.EarnedPoints == maxScore
		answer.GraderFeedback = req.Feedback
		answer.RequiresManualGrading = false
		answer.GradedAt = timePtr(time.Now())
		answer.GradedBy = &graderID

		if err := txRepo.Answer().Update(ctx, nil, answer); err != nil {
			return fmt.Errorf("failed to update answer grade: %w", err)
		}

		if err := s.finalizeAttemptIfComplete(ctx, txRepo, answer.AttemptID, graderID); err != nil {
			return err
		}

		result = &GradingResult{
			AnswerID:      answerID,
			QuestionID:    answer.QuestionID,
			Score:         req.EarnedPoints,
			MaxScore:      maxScore,
			IsCorrect:     req.EarnedPoints == maxScore,
			PartialCredit: req.EarnedPoints > 0 && req.EarnedPoints < maxScore,
			Feedback:      req.Feedback,
			GradedAt:      time.Now(),
			GradedBy:      &graderID,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Answer graded successfully",
		"answer_id", answerID,
		"score", result.Score,
		"max_score", result.MaxScore)

	return result, nil
}

// finalizeAttemptIfComplete recomputes the attempt grade once every answer
// that needed a human has one.
func (s *gradingService) finalizeAttemptIfComplete(ctx context.Context, txRepo repositories.Repository, attemptID uint, graderID string) error {
	answers, err := txRepo.Answer().GetByAttempt(ctx, nil, attemptID)
	if err != nil {
		return fmt.Errorf("failed to get attempt answers: %w", err)
	}

	for _, answer := range answers {
		if answer.RequiresManualGrading {
			return nil
		}
	}

	attempt, err := txRepo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	totalScore := 0.0
	for _, answer := range answers {
		totalScore += answer.EarnedPoints
	}

	percentage := 0.0
	if attempt.MaxScore > 0 {
		percentage = (totalScore / attempt.MaxScore) * 100
	}

	quiz, err := txRepo.Quiz().GetByID(ctx, nil, attempt.QuizID)
	if err != nil {
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	attempt.Score = totalScore
	attempt.Percentage = percentage
	attempt.LetterGrade = calculateLetterGrade(percentage)
	attempt.Passed = percentage >= float64(quiz.Settings.PassingScore)
	attempt.IsGraded = true
	attempt.Status = models.AttemptStatusGraded
	attempt.GradedAt = timePtr(time.Now())
	attempt.GradedBy = &graderID

	if err := txRepo.Attempt().Update(ctx, nil, attempt); err != nil {
		return fmt.Errorf("failed to finalize attempt grade: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAttemptGraded(ctx, attempt); err != nil {
			s.logger.Warn("Failed to publish attempt graded event", "attempt_id", attemptID, "error", err)
		}
	}

	return nil
}

// ===== MANUAL GRADING QUEUE =====

func (s *gradingService) GetPendingGrading(ctx context.Context, quizID uint, filters repositories.AnswerFilters, userID string) ([]*models.StudentAnswer, int64, error) {
	if err := s.checkGradingPermission(ctx, userID); err != nil {
		return nil, 0, err
	}

	answers, total, err := s.repo.Answer().GetPendingGrading(ctx, nil, quizID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get pending grading queue: %w", err)
	}

	return answers, total, nil
}

func (s *gradingService) GetGradingOverview(ctx context.Context, quizID uint, userID string) (*repositories.GradingStats, error) {
	if err := s.checkGradingPermission(ctx, userID); err != nil {
		return nil, err
	}

	stats, err := s.repo.Answer().GetGradingStats(ctx, nil, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get grading stats: %w", err)
	}

	return stats, nil
}

func (s *gradingService) checkGradingPermission(ctx context.Context, graderID string) error {
	user, err := s.repo.User().GetByID(ctx, graderID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !user.CanGrade() {
		return NewPermissionError(graderID, 0, "answer", "grade", "insufficient role permissions")
	}
	return nil
}
