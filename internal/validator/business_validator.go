package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
	content  *ContentValidator
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{
		validate: validate,
		content:  NewContentValidator(),
	}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// Content returns the content validator used for question payloads
func (bv *BusinessValidator) Content() *ContentValidator {
	return bv.content
}

// ValidateQuizCreate validates quiz creation business rules
func (bv *BusinessValidator) ValidateQuizCreate(req *QuizCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.validateQuizWindow(req.AvailableFrom, req.AvailableUntil)...)

	if req.Settings != nil {
		errors = append(errors, bv.validateSettingsConsistency(req.Settings)...)
	}

	return errors
}

// ValidateQuizUpdate validates quiz update business rules
func (bv *BusinessValidator) ValidateQuizUpdate(req *QuizUpdateRequest, existing *models.Quiz) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.validateQuizWindow(req.AvailableFrom, req.AvailableUntil)...)

	if req.Settings != nil {
		errors = append(errors, bv.validateSettingsConsistency(req.Settings)...)

		// Scoring rules are frozen once students can take the quiz
		if existing.Status == models.QuizStatusActive && req.Settings.PassingScore != nil &&
			*req.Settings.PassingScore != existing.Settings.PassingScore {
			errors = append(errors, ValidationError{
				Field:   "passing_score",
				Message: "cannot be changed for active quizzes",
				Value:   *req.Settings.PassingScore,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// ValidateQuestionCreate validates question creation business rules
func (bv *BusinessValidator) ValidateQuestionCreate(req *QuestionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.validateHints(req.Hints)...)

	if len(req.Content) > 0 {
		errors = append(errors, bv.content.ValidateContent(req.Type, req.Content)...)
	}

	return errors
}

// ValidateStatusTransition validates quiz status transitions
func (bv *BusinessValidator) ValidateStatusTransition(currentStatus, newStatus models.QuizStatus, questionCount int) ValidationErrors {
	var errors ValidationErrors

	allowedTransitions := map[models.QuizStatus][]models.QuizStatus{
		models.QuizStatusDraft:    {models.QuizStatusActive, models.QuizStatusArchived},
		models.QuizStatusActive:   {models.QuizStatusExpired, models.QuizStatusArchived},
		models.QuizStatusExpired:  {models.QuizStatusActive, models.QuizStatusArchived},
		models.QuizStatusArchived: {},
	}

	allowed := false
	for _, allowedStatus := range allowedTransitions[currentStatus] {
		if newStatus == allowedStatus {
			allowed = true
			break
		}
	}

	if !allowed {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", currentStatus, newStatus),
			Value:   newStatus,
			Rule:    "status_transition",
		})
	}

	// Publishing requires at least one question
	if newStatus == models.QuizStatusActive && questionCount == 0 {
		errors = append(errors, ValidationError{
			Field:   "questions",
			Message: "quiz must have at least one question before publishing",
			Value:   questionCount,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateAttemptStart validates that a student may begin a new attempt
func (bv *BusinessValidator) ValidateAttemptStart(quiz *models.Quiz, attemptCount int) ValidationErrors {
	var errors ValidationErrors

	if !quiz.IsAvailableAt(time.Now()) {
		errors = append(errors, ValidationError{
			Field:   "quiz",
			Message: "quiz is not currently available",
			Value:   quiz.Status,
			Rule:    "business_logic",
		})
	}

	if attemptCount > 0 && !quiz.Settings.AllowRetake {
		errors = append(errors, ValidationError{
			Field:   "attempts",
			Message: "retakes are not allowed for this quiz",
			Value:   attemptCount,
			Rule:    "business_logic",
		})
	}

	if quiz.Settings.MaxAttempts != nil && attemptCount >= *quiz.Settings.MaxAttempts {
		errors = append(errors, ValidationError{
			Field:   "attempts",
			Message: "maximum attempts exceeded",
			Value:   attemptCount,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateDeletePermission validates if a quiz can be deleted
func (bv *BusinessValidator) ValidateDeletePermission(hasAttempts bool, status models.QuizStatus) ValidationErrors {
	var errors ValidationErrors

	if hasAttempts {
		errors = append(errors, ValidationError{
			Field:   "attempts",
			Message: "cannot delete quiz with existing attempts",
			Value:   hasAttempts,
			Rule:    "business_logic",
		})
	}

	if status == models.QuizStatusActive {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "cannot delete active quiz",
			Value:   status,
			Rule:    "business_logic",
		})
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Passing score validation (0-100)
	bv.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	// Max attempts validation (1-10)
	bv.validate.RegisterValidation("max_attempts", func(fl validator.FieldLevel) bool {
		attempts := fl.Field().Int()
		return attempts >= 1 && attempts <= 10
	})

	// Title validation (1-255 characters after trimming)
	bv.validate.RegisterValidation("quiz_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 255
	})

	// Description validation (max 5000 characters)
	bv.validate.RegisterValidation("quiz_description", func(fl validator.FieldLevel) bool {
		desc := fl.Field().String()
		return len(desc) <= 5000
	})

	// Points range validation
	bv.validate.RegisterValidation("points_range", func(fl validator.FieldLevel) bool {
		points := fl.Field().Int()
		return points >= 1 && points <= 100
	})

	// question type validation
	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.IsValidQuestionType(models.QuestionType(fl.Field().String()))
	})

	// difficulty level validation
	bv.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		level := models.DifficultyLevel(fl.Field().String())
		return level == models.DifficultyEasy || level == models.DifficultyMedium || level == models.DifficultyHard
	})
}

func (bv *BusinessValidator) validateQuizWindow(from, until *time.Time) ValidationErrors {
	var errors ValidationErrors

	if from != nil && until != nil && !until.After(*from) {
		errors = append(errors, ValidationError{
			Field:   "available_until",
			Message: "must be after available_from",
			Value:   until,
			Rule:    "business_logic",
		})
	}

	return errors
}

func (bv *BusinessValidator) validateSettingsConsistency(settings *QuizSettingsRequest) ValidationErrors {
	var errors ValidationErrors

	if settings.MaxAttempts != nil && settings.AllowRetake != nil &&
		!*settings.AllowRetake && *settings.MaxAttempts > 1 {
		errors = append(errors, ValidationError{
			Field:   "max_attempts",
			Message: "cannot be greater than 1 when retakes are not allowed",
			Value:   *settings.MaxAttempts,
			Rule:    "business_logic",
		})
	}

	return errors
}

func (bv *BusinessValidator) validateHints(hints []string) ValidationErrors {
	var errors ValidationErrors

	for i, hint := range hints {
		if strings.TrimSpace(hint) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("hints[%d]", i),
				Message: "hint cannot be empty",
				Value:   hint,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}
