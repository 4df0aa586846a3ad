package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/services"
	"github.com/coursekit/quiz-service/internal/utils"
	"github.com/coursekit/quiz-service/internal/validator"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
	validator      *validator.Validator
}

func NewGradingHandler(
	gradingService services.GradingService,
	validator *validator.Validator,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
		validator:      validator,
	}
}

// GradeAnswer applies a manual grade to an answer
// @Summary Grade answer
// @Description Applies an instructor's score and feedback to one answer
// @Tags grading
// @Accept json
// @Produce json
// @Param answer_id path uint true "Answer ID"
// @Param grade body services.ManualGradeRequest true "Grade data"
// @Success 200 {object} services.GradingResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /grading/answers/{answer_id} [post]
func (h *GradingHandler) GradeAnswer(c *gin.Context) {
	answerID := h.parseIDParam(c, "answer_id")
	if answerID == 0 {
		return
	}

	var req services.ManualGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	h.LogRequest(c, "Grading answer", "answer_id", answerID)

	result, err := h.gradingService.GradeAnswer(c.Request.Context(), answerID, &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AutoGradeAttempt grades all auto-gradeable answers of an attempt
// @Summary Auto-grade attempt
// @Description Grades every auto-gradeable answer of a submitted attempt
// @Tags grading
// @Produce json
// @Param attempt_id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptGradingResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /grading/attempts/{attempt_id}/auto [post]
func (h *GradingHandler) AutoGradeAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attempt_id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Auto-grading attempt", "attempt_id", attemptID)

	result, err := h.gradingService.AutoGradeAttempt(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AutoGradeQuiz grades all submitted attempts of a quiz
// @Summary Auto-grade quiz
// @Description Grades every submitted attempt of a quiz
// @Tags grading
// @Produce json
// @Param quiz_id path uint true "Quiz ID"
// @Success 200 {object} map[uint]services.AttemptGradingResult
// @Failure 400 {object} ErrorResponse
// @Router /grading/quizzes/{quiz_id}/auto [post]
func (h *GradingHandler) AutoGradeQuiz(c *gin.Context) {
	quizID := h.parseIDParam(c, "quiz_id")
	if quizID == 0 {
		return
	}

	h.LogRequest(c, "Auto-grading quiz", "quiz_id", quizID)

	results, err := h.gradingService.AutoGradeQuiz(c.Request.Context(), quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// CalculateScoreRequest is the payload for the score calculation utility.
type CalculateScoreRequest struct {
	QuestionType    models.QuestionType `json:"question_type" binding:"required"`
	QuestionContent json.RawMessage     `json:"question_content" binding:"required"`
	StudentAnswer   json.RawMessage     `json:"student_answer"`
}

// CalculateScore scores a single answer without persisting anything
// @Summary Calculate score
// @Description Scores one answer against its question content; nothing is persisted
// @Tags grading
// @Accept json
// @Produce json
// @Param request body CalculateScoreRequest true "Question content and answer"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /grading/calculate-score [post]
func (h *GradingHandler) CalculateScore(c *gin.Context) {
	var req CalculateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	fraction, isCorrect, err := h.gradingService.CalculateScore(c.Request.Context(), req.QuestionType, req.QuestionContent, req.StudentAnswer)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fraction":   fraction,
		"is_correct": isCorrect,
	})
}

// GenerateFeedback produces feedback text for one answer
// @Summary Generate feedback
// @Description Produces student-facing feedback for one answer
// @Tags grading
// @Accept json
// @Produce json
// @Param request body CalculateScoreRequest true "Question content and answer"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /grading/generate-feedback [post]
func (h *GradingHandler) GenerateFeedback(c *gin.Context) {
	var req CalculateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	_, isCorrect, err := h.gradingService.CalculateScore(c.Request.Context(), req.QuestionType, req.QuestionContent, req.StudentAnswer)
	if err != nil && !errors.Is(err, services.ErrGradingNotAllowed) && !errors.Is(err, services.ErrExternalJudgeRequired) {
		h.handleServiceError(c, err)
		return
	}

	feedback, err := h.gradingService.GenerateFeedback(c.Request.Context(), req.QuestionType, req.QuestionContent, req.StudentAnswer, isCorrect)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": feedback})
}

// GetPendingGrading lists answers awaiting manual grading
// @Summary Get pending grading
// @Description Lists answers of a quiz that still require manual grading
// @Tags grading
// @Produce json
// @Param quiz_id path uint true "Quiz ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /grading/quizzes/{quiz_id}/pending [get]
func (h *GradingHandler) GetPendingGrading(c *gin.Context) {
	quizID := h.parseIDParam(c, "quiz_id")
	if quizID == 0 {
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	h.LogRequest(c, "Getting pending grading", "quiz_id", quizID)

	filters := h.parseAnswerFilters(c)
	answers, total, err := h.gradingService.GetPendingGrading(c.Request.Context(), quizID, filters, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answers": answers,
		"total":   total,
	})
}

// GetGradingOverview summarizes grading progress for a quiz
// @Summary Get grading overview
// @Description Summarizes graded and pending answer counts for a quiz
// @Tags grading
// @Produce json
// @Param quiz_id path uint true "Quiz ID"
// @Success 200 {object} repositories.GradingStats
// @Failure 400 {object} ErrorResponse
// @Router /grading/quizzes/{quiz_id}/overview [get]
func (h *GradingHandler) GetGradingOverview(c *gin.Context) {
	quizID := h.parseIDParam(c, "quiz_id")
	if quizID == 0 {
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	h.LogRequest(c, "Getting grading overview", "quiz_id", quizID)

	overview, err := h.gradingService.GetGradingOverview(c.Request.Context(), quizID, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// Helper methods

func (h *GradingHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: err.Error(),
		})
		return 0
	}
	return uint(id)
}

func (h *GradingHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (h *GradingHandler) parseAnswerFilters(c *gin.Context) repositories.AnswerFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.AnswerFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if gradedBy := c.Query("graded_by"); gradedBy != "" {
		filters.GradedBy = &gradedBy
	}

	return filters
}

func (h *GradingHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationError.Error(),
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAnswerNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Answer not found",
		})
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Attempt not found",
		})
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Quiz not found",
		})
	case errors.Is(err, services.ErrGradingNotAllowed):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Question type requires manual grading",
		})
	case errors.Is(err, services.ErrExternalJudgeRequired):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Question type is graded by the external judge",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
