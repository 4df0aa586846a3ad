package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/services"
	"github.com/coursekit/quiz-service/internal/utils"
	"github.com/coursekit/quiz-service/internal/validator"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
	validator       *validator.Validator
}

func NewQuestionHandler(
	questionService services.QuestionService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
		validator:       validator,
	}
}

// CreateQuestion creates a new question in a quiz
// @Summary Create question
// @Description Creates a new question appended to the quiz's question list
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), quizID, &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// CreateQuestionsBatch creates multiple questions in one call
// @Summary Create questions (batch)
// @Description Creates multiple questions; per-question failures are reported individually
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param questions body []services.CreateQuestionRequest true "Question data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /quizzes/{id}/questions/batch [post]
func (h *QuestionHandler) CreateQuestionsBatch(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	var reqs []*services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if len(reqs) == 0 {
		h.RespondWithError(c, http.StatusBadRequest, "No questions provided", nil)
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	h.LogRequest(c, "Creating questions batch", "quiz_id", quizID, "count", len(reqs))

	created, errs := h.questionService.CreateBatch(c.Request.Context(), quizID, reqs, userID.(string))

	failures := make([]string, 0)
	for i, err := range errs {
		if err != nil {
			failures = append(failures, fmt.Sprintf("question %d: %v", i+1, err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"created":  created,
		"failures": failures,
	})
}

// CreateDefaultQuestion returns an unsaved skeleton question for the builder
// @Summary Create default question
// @Description Returns a skeleton question of the given type for the quiz builder; the skeleton is not persisted
// @Tags questions
// @Produce json
// @Param type path string true "Question type"
// @Success 200 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Router /questions/defaults/{type} [get]
func (h *QuestionHandler) CreateDefaultQuestion(c *gin.Context) {
	questionType := models.QuestionType(c.Param("type"))

	question, err := h.questionService.CreateDefault(c.Request.Context(), questionType)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// GetQuestion retrieves a question by ID
// @Summary Get question
// @Description Retrieves a question by its ID
// @Tags questions
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Getting question", "question_id", id)

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), id, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// UpdateQuestion updates an existing question
// @Summary Update question
// @Description Updates a question; content replacement is re-validated for the question's type
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Question ID"
// @Param question body services.UpdateQuestionRequest true "Question update data"
// @Success 200 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating question", "question_id", id)

	var req services.UpdateQuestionRequest
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

	question, err := h.questionService.Update(c.Request.Context(), id, &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion deletes a question
// @Summary Delete question
// @Description Deletes a question and compacts the remaining question order
// @Tags questions
// @Param id path uint true "Question ID"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting question", "question_id", id)

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id, userID.(string)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetQuestionsByQuiz lists a quiz's questions in order
// @Summary Get questions by quiz
// @Description Lists all questions of a quiz in their display order
// @Tags questions
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {array} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Router /quizzes/{id}/questions [get]
func (h *QuestionHandler) GetQuestionsByQuiz(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	h.LogRequest(c, "Getting questions by quiz", "quiz_id", quizID)

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	questions, err := h.questionService.GetByQuiz(c.Request.Context(), quizID, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// ListQuestions lists questions with filters
// @Summary List questions
// @Description Lists questions with optional type and difficulty filtering
// @Tags questions
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Param type query string false "Question type"
// @Param difficulty query string false "Difficulty level"
// @Success 200 {object} services.QuestionListResponse
// @Failure 500 {object} ErrorResponse
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	h.LogRequest(c, "Listing questions")

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	filters := h.parseQuestionFilters(c)
	questions, err := h.questionService.List(c.Request.Context(), filters, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// Helper methods

func (h *QuestionHandler) parseIDParam(c *gin.Context, param string) uint {
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

func (h *QuestionHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
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

func (h *QuestionHandler) parseQuestionFilters(c *gin.Context) repositories.QuestionFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.QuestionFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if questionType := c.Query("type"); questionType != "" {
		t := models.QuestionType(questionType)
		filters.Type = &t
	}

	if difficulty := c.Query("difficulty"); difficulty != "" {
		d := models.DifficultyLevel(difficulty)
		filters.Difficulty = &d
	}

	if creatorID := c.Query("creator_id"); creatorID != "" {
		filters.CreatedBy = &creatorID
	}

	return filters
}

func (h *QuestionHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Question not found",
		})
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Quiz not found",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
