package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/coursekit/quiz-service/internal/config"
	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/services"
	"github.com/coursekit/quiz-service/internal/utils"
	"github.com/coursekit/quiz-service/internal/validator"
)

type HandlerManager struct {
	quizHandler     *QuizHandler
	questionHandler *QuestionHandler
	attemptHandler  *AttemptHandler
	gradingHandler  *GradingHandler
	authMiddleware  *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		quizHandler:     NewQuizHandler(serviceManager.Quiz(), serviceManager.ImportExport(), validator, logger),
		questionHandler: NewQuestionHandler(serviceManager.Question(), validator, logger),
		attemptHandler:  NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		gradingHandler:  NewGradingHandler(serviceManager.Grading(), validator, logger),
		authMiddleware:  authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Quiz routes
		quizzes := v1.Group("/quizzes")
		{
			// Quiz management - Instructors and Admins only
			quizzes.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.CreateQuiz)
			quizzes.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.DeleteQuiz)
			quizzes.PUT("/:id/status", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.UpdateQuizStatus)
			quizzes.POST("/:id/publish", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.PublishQuiz)
			quizzes.POST("/:id/archive", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.ArchiveQuiz)
			quizzes.PUT("/:id/reorder", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.ReorderQuizQuestions)

			// Quiz viewing - all authenticated users
			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.GET("/:id/details", hm.quizHandler.GetQuizWithQuestions)

			// Statistics - Instructors and Admins only
			quizzes.GET("/:id/stats", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.GetQuizStats)

			// Import and export - Instructors and Admins only
			quizzes.GET("/:id/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.ExportQuiz)
			quizzes.POST("/:id/import", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.ImportQuestions)

			// Quiz-scoped question routes - Instructors and Admins only
			quizzes.POST("/:id/questions", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.CreateQuestion)
			quizzes.POST("/:id/questions/batch", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.CreateQuestionsBatch)
			quizzes.GET("/:id/questions", hm.questionHandler.GetQuestionsByQuiz)

			// Course and creator routes
			quizzes.GET("/course/:course_id", hm.quizHandler.GetQuizzesByCourse)
			quizzes.GET("/creator/:creator_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.GetQuizzesByCreator)
		}

		// Question routes
		questions := v1.Group("/questions")
		{
			questions.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.ListQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.DeleteQuestion)

			// Editor helpers
			questions.GET("/defaults/:type", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.CreateDefaultQuestion)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/me", hm.attemptHandler.GetMyAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/details", hm.attemptHandler.GetAttemptWithAnswers)
			attempts.POST("/:id/answer", hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/timeout", hm.attemptHandler.HandleTimeout)

			// Quiz-specific routes
			attempts.GET("/can-start/:quiz_id", hm.attemptHandler.CanStartAttempt)
			attempts.GET("/count/:quiz_id", hm.attemptHandler.GetAttemptCount)
			attempts.GET("/quiz/:quiz_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleProctor, models.RoleAdmin), hm.attemptHandler.GetAttemptsByQuiz)
			attempts.GET("/stats/:quiz_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.attemptHandler.GetAttemptStats)
		}

		// Grading routes - Instructors, Proctors and Admins only
		grading := v1.Group("/grading")
		grading.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleProctor, models.RoleAdmin))
		{
			// Manual grading
			grading.POST("/answers/:answer_id", hm.gradingHandler.GradeAnswer)

			// Auto grading
			grading.POST("/attempts/:attempt_id/auto", hm.gradingHandler.AutoGradeAttempt)
			grading.POST("/quizzes/:quiz_id/auto", hm.gradingHandler.AutoGradeQuiz)

			// Grading utilities
			grading.POST("/calculate-score", hm.gradingHandler.CalculateScore)
			grading.POST("/generate-feedback", hm.gradingHandler.GenerateFeedback)

			// Grading overview
			grading.GET("/quizzes/:quiz_id/pending", hm.gradingHandler.GetPendingGrading)
			grading.GET("/quizzes/:quiz_id/overview", hm.gradingHandler.GetGradingOverview)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quiz-service",
		})
	})
}
