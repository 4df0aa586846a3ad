package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursekit/quiz-service/internal/cache"
	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// ===== BASIC CRUD OPERATIONS =====

// Create starts a new attempt row
func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	cache.InvalidateAttemptCache(ctx, a.cacheManager, attempt.ID, attempt.QuizID, attempt.StudentID)

	return nil
}

// GetByID retrieves an attempt by ID
func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	db := a.getDB(tx)
	var attempt models.QuizAttempt
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %d: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return &attempt, nil
}

// GetByIDWithAnswers retrieves an attempt with its answers and questions
func (a *AttemptPostgreSQL) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	db := a.getDB(tx)
	var attempt models.QuizAttempt
	if err := db.WithContext(ctx).
		Preload("Answers").
		Preload("Answers.Question").
		First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %d: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get attempt with answers: %w", err)
	}
	return &attempt, nil
}

// Update updates an attempt
func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Omit("Answers", "Quiz", "Student").Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	cache.InvalidateAttemptCache(ctx, a.cacheManager, attempt.ID, attempt.QuizID, attempt.StudentID)

	return nil
}

// ===== QUERY OPERATIONS =====

// GetByStudent retrieves a student's attempts
func (a *AttemptPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	filters.StudentID = &studentID
	return a.list(ctx, tx, filters)
}

// GetByQuiz retrieves attempts for a quiz
func (a *AttemptPostgreSQL) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	filters.QuizID = &quizID
	return a.list(ctx, tx, filters)
}

func (a *AttemptPostgreSQL) list(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	db := a.getDB(tx)

	query := db.WithContext(ctx).Model(&models.QuizAttempt{})
	query = a.helpers.ApplyAttemptFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var attempts []*models.QuizAttempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

// GetInProgress finds a student's open attempt for a quiz, if any
func (a *AttemptPostgreSQL) GetInProgress(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (*models.QuizAttempt, error) {
	db := a.getDB(tx)
	var attempt models.QuizAttempt
	err := db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, models.AttemptStatusInProgress).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no attempt in progress: %w", gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get in-progress attempt: %w", err)
	}
	return &attempt, nil
}

// ===== ATTEMPT ACCOUNTING =====

// CountByStudent counts a student's attempts for one quiz
func (a *AttemptPostgreSQL) CountByStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (int64, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// ExpireOverdue marks in-progress attempts past the quiz time limit as
// expired and returns the affected IDs.
func (a *AttemptPostgreSQL) ExpireOverdue(ctx context.Context, tx *gorm.DB, quizID uint, timeLimitMinutes int) ([]uint, error) {
	if timeLimitMinutes <= 0 {
		return nil, nil
	}

	db := a.getDB(tx)
	cutoff := time.Now().Add(-time.Duration(timeLimitMinutes) * time.Minute)

	var ids []uint
	err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND status = ? AND started_at < ?", quizID, models.AttemptStatusInProgress, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find overdue attempts: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id IN ?", ids).
		Update("status", models.AttemptStatusExpired).Error; err != nil {
		return nil, fmt.Errorf("failed to expire attempts: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, a.cacheManager.Attempt, "student:*")

	return ids, nil
}

// ===== STATISTICS =====

// GetStats computes attempt statistics for a quiz
func (a *AttemptPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, quizID uint) (*repositories.AttemptStats, error) {
	db := a.getDB(tx)

	stats := &repositories.AttemptStats{
		StatusBreakdown: make(map[models.AttemptStatus]int),
	}

	type statusRow struct {
		Status models.AttemptStatus
		Count  int64
	}
	var rows []statusRow
	err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Select("status, COUNT(*) as count").
		Where("quiz_id = ?", quizID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get status breakdown: %w", err)
	}
	for _, row := range rows {
		stats.StatusBreakdown[row.Status] = int(row.Count)
		stats.TotalAttempts += int(row.Count)
	}

	type agg struct {
		AvgScore float64
		AvgTime  float64
		Passed   int64
		Graded   int64
	}
	var result agg
	err = db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Select(`COALESCE(AVG(percentage) FILTER (WHERE is_graded), 0) as avg_score,
			COALESCE(AVG(time_spent_seconds), 0) as avg_time,
			COUNT(*) FILTER (WHERE passed) as passed,
			COUNT(*) FILTER (WHERE is_graded) as graded`).
		Where("quiz_id = ?", quizID).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate attempt stats: %w", err)
	}

	stats.AverageScore = result.AvgScore
	stats.AverageTimeSpent = int(result.AvgTime)
	if result.Graded > 0 {
		stats.PassRate = float64(result.Passed) / float64(result.Graded) * 100
	}

	return stats, nil
}

// ===== ANSWER REPOSITORY =====

type AnswerPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAnswerPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AnswerRepository {
	return &AnswerPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Create stores a single answer
func (a *AnswerPostgreSQL) Create(ctx context.Context, tx *gorm.DB, answer *models.StudentAnswer) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(answer).Error; err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}
	return nil
}

// CreateBatch stores an attempt's full answer set
func (a *AnswerPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.StudentAnswer) error {
	if len(answers) == 0 {
		return nil
	}

	db := a.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(answers, 100).Error; err != nil {
		return fmt.Errorf("failed to create answers batch: %w", err)
	}
	return nil
}

// GetByID retrieves an answer by ID
func (a *AnswerPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.StudentAnswer, error) {
	db := a.getDB(tx)
	var answer models.StudentAnswer
	if err := db.WithContext(ctx).Preload("Question").First(&answer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("answer %d: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}
	return &answer, nil
}

// GetByAttempt retrieves all answers of one attempt
func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.StudentAnswer, error) {
	db := a.getDB(tx)
	var answers []*models.StudentAnswer
	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	return answers, nil
}

// Update updates an answer (used by manual grading)
func (a *AnswerPostgreSQL) Update(ctx context.Context, tx *gorm.DB, answer *models.StudentAnswer) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Omit("Question").Save(answer).Error; err != nil {
		return fmt.Errorf("failed to update answer: %w", err)
	}
	return nil
}

// GetPendingGrading returns answers awaiting instructor review for a quiz
func (a *AnswerPostgreSQL) GetPendingGrading(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.AnswerFilters) ([]*models.StudentAnswer, int64, error) {
	db := a.getDB(tx)

	query := db.WithContext(ctx).
		Model(&models.StudentAnswer{}).
		Joins("JOIN quiz_attempts ON quiz_attempts.id = student_answers.attempt_id").
		Where("quiz_attempts.quiz_id = ?", quizID).
		Where("student_answers.requires_manual_grading = ? AND student_answers.graded_at IS NULL", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pending answers: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var answers []*models.StudentAnswer
	if err := query.Preload("Question").Order("student_answers.created_at ASC").Find(&answers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get pending answers: %w", err)
	}

	return answers, total, nil
}

// GetGradingStats summarizes grading progress for a quiz
func (a *AnswerPostgreSQL) GetGradingStats(ctx context.Context, tx *gorm.DB, quizID uint) (*repositories.GradingStats, error) {
	db := a.getDB(tx)

	type agg struct {
		Total        int64
		Manual       int64
		ManualGraded int64
		AvgScore     float64
	}
	var result agg
	err := db.WithContext(ctx).
		Model(&models.StudentAnswer{}).
		Joins("JOIN quiz_attempts ON quiz_attempts.id = student_answers.attempt_id").
		Select(`COUNT(*) as total,
			COUNT(*) FILTER (WHERE student_answers.requires_manual_grading) as manual,
			COUNT(*) FILTER (WHERE student_answers.requires_manual_grading AND student_answers.graded_at IS NOT NULL) as manual_graded,
			COALESCE(AVG(student_answers.earned_points), 0) as avg_score`).
		Where("quiz_attempts.quiz_id = ?", quizID).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate grading stats: %w", err)
	}

	auto := result.Total - result.Manual
	return &repositories.GradingStats{
		TotalAnswers:   int(result.Total),
		GradedAnswers:  int(auto + result.ManualGraded),
		PendingAnswers: int(result.Manual - result.ManualGraded),
		AutoGraded:     int(auto),
		ManualGraded:   int(result.ManualGraded),
		AverageScore:   result.AvgScore,
	}, nil
}
