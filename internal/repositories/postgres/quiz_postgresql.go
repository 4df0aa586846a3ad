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

type QuizPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuizPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuizPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new quiz and invalidates list caches
func (q *QuizPostgreSQL) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(quiz).Error; err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, q.cacheManager.Quiz, fmt.Sprintf("creator:%s:*", quiz.CreatedBy))
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Quiz, fmt.Sprintf("course:%d:*", quiz.CourseID))
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Quiz, "list:*")

	return nil
}

// GetByID retrieves a quiz by ID with caching
func (q *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var quiz models.Quiz

	err := q.cacheManager.Quiz.CacheOrExecute(ctx, cacheKey, &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbQuiz models.Quiz
		if err := db.WithContext(ctx).First(&dbQuiz, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("quiz %d: %w", id, gorm.ErrRecordNotFound)
			}
			return nil, fmt.Errorf("failed to get quiz: %w", err)
		}
		return &dbQuiz, nil
	})

	if err != nil {
		return nil, err
	}

	return &quiz, nil
}

// GetByIDWithQuestions retrieves the full aggregate, questions in order
func (q *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.\"order\" ASC")
		}).
		First(&quiz, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("quiz %d: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get quiz with questions: %w", err)
	}
	return &quiz, nil
}

// Update updates a quiz
func (q *QuizPostgreSQL) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Omit("Questions").Save(quiz).Error; err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}

	cache.InvalidateQuizCache(ctx, q.cacheManager, quiz.ID, quiz.CreatedBy)

	return nil
}

// Delete removes a quiz; questions cascade via the foreign key
func (q *QuizPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)

	var quiz models.Quiz
	if err := db.WithContext(ctx).Select("id, created_by").First(&quiz, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("quiz %d: %w", id, gorm.ErrRecordNotFound)
		}
		return fmt.Errorf("failed to get quiz before delete: %w", err)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("failed to delete quiz questions: %w", err)
		}
		if err := tx.Delete(&models.Quiz{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateQuizCache(ctx, q.cacheManager, id, quiz.CreatedBy)

	return nil
}

// ===== QUERY OPERATIONS =====

// List retrieves quizzes matching the filters with a total count
func (q *QuizPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	db := q.getDB(tx)

	query := db.WithContext(ctx).Model(&models.Quiz{})
	query = q.helpers.ApplyQuizFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quizzes: %w", err)
	}

	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var quizzes []*models.Quiz
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return quizzes, total, nil
}

// GetByCourse retrieves quizzes for a course
func (q *QuizPostgreSQL) GetByCourse(ctx context.Context, tx *gorm.DB, courseID uint, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	filters.CourseID = &courseID
	return q.List(ctx, tx, filters)
}

// GetByCreator retrieves quizzes created by one author
func (q *QuizPostgreSQL) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	filters.CreatedBy = &creatorID
	return q.List(ctx, tx, filters)
}

// ===== LIFECYCLE =====

// UpdateStatus transitions a quiz's status
func (q *QuizPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.QuizStatus) error {
	db := q.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update quiz status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("quiz %d: %w", id, gorm.ErrRecordNotFound)
	}

	cache.SafeDelete(ctx, q.cacheManager.Quiz, fmt.Sprintf("id:%d", id), fmt.Sprintf("details:%d", id))
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Quiz, "list:*")
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Quiz, "course:*")

	return nil
}

// ExpireOverdue marks active quizzes past their availability window as
// expired and returns the affected IDs.
func (q *QuizPostgreSQL) ExpireOverdue(ctx context.Context, tx *gorm.DB) ([]uint, error) {
	db := q.getDB(tx)

	var ids []uint
	err := db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("status = ? AND available_until IS NOT NULL AND available_until < ?", models.QuizStatusActive, time.Now()).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find overdue quizzes: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id IN ?", ids).
		Update("status", models.QuizStatusExpired).Error; err != nil {
		return nil, fmt.Errorf("failed to expire quizzes: %w", err)
	}

	for _, id := range ids {
		cache.SafeDelete(ctx, q.cacheManager.Quiz, fmt.Sprintf("id:%d", id))
	}
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Quiz, "list:*")

	return ids, nil
}

// ===== QUESTION ORDERING =====

// SaveQuestionOrder persists a full reordering of the quiz's questions
func (q *QuizPostgreSQL) SaveQuestionOrder(ctx context.Context, tx *gorm.DB, quizID uint, orderedIDs []uint) error {
	db := q.getDB(tx)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for position, questionID := range orderedIDs {
			result := tx.Model(&models.Question{}).
				Where("id = ? AND quiz_id = ?", questionID, quizID).
				Update("order", position)
			if result.Error != nil {
				return fmt.Errorf("failed to update question order: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("question %d does not belong to quiz %d", questionID, quizID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.SafeDelete(ctx, q.cacheManager.Quiz, fmt.Sprintf("details:%d", quizID))
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, fmt.Sprintf("quiz:%d:*", quizID))

	return nil
}

// ===== VALIDATION AND CHECKS =====

// HasAttempts reports whether any student has attempted the quiz
func (q *QuizPostgreSQL) HasAttempts(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := q.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count > 0, nil
}

// QuestionCount counts questions in a quiz
func (q *QuizPostgreSQL) QuestionCount(ctx context.Context, tx *gorm.DB, id uint) (int64, error) {
	db := q.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("quiz_id = ?", id).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// ===== STATISTICS =====

// GetStats computes aggregate statistics for a quiz, cached briefly
func (q *QuizPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.QuizStats, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("quiz:%d:summary", id)
	var stats repositories.QuizStats

	err := q.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var result repositories.QuizStats

		type attemptAgg struct {
			Total     int64
			Completed int64
			AvgScore  float64
			Passed    int64
			AvgTime   float64
		}
		var agg attemptAgg
		err := db.WithContext(ctx).
			Model(&models.QuizAttempt{}).
			Select(`COUNT(*) as total,
				COUNT(*) FILTER (WHERE status IN ('submitted', 'graded')) as completed,
				COALESCE(AVG(percentage) FILTER (WHERE is_graded), 0) as avg_score,
				COUNT(*) FILTER (WHERE passed) as passed,
				COALESCE(AVG(time_spent_seconds), 0) as avg_time`).
			Where("quiz_id = ?", id).
			Scan(&agg).Error
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate attempts: %w", err)
		}

		result.TotalAttempts = int(agg.Total)
		result.CompletedAttempts = int(agg.Completed)
		result.AverageScore = agg.AvgScore
		result.AverageTimeSpent = int(agg.AvgTime)
		if agg.Completed > 0 {
			result.PassRate = float64(agg.Passed) / float64(agg.Completed) * 100
		}

		var questions []models.Question
		if err := db.WithContext(ctx).
			Select("id, type, points, content").
			Where("quiz_id = ?", id).
			Find(&questions).Error; err != nil {
			return nil, fmt.Errorf("failed to load questions for stats: %w", err)
		}
		result.QuestionCount = len(questions)
		for i := range questions {
			result.TotalPoints += questions[i].EffectivePoints()
		}

		return &result, nil
	})

	if err != nil {
		return nil, err
	}

	return &stats, nil
}
