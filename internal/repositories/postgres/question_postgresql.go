package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursekit/quiz-service/internal/cache"
	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new question and invalidates the owning quiz's caches
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID, question.QuizID)

	return nil
}

// GetByID retrieves a question by ID with caching
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := db.WithContext(ctx).First(&dbQuestion, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("question %d: %w", id, gorm.ErrRecordNotFound)
			}
			return nil, fmt.Errorf("failed to get question: %w", err)
		}
		return &dbQuestion, nil
	})

	if err != nil {
		return nil, err
	}

	return &question, nil
}

// Update updates a question
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID, question.QuizID)

	return nil
}

// Delete removes a question and closes the order gap in its quiz
func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)

	var question models.Question
	if err := db.WithContext(ctx).Select("id, quiz_id, \"order\"").First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("question %d: %w", id, gorm.ErrRecordNotFound)
		}
		return fmt.Errorf("failed to get question before delete: %w", err)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Question{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete question: %w", err)
		}
		// shift later questions down so order stays dense
		if err := tx.Model(&models.Question{}).
			Where("quiz_id = ? AND \"order\" > ?", question.QuizID, question.Order).
			UpdateColumn("order", gorm.Expr("\"order\" - 1")).Error; err != nil {
			return fmt.Errorf("failed to compact question order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id, question.QuizID)

	return nil
}

// ===== BULK OPERATIONS =====

// CreateBatch creates multiple questions in a batch
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	db := q.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return fmt.Errorf("failed to create questions batch: %w", err)
	}

	if len(questions) > 0 {
		cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, fmt.Sprintf("quiz:%d:*", questions[0].QuizID))
		cache.SafeDelete(ctx, q.cacheManager.Quiz, fmt.Sprintf("details:%d", questions[0].QuizID))
	}

	return nil
}

// GetByIDs retrieves multiple questions by their IDs
func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}

	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by IDs: %w", err)
	}

	return questions, nil
}

// ===== QUERY OPERATIONS =====

// GetByQuiz retrieves a quiz's questions in display order, cached
func (q *QuestionPostgreSQL) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("quiz:%d:all", quizID)
	var questions []*models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &questions, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestions []*models.Question
		if err := db.WithContext(ctx).
			Where("quiz_id = ?", quizID).
			Order("\"order\" ASC").
			Find(&dbQuestions).Error; err != nil {
			return nil, fmt.Errorf("failed to get quiz questions: %w", err)
		}
		return dbQuestions, nil
	})

	if err != nil {
		return nil, err
	}

	return questions, nil
}

// List retrieves questions matching the filters with a total count
func (q *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	db := q.getDB(tx)

	query := db.WithContext(ctx).Model(&models.Question{})
	query = q.helpers.ApplyQuestionFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var questions []*models.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

// ===== CONTENT MANAGEMENT =====

// UpdateContent replaces only the variant payload of a question
func (q *QuestionPostgreSQL) UpdateContent(ctx context.Context, tx *gorm.DB, id uint, content interface{}) error {
	db := q.getDB(tx)

	var question models.Question
	if err := db.WithContext(ctx).Select("id, quiz_id").First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("question %d: %w", id, gorm.ErrRecordNotFound)
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		Update("content", content).Error; err != nil {
		return fmt.Errorf("failed to update question content: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id, question.QuizID)

	return nil
}
