package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateQuizCache invalidates quiz caches along with dependent stats
func InvalidateQuizCache(ctx context.Context, cm *CacheManager, quizID uint, creatorID string) {
	SafeDelete(ctx, cm.Quiz,
		fmt.Sprintf("id:%d", quizID),
		fmt.Sprintf("details:%d", quizID))

	SafeInvalidatePattern(ctx, cm.Quiz, fmt.Sprintf("creator:%s:*", creatorID))
	SafeInvalidatePattern(ctx, cm.Quiz, "course:*")
	SafeInvalidatePattern(ctx, cm.Quiz, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("quiz:%d:*", quizID))
}

// InvalidateQuestionCache invalidates question caches; the owning quiz's
// details and totals depend on question payloads, so those go too.
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID, quizID uint) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("id:%d", questionID))
	SafeInvalidatePattern(ctx, cm.Question, fmt.Sprintf("quiz:%d:*", quizID))
	SafeDelete(ctx, cm.Quiz, fmt.Sprintf("details:%d", quizID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("quiz:%d:*", quizID))
}

// InvalidateAttemptCache invalidates attempt caches for a student and quiz
func InvalidateAttemptCache(ctx context.Context, cm *CacheManager, attemptID, quizID uint, studentID string) {
	SafeDelete(ctx, cm.Attempt, fmt.Sprintf("id:%d", attemptID))
	SafeInvalidatePattern(ctx, cm.Attempt, fmt.Sprintf("student:%s:*", studentID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("quiz:%d:*", quizID))
}
