package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coursekit/quiz-service/internal/events"
	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/validator"
)

// Topics the notification consumer subscribes to.
const (
	TopicQuizEvents    = "quiz.events"
	TopicAttemptEvents = "quiz.attempt.events"
	TopicNotifications = "quiz.notifications"
)

// NotificationRequest is the payload handed to downstream notification
// consumers.
type NotificationRequest struct {
	Type     models.NotificationType     `json:"type" validate:"required"`
	Title    string                      `json:"title" validate:"required,max=200"`
	Message  string                      `json:"message" validate:"required,max=2000"`
	Priority models.NotificationPriority `json:"priority" validate:"omitempty,oneof=low normal high"`
}

// ===== EVENT PAYLOADS =====

type QuizEventData struct {
	QuizID   uint              `json:"quiz_id"`
	CourseID uint              `json:"course_id,omitempty"`
	Title    string            `json:"title,omitempty"`
	Status   models.QuizStatus `json:"status,omitempty"`
	Creator  string            `json:"creator,omitempty"`
	Reason   *string           `json:"reason,omitempty"`
}

type AttemptEventData struct {
	AttemptID     uint    `json:"attempt_id"`
	QuizID        uint    `json:"quiz_id"`
	StudentID     string  `json:"student_id"`
	AttemptNumber int     `json:"attempt_number,omitempty"`
	Score         float64 `json:"score,omitempty"`
	Percentage    float64 `json:"percentage,omitempty"`
	Passed        bool    `json:"passed,omitempty"`
	LetterGrade   string  `json:"letter_grade,omitempty"`
	PendingCount  int     `json:"pending_count,omitempty"`
}

type BulkNotificationEvent struct {
	UserIDs      []string             `json:"user_ids"`
	Notification *NotificationRequest `json:"notification"`
	SentAt       time.Time            `json:"sent_at"`
}

type notificationEventService struct {
	repo           repositories.Repository
	eventPublisher events.EventPublisher
	logger         *slog.Logger
	validator      *validator.Validator
}

func NewNotificationEventService(repo repositories.Repository, eventPublisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) NotificationEventService {
	return &notificationEventService{
		repo:           repo,
		eventPublisher: eventPublisher,
		logger:         logger,
		validator:      validator,
	}
}

// ===== QUIZ LIFECYCLE EVENTS =====

func (s *notificationEventService) NotifyQuizPublished(ctx context.Context, quiz *models.Quiz) error {
	event := events.NewEvent(string(models.NotificationQuizPublished), QuizEventData{
		QuizID:   quiz.ID,
		CourseID: quiz.CourseID,
		Title:    quiz.Title,
		Status:   models.QuizStatusActive,
		Creator:  quiz.CreatedBy,
	})

	return s.publish(ctx, TopicQuizEvents, event)
}

func (s *notificationEventService) NotifyQuizArchived(ctx context.Context, quiz *models.Quiz, reason *string) error {
	event := events.NewEvent(string(models.NotificationQuizArchived), QuizEventData{
		QuizID:   quiz.ID,
		CourseID: quiz.CourseID,
		Title:    quiz.Title,
		Status:   models.QuizStatusArchived,
		Creator:  quiz.CreatedBy,
		Reason:   reason,
	})

	return s.publish(ctx, TopicQuizEvents, event)
}

func (s *notificationEventService) NotifyQuizExpired(ctx context.Context, quizID uint) error {
	event := events.NewEvent(string(models.NotificationQuizExpired), QuizEventData{
		QuizID: quizID,
		Status: models.QuizStatusExpired,
	})

	return s.publish(ctx, TopicQuizEvents, event)
}

// ===== ATTEMPT LIFECYCLE EVENTS =====

func (s *notificationEventService) NotifyAttemptStarted(ctx context.Context, attempt *models.QuizAttempt) error {
	event := events.NewEvent(string(models.NotificationAttemptStarted), AttemptEventData{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		StudentID:     attempt.StudentID,
		AttemptNumber: attempt.AttemptNumber,
	})

	return s.publish(ctx, TopicAttemptEvents, event)
}

func (s *notificationEventService) NotifyAttemptSubmitted(ctx context.Context, attempt *models.QuizAttempt) error {
	event := events.NewEvent(string(models.NotificationAttemptSubmitted), AttemptEventData{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		StudentID:     attempt.StudentID,
		AttemptNumber: attempt.AttemptNumber,
	})

	return s.publish(ctx, TopicAttemptEvents, event)
}

func (s *notificationEventService) NotifyAttemptGraded(ctx context.Context, attempt *models.QuizAttempt) error {
	event := events.NewEvent(string(models.NotificationAttemptGraded), AttemptEventData{
		AttemptID:   attempt.ID,
		QuizID:      attempt.QuizID,
		StudentID:   attempt.StudentID,
		Score:       attempt.Score,
		Percentage:  attempt.Percentage,
		Passed:      attempt.Passed,
		LetterGrade: attempt.LetterGrade,
	})

	return s.publish(ctx, TopicAttemptEvents, event)
}

func (s *notificationEventService) NotifyGradingPending(ctx context.Context, attempt *models.QuizAttempt, pendingCount int) error {
	event := events.NewEvent(string(models.NotificationGradingPending), AttemptEventData{
		AttemptID:    attempt.ID,
		QuizID:       attempt.QuizID,
		StudentID:    attempt.StudentID,
		PendingCount: pendingCount,
	})

	return s.publish(ctx, TopicAttemptEvents, event)
}

// ===== BULK NOTIFICATIONS =====

// SendBulkNotification fans one notification out to a set of users through
// the notification topic.
func (s *notificationEventService) SendBulkNotification(ctx context.Context, userIDs []string, notification *NotificationRequest) error {
	if err := s.validator.Validate(notification); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if len(userIDs) == 0 {
		return NewValidationError("user_ids", "at least one recipient is required", userIDs)
	}

	event := events.NewEvent("system.bulk_notification", BulkNotificationEvent{
		UserIDs:      userIDs,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	})

	return s.publish(ctx, TopicNotifications, event)
}

func (s *notificationEventService) publish(ctx context.Context, topic string, event *events.Event) error {
	if err := s.eventPublisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	s.logger.Debug("Event published",
		"topic", topic,
		"event_type", event.Type,
		"event_id", event.ID)

	return nil
}
