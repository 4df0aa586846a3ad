package models

// Notification event types emitted on the message bus when quizzes and
// attempts change state. Consumers live in the notification service.
type NotificationType string

const (
	NotificationQuizPublished    NotificationType = "quiz.published"
	NotificationQuizArchived     NotificationType = "quiz.archived"
	NotificationQuizExpired      NotificationType = "quiz.expired"
	NotificationAttemptStarted   NotificationType = "attempt.started"
	NotificationAttemptSubmitted NotificationType = "attempt.submitted"
	NotificationAttemptGraded    NotificationType = "attempt.graded"
	NotificationGradingPending   NotificationType = "grading.pending"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)
