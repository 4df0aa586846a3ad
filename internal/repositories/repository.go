package repositories

import "context"

// Repository aggregates all per-domain repositories behind one handle.
type Repository interface {
	Quiz() QuizRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository

	// User domain is read-only; the identity provider owns user data
	User() UserRepository

	// WithTransaction runs fn with a Repository bound to one transaction
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager controls repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
