package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/isdelr/impact-be/internal/models"
)

// Errors returned by the services. Handlers map them to HTTP status codes.
var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("not allowed to perform this action")
	ErrEmailTaken            = errors.New("email already in use")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidRole           = errors.New("invalid role")
	ErrInvalidTimeRange      = errors.New("event must end after it starts")
	ErrEventFull             = errors.New("event has reached its participant limit")
	ErrAlreadyRegistered     = errors.New("already registered for this event")
	ErrNotRegistered         = errors.New("not registered for this event")
	ErrEventAlreadyCompleted = errors.New("event is already completed")
	ErrEventCancelled        = errors.New("event is cancelled")
	ErrInsufficientCoins     = errors.New("insufficient coins")
	ErrOutOfStock            = errors.New("reward is out of stock")
	ErrRewardInactive        = errors.New("reward is not available")
	ErrInvalidRecipient      = errors.New("donations can only be made to an NGO")
	ErrInvalidAmount         = errors.New("amount must be positive")
)

// Actor identifies the user performing an operation.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Execer is satisfied by both *sql.DB and *sql.Tx so writes can join a
// caller's transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn inside a transaction, committing on success. The pool
// holds a single connection, so fn must only use tx.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Notifier pushes realtime updates to connected clients.
type Notifier interface {
	Publish(topic, action string, payload interface{})
}

// Topics used with Notifier.
const (
	TopicGlobal = "global"
)

// UserTopic is the topic carrying updates for a single user.
func UserTopic(userID string) string { return "user:" + userID }

type nopNotifier struct{}

func (nopNotifier) Publish(string, string, interface{}) {}
