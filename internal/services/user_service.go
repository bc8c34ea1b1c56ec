package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/impact-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	CreateUser(ctx context.Context, name, email, password, role string) (models.User, error)
	UpdateUser(ctx context.Context, id, name, email string) (models.User, error)
	UpdatePassword(ctx context.Context, id, currentPassword, newPassword string) error
	SetRole(ctx context.Context, id, role string) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = `id, name, email, password_hash, role, points, coins,
	current_streak, longest_streak, last_active_date, created_at`

func scanUser(scanner interface{ Scan(...interface{}) error }) (models.User, error) {
	var user models.User
	var lastActive sql.NullString
	err := scanner.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.Points, &user.Coins, &user.CurrentStreak, &user.LongestStreak, &lastActive, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	user.LastActiveDate = lastActive.String
	return user, nil
}

func getUser(ctx context.Context, ex Execer, id string) (models.User, error) {
	row := ex.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByID retrieves a single user by their ID. The password hash is cleared.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := getUser(ctx, s.db, id)
	user.PasswordHash = ""
	return user, err
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
		}
		return models.User{}, err
	}
	return user, nil
}

// CreateUser creates a new user, hashing their password.
func (s *UserService) CreateUser(ctx context.Context, name, email, password, role string) (models.User, error) {
	if role == "" {
		role = models.RoleVolunteer
	}
	if !models.ValidRole(role) {
		return models.User{}, ErrInvalidRole
	}
	email = normalizeEmail(email)

	if taken, err := s.emailTaken(ctx, email, ""); err != nil {
		return models.User{}, err
	} else if taken {
		return models.User{}, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, string(hashedPassword), user.Role, user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// UpdateUser updates a user's non-sensitive information.
func (s *UserService) UpdateUser(ctx context.Context, id, name, email string) (models.User, error) {
	email = normalizeEmail(email)
	if taken, err := s.emailTaken(ctx, email, id); err != nil {
		return models.User{}, err
	} else if taken {
		return models.User{}, ErrEmailTaken
	}

	res, err := s.db.ExecContext(ctx, "UPDATE users SET name = ?, email = ? WHERE id = ?", strings.TrimSpace(name), email, id)
	if err != nil {
		return models.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return s.GetUserByID(ctx, id)
}

// UpdatePassword verifies the current password, then hashes and sets a new password for a user.
func (s *UserService) UpdatePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	user, err := getUser(ctx, s.db, id)
	if err != nil {
		return err
	}

	// Check if the current password is correct
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	_, err = s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", string(hashedPassword), id)
	return err
}

// SetRole changes the role of a user. Only admins reach this through the API.
func (s *UserService) SetRole(ctx context.Context, id, role string) (models.User, error) {
	if !models.ValidRole(role) {
		return models.User{}, ErrInvalidRole
	}
	res, err := s.db.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", role, id)
	if err != nil {
		return models.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return s.GetUserByID(ctx, id)
}

// DeleteUser removes a user from the database.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// AuthenticateUser verifies a user's credentials.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?", email, exceptID).Scan(&n)
	return n > 0, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
