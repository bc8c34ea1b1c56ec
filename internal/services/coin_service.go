package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/impact-be/internal/models"
)

// CoinServiceProvider defines the interface for the coin ledger.
type CoinServiceProvider interface {
	Credit(ctx context.Context, userID string, amount int, kind, reason, referenceID string) (models.CoinTransaction, error)
	Debit(ctx context.Context, userID string, amount int, reason, referenceID string) (models.CoinTransaction, error)
	Balance(ctx context.Context, userID string) (int, error)
	History(ctx context.Context, userID string, limit int) ([]models.CoinTransaction, error)
}

// CoinService keeps users.coins and the coin_transactions ledger in step.
type CoinService struct {
	db *sql.DB
}

// NewCoinService creates a new CoinService.
func NewCoinService(db *sql.DB) *CoinService {
	return &CoinService{db: db}
}

// Credit adds coins to a user's balance.
func (s *CoinService) Credit(ctx context.Context, userID string, amount int, kind, reason, referenceID string) (models.CoinTransaction, error) {
	if amount <= 0 {
		return models.CoinTransaction{}, ErrInvalidAmount
	}
	var txn models.CoinTransaction
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		txn, err = applyCoins(ctx, tx, userID, amount, kind, reason, referenceID)
		return err
	})
	return txn, err
}

// Debit removes coins from a user's balance. It fails with
// ErrInsufficientCoins rather than going negative.
func (s *CoinService) Debit(ctx context.Context, userID string, amount int, reason, referenceID string) (models.CoinTransaction, error) {
	if amount <= 0 {
		return models.CoinTransaction{}, ErrInvalidAmount
	}
	var txn models.CoinTransaction
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		txn, err = applyCoins(ctx, tx, userID, -amount, models.CoinSpend, reason, referenceID)
		return err
	})
	return txn, err
}

// Balance returns the current coin balance of a user.
func (s *CoinService) Balance(ctx context.Context, userID string) (int, error) {
	var coins int
	err := s.db.QueryRowContext(ctx, "SELECT coins FROM users WHERE id = ?", userID).Scan(&coins)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return coins, err
}

// History returns the most recent ledger entries of a user.
func (s *CoinService) History(ctx context.Context, userID string, limit int) ([]models.CoinTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, kind, reason, reference_id, balance_after, created_at
		FROM coin_transactions WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []models.CoinTransaction{}
	for rows.Next() {
		var txn models.CoinTransaction
		var ref sql.NullString
		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.Amount, &txn.Kind, &txn.Reason, &ref, &txn.BalanceAfter, &txn.CreatedAt); err != nil {
			return nil, err
		}
		txn.ReferenceID = ref.String
		history = append(history, txn)
	}
	return history, rows.Err()
}

// applyCoins changes a balance by delta and appends the ledger row. It must
// run inside a transaction.
func applyCoins(ctx context.Context, ex Execer, userID string, delta int, kind, reason, referenceID string) (models.CoinTransaction, error) {
	var balance int
	err := ex.QueryRowContext(ctx, "SELECT coins FROM users WHERE id = ?", userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CoinTransaction{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return models.CoinTransaction{}, err
	}

	newBalance := balance + delta
	if newBalance < 0 {
		return models.CoinTransaction{}, ErrInsufficientCoins
	}

	if _, err := ex.ExecContext(ctx, "UPDATE users SET coins = ? WHERE id = ?", newBalance, userID); err != nil {
		return models.CoinTransaction{}, err
	}

	txn := models.CoinTransaction{
		ID:           uuid.New().String(),
		UserID:       userID,
		Amount:       delta,
		Kind:         kind,
		Reason:       reason,
		ReferenceID:  referenceID,
		BalanceAfter: newBalance,
		CreatedAt:    time.Now().UTC(),
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO coin_transactions (id, user_id, amount, kind, reason, reference_id, balance_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.UserID, txn.Amount, txn.Kind, txn.Reason, nullString(txn.ReferenceID), txn.BalanceAfter, txn.CreatedAt)
	if err != nil {
		return models.CoinTransaction{}, err
	}
	return txn, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
