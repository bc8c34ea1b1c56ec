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
)

// RewardInput carries the fields of a new reward.
type RewardInput struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Cost        int    `json:"cost" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

// Redemption is the result of spending coins on a reward.
type Redemption struct {
	Reward      models.Reward          `json:"reward"`
	Transaction models.CoinTransaction `json:"transaction"`
}

// RewardServiceProvider defines the interface for the rewards catalog.
type RewardServiceProvider interface {
	CreateReward(ctx context.Context, sponsorID string, in RewardInput) (models.Reward, error)
	ListRewards(ctx context.Context, activeOnly bool) ([]models.Reward, error)
	GetReward(ctx context.Context, id string) (models.Reward, error)
	SetActive(ctx context.Context, actor Actor, id string, active bool) (models.Reward, error)
	Redeem(ctx context.Context, userID, rewardID string) (Redemption, error)
}

// RewardService manages sponsor rewards and their redemption for coins.
type RewardService struct {
	db       *sql.DB
	activity ActivityServiceProvider
	notifier Notifier
}

// NewRewardService creates a new RewardService.
func NewRewardService(db *sql.DB, activity ActivityServiceProvider, notifier Notifier) *RewardService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &RewardService{db: db, activity: activity, notifier: notifier}
}

const rewardColumns = "id, sponsor_id, title, description, cost, stock, active, created_at"

func scanReward(scanner interface{ Scan(...interface{}) error }) (models.Reward, error) {
	var r models.Reward
	var desc sql.NullString
	if err := scanner.Scan(&r.ID, &r.SponsorID, &r.Title, &desc, &r.Cost, &r.Stock, &r.Active, &r.CreatedAt); err != nil {
		return models.Reward{}, err
	}
	r.Description = desc.String
	return r, nil
}

func getReward(ctx context.Context, ex Execer, id string) (models.Reward, error) {
	r, err := scanReward(ex.QueryRowContext(ctx, "SELECT "+rewardColumns+" FROM rewards WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reward{}, fmt.Errorf("reward %s: %w", id, ErrNotFound)
	}
	return r, err
}

// CreateReward adds an active reward to the catalog.
func (s *RewardService) CreateReward(ctx context.Context, sponsorID string, in RewardInput) (models.Reward, error) {
	if in.Cost <= 0 || in.Stock < 0 {
		return models.Reward{}, ErrInvalidAmount
	}
	reward := models.Reward{
		ID:          uuid.New().String(),
		SponsorID:   sponsorID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Cost:        in.Cost,
		Stock:       in.Stock,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rewards ("+rewardColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		reward.ID, reward.SponsorID, reward.Title, nullString(reward.Description), reward.Cost, reward.Stock, reward.Active, reward.CreatedAt)
	if err != nil {
		return models.Reward{}, err
	}
	return reward, nil
}

// ListRewards returns the catalog, cheapest first.
func (s *RewardService) ListRewards(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	query := "SELECT " + rewardColumns + " FROM rewards"
	if activeOnly {
		query += " WHERE active = TRUE AND stock > 0"
	}
	query += " ORDER BY cost ASC, title ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rewards := []models.Reward{}
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

// GetReward retrieves a single reward.
func (s *RewardService) GetReward(ctx context.Context, id string) (models.Reward, error) {
	return getReward(ctx, s.db, id)
}

// SetActive enables or withdraws a reward. Only its sponsor or an admin may do so.
func (s *RewardService) SetActive(ctx context.Context, actor Actor, id string, active bool) (models.Reward, error) {
	reward, err := s.GetReward(ctx, id)
	if err != nil {
		return models.Reward{}, err
	}
	if !actor.IsAdmin() && actor.UserID != reward.SponsorID {
		return models.Reward{}, ErrForbidden
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE rewards SET active = ? WHERE id = ?", active, id); err != nil {
		return models.Reward{}, err
	}
	reward.Active = active
	return reward, nil
}

// Redeem spends the reward's cost from the user's coins and takes one item
// from stock, atomically.
func (s *RewardService) Redeem(ctx context.Context, userID, rewardID string) (Redemption, error) {
	var out Redemption
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		reward, err := getReward(ctx, tx, rewardID)
		if err != nil {
			return err
		}
		if !reward.Active {
			return ErrRewardInactive
		}
		if reward.Stock <= 0 {
			return ErrOutOfStock
		}

		txn, err := applyCoins(ctx, tx, userID, -reward.Cost, models.CoinSpend, "Redeemed '"+reward.Title+"'", reward.ID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE rewards SET stock = stock - 1 WHERE id = ?", reward.ID); err != nil {
			return err
		}
		reward.Stock--
		out = Redemption{Reward: reward, Transaction: txn}
		return nil
	})
	if err != nil {
		return Redemption{}, err
	}

	recordActivity(ctx, s.activity, "reward.redeem", "info",
		fmt.Sprintf("Reward '%s' was redeemed.", out.Reward.Title), "")
	s.notifier.Publish(UserTopic(userID), "coins_updated", out.Transaction)
	return out, nil
}
