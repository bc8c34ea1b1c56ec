package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/impact-be/internal/models"
)

// DonationInput carries a donation request.
type DonationInput struct {
	NGOID       string `json:"ngoId" validate:"required,uuid"`
	AmountCents int64  `json:"amountCents" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3,alpha"`
	Message     string `json:"message" validate:"max=500"`
}

// DonationServiceProvider defines the interface for donations.
type DonationServiceProvider interface {
	Donate(ctx context.Context, donorID string, in DonationInput) (models.Donation, error)
	ListByDonor(ctx context.Context, donorID string) ([]models.Donation, error)
	ListByNGO(ctx context.Context, ngoID string) ([]models.Donation, error)
	TotalForNGO(ctx context.Context, ngoID string) (int64, error)
}

// DonationService records donations to NGOs and rewards donors with coins.
type DonationService struct {
	db           *sql.DB
	coinsDivisor int
	activity     ActivityServiceProvider
	notifier     Notifier
}

// NewDonationService creates a new DonationService. Donors get one coin per
// coinsDivisor whole currency units.
func NewDonationService(db *sql.DB, coinsDivisor int, activity ActivityServiceProvider, notifier Notifier) *DonationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &DonationService{db: db, coinsDivisor: coinsDivisor, activity: activity, notifier: notifier}
}

// DonationCoins returns the coins earned by donating amountCents.
func DonationCoins(amountCents int64, divisor int) int {
	if divisor <= 0 || amountCents <= 0 {
		return 0
	}
	return int(amountCents / 100 / int64(divisor))
}

// Donate records a donation and credits the donor's coins in one transaction.
func (s *DonationService) Donate(ctx context.Context, donorID string, in DonationInput) (models.Donation, error) {
	if in.AmountCents <= 0 {
		return models.Donation{}, ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	donation := models.Donation{
		ID:           uuid.New().String(),
		DonorID:      donorID,
		NGOID:        in.NGOID,
		AmountCents:  in.AmountCents,
		Currency:     currency,
		Message:      in.Message,
		CoinsAwarded: DonationCoins(in.AmountCents, s.coinsDivisor),
		CreatedAt:    time.Now().UTC(),
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		ngo, err := getUser(ctx, tx, in.NGOID)
		if err != nil {
			return err
		}
		if ngo.Role != models.RoleNGO || ngo.ID == donorID {
			return ErrInvalidRecipient
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO donations (id, donor_id, ngo_id, amount_cents, currency, message, coins_awarded, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			donation.ID, donation.DonorID, donation.NGOID, donation.AmountCents, donation.Currency,
			nullString(donation.Message), donation.CoinsAwarded, donation.CreatedAt)
		if err != nil {
			return err
		}

		if donation.CoinsAwarded > 0 {
			reason := fmt.Sprintf("Donation to %s", ngo.Name)
			if _, err := applyCoins(ctx, tx, donorID, donation.CoinsAwarded, models.CoinDonation, reason, donation.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Donation{}, err
	}

	recordActivity(ctx, s.activity, "donation.create", "info",
		fmt.Sprintf("A donation of %s %.2f was made.", donation.Currency, float64(donation.AmountCents)/100), "")
	s.notifier.Publish(UserTopic(in.NGOID), "donation_received", donation)
	return donation, nil
}

// ListByDonor returns the donations made by a user, newest first.
func (s *DonationService) ListByDonor(ctx context.Context, donorID string) ([]models.Donation, error) {
	return s.list(ctx, "donor_id", donorID)
}

// ListByNGO returns the donations received by an NGO, newest first.
func (s *DonationService) ListByNGO(ctx context.Context, ngoID string) ([]models.Donation, error) {
	return s.list(ctx, "ngo_id", ngoID)
}

func (s *DonationService) list(ctx context.Context, column, id string) ([]models.Donation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, donor_id, ngo_id, amount_cents, currency, message, coins_awarded, created_at
		FROM donations WHERE `+column+` = ? ORDER BY created_at DESC, rowid DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donations := []models.Donation{}
	for rows.Next() {
		var d models.Donation
		var msg sql.NullString
		if err := rows.Scan(&d.ID, &d.DonorID, &d.NGOID, &d.AmountCents, &d.Currency, &msg, &d.CoinsAwarded, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Message = msg.String
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// TotalForNGO sums the donations received by an NGO, in cents.
func (s *DonationService) TotalForNGO(ctx context.Context, ngoID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(amount_cents), 0) FROM donations WHERE ngo_id = ?", ngoID).Scan(&total)
	return total, err
}
