package models

import "time"

// Kinds of coin ledger entries.
const (
	CoinEarn     = "earn"
	CoinSpend    = "spend"
	CoinBonus    = "bonus"
	CoinDonation = "donation"
)

// CoinTransaction is one row of a user's coin ledger. Amount is negative
// for debits.
type CoinTransaction struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Amount       int       `json:"amount"`
	Kind         string    `json:"kind"`
	Reason       string    `json:"reason"`
	ReferenceID  string    `json:"referenceId,omitempty"`
	BalanceAfter int       `json:"balanceAfter"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Reward is an item sponsors offer in exchange for coins.
type Reward struct {
	ID          string    `json:"id"`
	SponsorID   string    `json:"sponsorId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Cost        int       `json:"cost"`
	Stock       int       `json:"stock"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Donation is a monetary gift from a user to an NGO.
type Donation struct {
	ID           string    `json:"id"`
	DonorID      string    `json:"donorId"`
	NGOID        string    `json:"ngoId"`
	AmountCents  int64     `json:"amountCents"`
	Currency     string    `json:"currency"`
	Message      string    `json:"message,omitempty"`
	CoinsAwarded int       `json:"coinsAwarded"`
	CreatedAt    time.Time `json:"createdAt"`
}
