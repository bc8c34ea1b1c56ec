package services

import (
	"context"
	"testing"

	"github.com/isdelr/impact-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDonationCoins(t *testing.T) {
	assert.Equal(t, 25, DonationCoins(25000, 10))
	assert.Equal(t, 0, DonationCoins(999, 10))
	assert.Equal(t, 1, DonationCoins(1000, 10))
	assert.Equal(t, 0, DonationCoins(5000, 0))
	assert.Equal(t, 0, DonationCoins(-100, 10))
}

func TestDonate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewDonationService(db, 10, NewActivityService(db), notifier)

	ngo := createUser(t, db, "shelter", models.RoleNGO)
	donor := createUser(t, db, "donor", models.RoleVolunteer)

	d, err := svc.Donate(ctx, donor.ID, DonationInput{NGOID: ngo.ID, AmountCents: 25000, Currency: "eur", Message: "keep going"})
	require.NoError(t, err)
	assert.Equal(t, "EUR", d.Currency)
	assert.Equal(t, 25, d.CoinsAwarded)

	_, err = svc.Donate(ctx, donor.ID, DonationInput{NGOID: ngo.ID, AmountCents: 500})
	require.NoError(t, err)

	balance, err := NewCoinService(db).Balance(ctx, donor.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, balance)

	_, err = svc.Donate(ctx, ngo.ID, DonationInput{NGOID: donor.ID, AmountCents: 500})
	assert.ErrorIs(t, err, ErrInvalidRecipient)
	_, err = svc.Donate(ctx, donor.ID, DonationInput{NGOID: ngo.ID, AmountCents: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Donate(ctx, donor.ID, DonationInput{NGOID: "missing", AmountCents: 500})
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := svc.ListByDonor(ctx, donor.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "USD", mine[0].Currency)
	assert.Equal(t, "keep going", mine[1].Message)

	received, err := svc.ListByNGO(ctx, ngo.ID)
	require.NoError(t, err)
	assert.Len(t, received, 2)

	total, err := svc.TotalForNGO(ctx, ngo.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 25500, total)

	assert.Contains(t, notifier.actions(), UserTopic(ngo.ID)+"/donation_received")
}
