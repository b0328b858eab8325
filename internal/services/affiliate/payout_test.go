package affiliate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketwatch/backend/internal/config"
	"github.com/ticketwatch/backend/internal/models"
	"gorm.io/gorm"
)

var testSettings = config.AffiliateConfig{Rate: 0.5, Fallback: 1.99, Minimum: 20.00}

func createCommission(t *testing.T, db *gorm.DB, partnerID, payerID uuid.UUID, amount float64, period string) *models.Commission {
	t.Helper()
	c := &models.Commission{
		PartnerID:     partnerID,
		SourceUserID:  payerID,
		BillingPeriod: period,
		Amount:        amount,
		Status:        models.CommissionStatusPending,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func TestRequestPayoutBelowMinimum(t *testing.T) {
	db := setupTestDB(t)
	aggregator := NewPayoutAggregator(db, testSettings)

	partner := createPartner(t, db, "p1@x.com", "GOLD50")
	payer := createProfile(t, db, &models.Profile{Email: "u1@x.com"})
	createCommission(t, db, partner.ID, payer.ID, 19.99, "2026-07")

	payout, err := aggregator.RequestPayout(context.Background(), partner.ID, models.PayoutMethodPayPal, "p1@pp.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.Nil(t, payout)

	// Nothing was claimed.
	var pending int64
	require.NoError(t, db.Model(&models.Commission{}).
		Where("status = ?", models.CommissionStatusPending).
		Count(&pending).Error)
	assert.Equal(t, int64(1), pending)

	// One more small commission pushes the sum over the line.
	createCommission(t, db, partner.ID, payer.ID, 0.02, "2026-08")

	payout, err = aggregator.RequestPayout(context.Background(), partner.ID, models.PayoutMethodPayPal, "p1@pp.com")
	require.NoError(t, err)
	require.NotNil(t, payout)
	assert.Equal(t, 20.01, payout.Amount)
	assert.Equal(t, models.PayoutStatusPending, payout.Status)
}

func TestRequestPayoutAtExactMinimum(t *testing.T) {
	db := setupTestDB(t)
	aggregator := NewPayoutAggregator(db, testSettings)

	partner := createPartner(t, db, "p1@x.com", "GOLD50")
	payer := createProfile(t, db, &models.Profile{Email: "u1@x.com"})
	createCommission(t, db, partner.ID, payer.ID, 20.00, "2026-07")

	// The minimum is inclusive: exactly 20.00 pending may be withdrawn.
	payout, err := aggregator.RequestPayout(context.Background(), partner.ID, models.PayoutMethodPayPal, "p1@pp.com")
	require.NoError(t, err)
	require.NotNil(t, payout)
	assert.Equal(t, 20.00, payout.Amount)
}

func TestRequestPayoutClaimsExactlyTheSummedCommissions(t *testing.T) {
	db := setupTestDB(t)
	aggregator := NewPayoutAggregator(db, testSettings)

	partner := createPartner(t, db, "p1@x.com", "GOLD50")
	other := createPartner(t, db, "p2@x.com", "SILVER")
	payer := createProfile(t, db, &models.Profile{Email: "u1@x.com"})

	c1 := createCommission(t, db, partner.ID, payer.ID, 15.00, "2026-07")
	c2 := createCommission(t, db, partner.ID, payer.ID, 10.00, "2026-08")
	otherC := createCommission(t, db, other.ID, payer.ID, 50.00, "2026-08")

	payout, err := aggregator.RequestPayout(context.Background(), partner.ID, models.PayoutMethodStripeConnect, "")
	require.NoError(t, err)
	assert.Equal(t, 25.00, payout.Amount)

	var claimed []models.Commission
	require.NoError(t, db.Where("payout_id = ?", payout.ID).Find(&claimed).Error)
	require.Len(t, claimed, 2)
	for _, c := range claimed {
		assert.Equal(t, models.CommissionStatusRequested, c.Status)
		assert.Contains(t, []uuid.UUID{c1.ID, c2.ID}, c.ID)
	}

	// The other partner's commission is untouched.
	var untouched models.Commission
	require.NoError(t, db.First(&untouched, "id = ?", otherC.ID).Error)
	assert.Equal(t, models.CommissionStatusPending, untouched.Status)
	assert.Nil(t, untouched.PayoutID)

	// A second request finds nothing pending.
	_, err = aggregator.RequestPayout(context.Background(), partner.ID, models.PayoutMethodStripeConnect, "")
	assert.ErrorIs(t, err, ErrBelowMinimum)
}

func TestMarkPaidCascadesToCommissions(t *testing.T) {
	db := setupTestDB(t)
	aggregator := NewPayoutAggregator(db, testSettings)

	partner := createPartner(t, db, "p1@x.com", "GOLD50")
	payer := createProfile(t, db, &models.Profile{Email: "u1@x.com"})
	createCommission(t, db, partner.ID, payer.ID, 25.00, "2026-07")

	payout, err := aggregator.RequestPayout(context.Background(), partner.ID, models.PayoutMethodPayPal, "p1@pp.com")
	require.NoError(t, err)

	paid, err := aggregator.MarkPaid(context.Background(), payout.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	var commissions []models.Commission
	require.NoError(t, db.Where("payout_id = ?", payout.ID).Find(&commissions).Error)
	require.Len(t, commissions, 1)
	assert.Equal(t, models.CommissionStatusPaid, commissions[0].Status)

	// Marking twice is rejected.
	_, err = aggregator.MarkPaid(context.Background(), payout.ID)
	assert.Error(t, err)
}

func TestMarkPaidSurfacesOrphanPayout(t *testing.T) {
	db := setupTestDB(t)
	aggregator := NewPayoutAggregator(db, testSettings)

	partner := createPartner(t, db, "p1@x.com", "GOLD50")
	orphan := &models.Payout{
		PartnerID: partner.ID,
		Amount:    25.00,
		Status:    models.PayoutStatusPending,
		Method:    models.PayoutMethodPayPal,
	}
	require.NoError(t, db.Create(orphan).Error)

	_, err := aggregator.MarkPaid(context.Background(), orphan.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPayoutInconsistent)

	// The payout stays pending for the operator to inspect.
	var reloaded models.Payout
	require.NoError(t, db.First(&reloaded, "id = ?", orphan.ID).Error)
	assert.Equal(t, models.PayoutStatusPending, reloaded.Status)
}
