package affiliate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketwatch/backend/internal/models"
)

func TestRecordCommissionCreatesPendingRow(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerWriter(db)
	guard := NewFraudGuard(DefaultRules(true)...)

	partner := createPartner(t, db, "p1@x.com", "GOLD50")
	payer := createProfile(t, db, &models.Profile{Email: "u1@x.com", Zip: "79111", LastName: "Muster"})

	commission, skip, err := ledger.RecordCommission(context.Background(), guard, payer, partner, 9.99, 0.5, "2026-08")
	require.NoError(t, err)
	assert.Empty(t, skip)
	require.NotNil(t, commission)
	assert.Equal(t, models.CommissionStatusPending, commission.Status)
	assert.Equal(t, 5.00, commission.Amount)
	assert.Equal(t, partner.ID, commission.PartnerID)
	assert.Equal(t, payer.ID, commission.SourceUserID)
}

func TestRecordCommissionAmountRounding(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerWriter(db)
	guard := NewFraudGuard(DefaultRules(true)...)
	payer := createProfile(t, db, &models.Profile{Email: "u1@x.com"})

	cases := []struct {
		name   string
		gross  float64
		rate   float64
		period string
		want   float64
	}{
		{"zero rate", 9.99, 0, "p1", 0},
		{"half", 9.99, 0.5, "p2", 5.00},
		{"full", 9.99, 1.0, "p3", 9.99},
		{"a third-ish", 9.99, 0.33, "p4", 3.30},
		{"fallback price at launch rate", 1.99, 0.5, "p5", 0.99},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			partner := createPartner(t, db, tc.name+"@x.com", "CODE-"+tc.period)

			commission, skip, err := ledger.RecordCommission(context.Background(), guard, payer, partner, tc.gross, tc.rate, tc.period)
			require.NoError(t, err)
			assert.Empty(t, skip)
			require.NotNil(t, commission)
			assert.Equal(t, tc.want, commission.Amount)
		})
	}
}

func TestRecordCommissionSkipsWithoutPartner(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerWriter(db)
	guard := NewFraudGuard(DefaultRules(true)...)
	payer := createProfile(t, db, &models.Profile{Email: "u1@x.com"})

	commission, skip, err := ledger.RecordCommission(context.Background(), guard, payer, nil, 9.99, 0.5, "2026-08")
	require.NoError(t, err)
	assert.Nil(t, commission)
	assert.Equal(t, SkipNoPartner, skip)
	assert.Zero(t, commissionCount(t, db))
}

func TestRecordCommissionNeverWritesWhenBlocked(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerWriter(db)
	guard := NewFraudGuard(DefaultRules(true)...)

	pp := "shared@x.com"
	payer := createProfile(t, db, &models.Profile{Email: "u1@x.com", PayPalEmail: &pp})

	cases := []struct {
		name    string
		partner *models.Profile
		reason  BlockReason
	}{
		{
			"same identity",
			payer,
			BlockReasonSameIdentity,
		},
		{
			"same contact",
			createPartner(t, db, "shared@x.com", "C1"),
			BlockReasonSameContact,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			commission, skip, err := ledger.RecordCommission(context.Background(), guard, payer, tc.partner, 100, 1.0, "2026-08")
			require.NoError(t, err)
			assert.Nil(t, commission)
			assert.Equal(t, SkipReason(tc.reason), skip)
		})
	}

	assert.Zero(t, commissionCount(t, db))
}

func TestRecordCommissionDuplicatePeriodIgnored(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerWriter(db)
	guard := NewFraudGuard(DefaultRules(true)...)

	partner := createPartner(t, db, "p1@x.com", "GOLD50")
	payer := createProfile(t, db, &models.Profile{Email: "u1@x.com"})

	first, skip, err := ledger.RecordCommission(context.Background(), guard, payer, partner, 9.99, 0.5, "2026-08")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Empty(t, skip)

	// Redelivered event for the same billing period is a no-op.
	second, skip, err := ledger.RecordCommission(context.Background(), guard, payer, partner, 9.99, 0.5, "2026-08")
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Equal(t, SkipDuplicate, skip)
	assert.Equal(t, int64(1), commissionCount(t, db))

	// The next billing cycle earns a new commission.
	third, skip, err := ledger.RecordCommission(context.Background(), guard, payer, partner, 9.99, 0.5, "2026-09")
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Empty(t, skip)
	assert.Equal(t, int64(2), commissionCount(t, db))
}

func TestRoundAmount(t *testing.T) {
	assert.Equal(t, 5.00, RoundAmount(9.99*0.5))
	assert.Equal(t, 3.30, RoundAmount(3.2967))
	assert.Equal(t, 0.0, RoundAmount(0))
	assert.Equal(t, 20.01, RoundAmount(20.005000001))
}
