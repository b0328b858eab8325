package affiliate

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/ticketwatch/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SkipReason explains why no commission row was written. Fraud blocks
// pass the block reason through unchanged.
type SkipReason string

const (
	SkipNoPartner SkipReason = "no_partner"
	SkipDuplicate SkipReason = "duplicate"
)

// LedgerWriter idempotently creates pending commission rows. The
// uniqueness of (partner, payer, billing period) is enforced by the
// database index, not by a read-then-write check, so concurrent
// redelivery of the same payment event cannot double-write.
type LedgerWriter struct {
	db *gorm.DB
}

// NewLedgerWriter creates a new commission ledger writer
func NewLedgerWriter(db *gorm.DB) *LedgerWriter {
	return &LedgerWriter{db: db}
}

// RecordCommission writes a pending commission for a qualifying
// payment. It returns a skip reason instead of a row when there is no
// partner, the fraud guard blocks the pair, or the attribution key
// already exists.
func (w *LedgerWriter) RecordCommission(ctx context.Context, guard *FraudGuard, payer, partner *models.Profile, grossAmount, rate float64, billingPeriod string) (*models.Commission, SkipReason, error) {
	if partner == nil {
		return nil, SkipNoPartner, nil
	}

	if blocked, reason := guard.Check(payer, partner); blocked {
		log.Printf("Commission blocked: partner=%s payer=%s reason=%s", partner.ID, payer.ID, reason)
		return nil, SkipReason(reason), nil
	}

	commission := models.Commission{
		PartnerID:     partner.ID,
		SourceUserID:  payer.ID,
		BillingPeriod: billingPeriod,
		Amount:        RoundAmount(grossAmount * rate),
		Status:        models.CommissionStatusPending,
	}

	result := w.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "partner_id"},
				{Name: "source_user_id"},
				{Name: "billing_period"},
			},
			DoNothing: true,
		}).
		Create(&commission)
	if result.Error != nil {
		return nil, "", fmt.Errorf("failed to create commission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		log.Printf("Commission already recorded: partner=%s payer=%s period=%s", partner.ID, payer.ID, billingPeriod)
		return nil, SkipDuplicate, nil
	}

	log.Printf("Commission created: id=%s partner=%s payer=%s amount=%.2f period=%s",
		commission.ID, partner.ID, payer.ID, commission.Amount, billingPeriod)
	return &commission, "", nil
}

// RoundAmount rounds a monetary amount to 2 decimal places
func RoundAmount(amount float64) float64 {
	return math.Round(amount*100) / 100
}
