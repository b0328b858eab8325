package affiliate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ticketwatch/backend/internal/models"
	"gorm.io/gorm"
)

// ErrBelowMinimum rejects a payout request whose pending sum is under
// the configured threshold. User-facing, not a system fault.
var ErrBelowMinimum = errors.New("pending commissions below payout minimum")

// ErrPayoutInconsistent signals that a payout and its linked
// commissions would disagree. The surrounding transaction is rolled
// back and the error surfaced to the admin caller; it is never retried
// automatically.
var ErrPayoutInconsistent = errors.New("payout/commission linkage inconsistent")

// PayoutAggregator batches a partner's pending commissions into payout
// requests and transitions them through requested and paid.
type PayoutAggregator struct {
	db       *gorm.DB
	settings Settings
}

// NewPayoutAggregator creates a new payout aggregator
func NewPayoutAggregator(db *gorm.DB, settings Settings) *PayoutAggregator {
	return &PayoutAggregator{db: db, settings: settings}
}

// RequestPayout sums the partner's pending commissions, enforces the
// minimum, and atomically creates the payout while marking exactly the
// summed commissions as requested. Creating the payout and claiming
// the commissions happen in one transaction so two concurrent requests
// cannot claim the same commission twice.
func (a *PayoutAggregator) RequestPayout(ctx context.Context, partnerID uuid.UUID, method, destination string) (*models.Payout, error) {
	var payout *models.Payout

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []models.Commission
		if err := tx.
			Where("partner_id = ? AND status = ? AND payout_id IS NULL", partnerID, models.CommissionStatusPending).
			Find(&pending).Error; err != nil {
			return fmt.Errorf("failed to load pending commissions: %w", err)
		}

		var sum float64
		for _, c := range pending {
			sum += c.Amount
		}
		sum = RoundAmount(sum)

		if sum < a.settings.PayoutMinimum() {
			return fmt.Errorf("%w: %.2f < %.2f", ErrBelowMinimum, sum, a.settings.PayoutMinimum())
		}

		payout = &models.Payout{
			PartnerID:   partnerID,
			Amount:      sum,
			Status:      models.PayoutStatusPending,
			Method:      method,
			Destination: destination,
			RequestedAt: time.Now(),
		}
		if err := tx.Create(payout).Error; err != nil {
			return fmt.Errorf("failed to create payout: %w", err)
		}

		result := tx.Model(&models.Commission{}).
			Where("partner_id = ? AND status = ? AND payout_id IS NULL", partnerID, models.CommissionStatusPending).
			Updates(map[string]interface{}{
				"status":    models.CommissionStatusRequested,
				"payout_id": payout.ID,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to claim commissions: %w", result.Error)
		}
		if result.RowsAffected != int64(len(pending)) {
			// A concurrent request claimed part of the set between the
			// read and the update. Roll everything back; the payout
			// amount would no longer equal its linked commissions.
			return fmt.Errorf("%w: expected %d commissions, claimed %d",
				ErrPayoutInconsistent, len(pending), result.RowsAffected)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Payout requested: id=%s partner=%s amount=%.2f method=%s",
		payout.ID, partnerID, payout.Amount, method)
	return payout, nil
}

// MarkPaid transitions a pending payout to paid and cascades all
// linked commissions to paid in the same transaction. Admin-triggered
// after the external transfer completed.
func (a *PayoutAggregator) MarkPaid(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payout, "id = ?", payoutID).Error; err != nil {
			return fmt.Errorf("failed to load payout: %w", err)
		}
		if payout.Status != models.PayoutStatusPending {
			return fmt.Errorf("payout %s is already %s", payout.ID, payout.Status)
		}

		result := tx.Model(&models.Commission{}).
			Where("payout_id = ?", payout.ID).
			Update("status", models.CommissionStatusPaid)
		if result.Error != nil {
			return fmt.Errorf("failed to mark commissions paid: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// An orphan payout with no linked commissions means a
			// previous request was torn; surface it to the operator
			// instead of silently marking it paid.
			return fmt.Errorf("%w: payout %s has no linked commissions", ErrPayoutInconsistent, payout.ID)
		}

		now := time.Now()
		payout.Status = models.PayoutStatusPaid
		payout.PaidAt = &now
		if err := tx.Save(&payout).Error; err != nil {
			return fmt.Errorf("failed to update payout status: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Payout marked paid: id=%s partner=%s amount=%.2f", payout.ID, payout.PartnerID, payout.Amount)
	return &payout, nil
}
