package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/ticketwatch/backend/internal/models"
	"gorm.io/gorm"
)

// SubscriptionSweepJob periodically flips subscriptions that ran past
// their paid period to inactive, so access lookups against the most
// recent row stay honest between webhook deliveries. It never touches
// commissions.
type SubscriptionSweepJob struct {
	db *gorm.DB
}

// NewSubscriptionSweepJob creates a new subscription sweep job
func NewSubscriptionSweepJob(db *gorm.DB) *SubscriptionSweepJob {
	return &SubscriptionSweepJob{db: db}
}

// Schedule registers the sweep with the scheduler
func (j *SubscriptionSweepJob) Schedule(scheduler *gocron.Scheduler) error {
	_, err := scheduler.Every(1).Hour().Do(j.Run)
	if err != nil {
		return fmt.Errorf("failed to schedule subscription sweep: %w", err)
	}
	return nil
}

// Run marks lapsed cancel-at-period-end subscriptions inactive
func (j *SubscriptionSweepJob) Run() {
	result := j.db.Model(&models.Subscription{}).
		Where("status IN ? AND cancel_at_period_end = ? AND current_period_end < ?",
			[]models.SubscriptionStatus{
				models.SubscriptionStatusActive,
				models.SubscriptionStatusTrialing,
			},
			true,
			time.Now(),
		).
		Update("status", models.SubscriptionStatusInactive)
	if result.Error != nil {
		log.Printf("Subscription sweep failed: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("Subscription sweep: %d subscriptions marked inactive", result.RowsAffected)
	}
}
