package affiliate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ticketwatch/backend/internal/models"
	"github.com/ticketwatch/backend/internal/services/billing"
	"gorm.io/gorm"
)

// SessionLister is the slice of the payment-processor API the recovery
// job depends on
type SessionLister interface {
	ListCheckoutSessions(ctx context.Context, customerID string) ([]billing.CheckoutSession, error)
}

// The repair path has always paid the launch terms regardless of the
// configured live rate, and changing it would retroactively alter old
// entitlements. The live webhook path reads Settings instead.
const (
	backfillRate          = 0.5
	backfillFallbackPrice = 1.99
)

// sessionLookupTimeout bounds each per-subscription processor call so
// one hung lookup cannot stall the whole batch.
const sessionLookupTimeout = 10 * time.Second

// BackfillReport is what the admin caller sees: one line per processed
// subscription and the number of commissions created.
type BackfillReport struct {
	Lines []string `json:"lines"`
	Fixed int      `json:"fixed"`
}

func (r *BackfillReport) logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	r.Lines = append(r.Lines, line)
	log.Print(line)
}

// BackfillJob reconstructs missing attribution from the payment
// processor's historical checkout metadata and repairs the commission
// ledger. It is a manual, admin-triggered tool and safe to run
// repeatedly: the ledger's attribution key limits repair to one
// commission per (payer, partner) relationship.
type BackfillJob struct {
	db       *gorm.DB
	resolver *Resolver
	guard    *FraudGuard
	ledger   *LedgerWriter
	sessions SessionLister
}

// NewBackfillJob creates a new recovery job. The guard uses the loose
// household rule (no street requirement), unlike the webhook path.
func NewBackfillJob(db *gorm.DB, sessions SessionLister) *BackfillJob {
	return &BackfillJob{
		db:       db,
		resolver: NewResolver(db),
		guard:    NewFraudGuard(DefaultRules(false)...),
		ledger:   NewLedgerWriter(db),
		sessions: sessions,
	}
}

// Run walks every active or trialing subscription, recovers a missing
// referred_by token from checkout metadata where possible, and writes
// the commission the live path missed. Per-subscription errors become
// warning lines and never abort the batch.
func (j *BackfillJob) Run(ctx context.Context) (*BackfillReport, error) {
	var subs []models.Subscription
	err := j.db.WithContext(ctx).
		Where("status IN ?", []models.SubscriptionStatus{
			models.SubscriptionStatusActive,
			models.SubscriptionStatusTrialing,
		}).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	report := &BackfillReport{}
	for _, sub := range subs {
		j.processSubscription(ctx, &sub, report)
	}

	report.logf("Backfill finished: %d subscriptions processed, %d commissions fixed", len(subs), report.Fixed)
	return report, nil
}

func (j *BackfillJob) processSubscription(ctx context.Context, sub *models.Subscription, report *BackfillReport) {
	var payer models.Profile
	if err := j.db.WithContext(ctx).First(&payer, "id = ?", sub.ProfileID).Error; err != nil {
		report.logf("warning: subscription %s: failed to load profile %s: %v", sub.ID, sub.ProfileID, err)
		return
	}

	token := ""
	if payer.ReferredBy != nil {
		token = *payer.ReferredBy
	}

	if token == "" && sub.StripeCustomerID != "" {
		recovered, err := j.recoverToken(ctx, sub.StripeCustomerID)
		if err != nil {
			report.logf("warning: subscription %s: session lookup failed: %v", sub.ID, err)
			return
		}
		if recovered != "" {
			payer.ReferredBy = &recovered
			if err := j.db.WithContext(ctx).Model(&payer).Update("referred_by", recovered).Error; err != nil {
				report.logf("warning: subscription %s: failed to persist recovered token: %v", sub.ID, err)
				return
			}
			report.logf("recovered referral token %q for payer %s from checkout metadata", recovered, payer.ID)
			token = recovered
		}
	}

	if token == "" {
		report.logf("skipped: subscription %s: payer %s has no referral token", sub.ID, payer.ID)
		return
	}

	partner, err := j.resolver.Resolve(ctx, token, &payer)
	if err != nil {
		report.logf("warning: subscription %s: resolver failed: %v", sub.ID, err)
		return
	}
	if partner == nil {
		report.logf("skipped: subscription %s: token %q resolves to no partner", sub.ID, token)
		return
	}

	// Repair never pays a relationship the live path already monetized.
	// The attribution index only blocks a second backfill row, so any
	// existing row for the pair, whatever its billing period, stops the
	// repair here.
	var existing models.Commission
	err = j.db.WithContext(ctx).
		Where("partner_id = ? AND source_user_id = ?", partner.ID, payer.ID).
		First(&existing).Error
	if err == nil {
		report.logf("skipped: subscription %s: pair payer %s partner %s already has commission %s",
			sub.ID, payer.ID, partner.ID, existing.ID)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		report.logf("warning: subscription %s: commission lookup failed: %v", sub.ID, err)
		return
	}

	price := sub.Price
	if price == 0 {
		price = backfillFallbackPrice
	}

	commission, skip, err := j.ledger.RecordCommission(ctx, j.guard, &payer, partner, price, backfillRate, models.BillingPeriodBackfill)
	if err != nil {
		report.logf("warning: subscription %s: commission write failed: %v", sub.ID, err)
		return
	}
	if skip != "" {
		report.logf("skipped: subscription %s: payer %s partner %s: %s", sub.ID, payer.ID, partner.ID, skip)
		return
	}

	report.Fixed++
	report.logf("fixed: subscription %s: commission %s of %.2f for partner %s", sub.ID, commission.ID, commission.Amount, partner.ID)
}

// recoverToken scans the customer's recent checkout sessions for a
// referral token in their metadata
func (j *BackfillJob) recoverToken(ctx context.Context, customerID string) (string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, sessionLookupTimeout)
	defer cancel()

	sessions, err := j.sessions.ListCheckoutSessions(lookupCtx, customerID)
	if err != nil {
		return "", err
	}

	for _, session := range sessions {
		if code := session.ReferralCode(); code != "" {
			return code, nil
		}
	}
	return "", nil
}
