package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ticketwatch/backend/internal/cache"
	"github.com/ticketwatch/backend/internal/config"
	"github.com/ticketwatch/backend/internal/models"
	"github.com/ticketwatch/backend/internal/services/affiliate"
	"github.com/ticketwatch/backend/internal/services/billing"
	"github.com/ticketwatch/backend/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// processingDeadline bounds the post-acknowledgement pipeline for one
// inbound event. On expiry the event is abandoned but still
// acknowledged, so the processor does not redeliver forever.
const processingDeadline = 20 * time.Second

// WebhookHandler consumes payment-processor events. Delivery is
// at-least-once; the event journal and the commission attribution
// index make replays harmless.
type WebhookHandler struct {
	db       *gorm.DB
	cfg      *config.Config
	resolver *affiliate.Resolver
	guard    *affiliate.FraudGuard
	ledger   *affiliate.LedgerWriter
	settings affiliate.Settings
	deduper  *cache.EventDeduper
}

// NewWebhookHandler creates a new webhook handler. The fraud guard
// uses the strict household rule (street required), unlike the repair
// path.
func NewWebhookHandler(db *gorm.DB, cfg *config.Config, deduper *cache.EventDeduper) *WebhookHandler {
	return &WebhookHandler{
		db:       db,
		cfg:      cfg,
		resolver: affiliate.NewResolver(db),
		guard:    affiliate.NewFraudGuard(affiliate.DefaultRules(true)...),
		ledger:   affiliate.NewLedgerWriter(db),
		settings: cfg.Affiliate,
		deduper:  deduper,
	}
}

// HandlePaymentEvent receives a payment-processor webhook. Processed
// event types are always acknowledged with 200, even when internal
// processing fails or times out; only malformed or unauthenticated
// deliveries are rejected.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	// Signature check runs before any core logic
	if secret := h.cfg.Stripe.WebhookSecret; secret != "" {
		signature := c.GetHeader("Webhook-Signature")
		if !utils.VerifyHMAC(body, signature, secret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
	}

	var event billing.Event
	if err := json.Unmarshal(body, &event); err != nil || event.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if !h.deduper.FirstDelivery(c.Request.Context(), event.ID) {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	journal := models.WebhookEvent{EventID: event.ID, Type: event.Type}
	result := h.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&journal)
	if result.Error != nil {
		// Journal write failed; process anyway, the attribution index
		// still blocks duplicate commissions.
		log.Printf("Failed to journal event %s: %v", event.ID, result.Error)
	} else if result.RowsAffected == 0 {
		log.Printf("Event %s already journaled, skipping", event.ID)
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	// The request is acknowledged regardless of what happens past this
	// point; the pipeline runs under its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), processingDeadline)
	defer cancel()

	if err := h.process(ctx, &event); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("WARNING: abandoned event %s (%s) after deadline, needs manual follow-up: %v", event.ID, event.Type, err)
		} else {
			log.Printf("Failed to process event %s (%s): %v", event.ID, event.Type, err)
		}
	} else {
		now := time.Now()
		if err := h.db.Model(&models.WebhookEvent{}).
			Where("event_id = ?", event.ID).
			Update("processed_at", now).Error; err != nil {
			log.Printf("Failed to mark event %s processed: %v", event.ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (h *WebhookHandler) process(ctx context.Context, event *billing.Event) error {
	switch event.Type {
	case billing.EventCheckoutSessionCompleted:
		return h.handleCheckoutCompleted(ctx, event)
	case billing.EventInvoicePaymentSucceeded:
		return h.handleInvoicePaid(ctx, event)
	case billing.EventCustomerSubscriptionUpdated, billing.EventCustomerSubscriptionDeleted:
		return h.handleSubscriptionChanged(ctx, event)
	default:
		log.Printf("Ignoring event %s of unhandled type %s", event.ID, event.Type)
		return nil
	}
}

// handleCheckoutCompleted activates the subscription record and pins
// the referral token from checkout metadata onto the payer's profile
func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event *billing.Event) error {
	var session billing.CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	profile, err := h.findPayer(ctx, session.Customer, session.CustomerEmail)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if profile.StripeCustomerID == nil || *profile.StripeCustomerID == "" {
		updates["stripe_customer_id"] = session.Customer
	}
	if code := session.ReferralCode(); code != "" && (profile.ReferredBy == nil || *profile.ReferredBy == "") {
		updates["referred_by"] = code
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update payer profile: %w", err)
		}
	}

	sub := models.Subscription{
		ProfileID:            profile.ID,
		StripeCustomerID:     session.Customer,
		StripeSubscriptionID: session.Subscription,
		Status:               models.SubscriptionStatusActive,
		Price:                float64(session.AmountTotal) / 100,
	}
	if err := h.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", session.Subscription).
		Assign(map[string]interface{}{
			"profile_id":         profile.ID,
			"stripe_customer_id": session.Customer,
			"status":             models.SubscriptionStatusActive,
			"price":              sub.Price,
		}).
		FirstOrCreate(&sub).Error; err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	log.Printf("Checkout completed for profile %s, subscription %s", profile.ID, session.Subscription)
	return nil
}

// handleInvoicePaid is the commission trigger: resolve the payer's
// referral token, run the fraud guard, and write the ledger row for
// this billing period
func (h *WebhookHandler) handleInvoicePaid(ctx context.Context, event *billing.Event) error {
	var invoice billing.Invoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}

	var payer models.Profile
	err := h.db.WithContext(ctx).
		First(&payer, "stripe_customer_id = ?", invoice.Customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Payment for unknown customer %s, no attribution possible", invoice.Customer)
			return nil
		}
		return fmt.Errorf("failed to load payer: %w", err)
	}

	token := ""
	if payer.ReferredBy != nil {
		token = *payer.ReferredBy
	}

	partner, err := h.resolver.Resolve(ctx, token, &payer)
	if err != nil {
		// A resolver failure must not abort payment processing.
		log.Printf("Attribution lookup failed for payer %s, continuing without partner: %v", payer.ID, err)
		partner = nil
	}

	_, skip, err := h.ledger.RecordCommission(ctx, h.guard, &payer, partner,
		invoice.AmountPaidMajor(), h.settings.CommissionRate(), invoice.BillingPeriod())
	if err != nil {
		return fmt.Errorf("failed to record commission: %w", err)
	}
	if skip != "" {
		log.Printf("No commission for invoice %s: %s", invoice.ID, skip)
	}

	return nil
}

// handleSubscriptionChanged syncs status and period; no commission
// logic runs here
func (h *WebhookHandler) handleSubscriptionChanged(ctx context.Context, event *billing.Event) error {
	var obj billing.SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return fmt.Errorf("failed to parse subscription object: %w", err)
	}

	status := mapSubscriptionStatus(obj.Status)
	if event.Type == billing.EventCustomerSubscriptionDeleted {
		status = models.SubscriptionStatusCanceled
	}

	periodEnd := time.Unix(obj.CurrentPeriodEnd, 0).UTC()
	result := h.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", obj.ID).
		Updates(map[string]interface{}{
			"status":               status,
			"cancel_at_period_end": obj.CancelAtPeriodEnd,
			"current_period_end":   periodEnd,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to sync subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		log.Printf("Subscription sync for unknown subscription %s", obj.ID)
	}

	return nil
}

// findPayer locates the profile for a checkout by processor customer
// id first, then by email
func (h *WebhookHandler) findPayer(ctx context.Context, customerID, email string) (*models.Profile, error) {
	var profile models.Profile

	err := h.db.WithContext(ctx).First(&profile, "stripe_customer_id = ?", customerID).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up payer by customer id: %w", err)
	}

	if err := h.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to look up payer by email: %w", err)
	}
	return &profile, nil
}

func mapSubscriptionStatus(status string) models.SubscriptionStatus {
	switch status {
	case "active":
		return models.SubscriptionStatusActive
	case "trialing":
		return models.SubscriptionStatusTrialing
	case "canceled":
		return models.SubscriptionStatusCanceled
	default:
		return models.SubscriptionStatusInactive
	}
}
