package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

// Subscription is one billing relationship for a payer, mirrored from
// the payment processor. Access checks always take the most recent row
// for a profile; older rows are history. Subscriptions never feed
// commissions directly - the trigger is a successful payment event.
type Subscription struct {
	Base
	ProfileID uuid.UUID `gorm:"type:uuid;index;not null" json:"profile_id"`
	Profile   Profile   `gorm:"foreignKey:ProfileID" json:"-"`

	StripeCustomerID     string `gorm:"type:varchar(100);index" json:"stripe_customer_id"`
	StripeSubscriptionID string `gorm:"type:varchar(100);index" json:"stripe_subscription_id"`

	Status            SubscriptionStatus `gorm:"type:varchar(20);not null" json:"status"`
	Price             float64            `gorm:"type:decimal(20,2)" json:"price"`
	CurrentPeriodEnd  *time.Time         `json:"current_period_end"`
	CancelAtPeriodEnd bool               `gorm:"default:false" json:"cancel_at_period_end"`
}
