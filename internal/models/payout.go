package models

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatus represents the lifecycle of a payout
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusPaid      PayoutStatus = "paid"
	PayoutStatusCompleted PayoutStatus = "completed"
)

// Payout methods. The money movement itself happens outside this
// service; we only record where it should go.
const (
	PayoutMethodPayPal        = "paypal"
	PayoutMethodStripeConnect = "stripe_connect"
)

// Payout is a batch withdrawal request for a partner's accumulated
// pending commissions. Amount equals the sum of the commissions that
// reference this payout at creation time.
type Payout struct {
	Base
	PartnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"partner_id"`
	Partner   Profile   `gorm:"foreignKey:PartnerID" json:"-"`

	Amount float64      `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status PayoutStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	// Method selects the payout rail; Destination carries the PayPal
	// email and stays empty for connected Stripe accounts.
	Method      string `gorm:"type:varchar(30);not null" json:"method"`
	Destination string `gorm:"type:varchar(255)" json:"destination"`

	RequestedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"requested_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}
