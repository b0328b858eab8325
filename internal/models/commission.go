package models

import (
	"github.com/google/uuid"
)

// CommissionStatus represents the lifecycle of a commission
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusRequested CommissionStatus = "requested"
	CommissionStatusPaid      CommissionStatus = "paid"
)

// Commission is an amount owed to a partner for one attributed,
// non-fraudulent payment. The composite unique index on
// (source_user_id, partner_id, billing_period) is the idempotency key:
// the live webhook path writes one row per billing cycle, while the
// backfill path always writes the fixed period marker and can therefore
// never add more than one row per relationship. Redelivered webhook
// events hit the index and are ignored.
type Commission struct {
	Base
	PartnerID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_commission_attribution,unique" json:"partner_id"`
	Partner   Profile   `gorm:"foreignKey:PartnerID" json:"-"`

	SourceUserID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_commission_attribution,unique" json:"source_user_id"`
	SourceUser   Profile   `gorm:"foreignKey:SourceUserID" json:"-"`

	// BillingPeriod is the invoice's period start month ("2026-08") on
	// the live path or BillingPeriodBackfill on the repair path.
	BillingPeriod string `gorm:"type:varchar(20);not null;index:idx_commission_attribution,unique" json:"billing_period"`

	Amount   float64          `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status   CommissionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PayoutID *uuid.UUID       `gorm:"type:uuid;index" json:"payout_id,omitempty"`
}

// BillingPeriodBackfill is the period marker the repair job writes so a
// relationship is monetized at most once by repair, ever.
const BillingPeriodBackfill = "backfill"
