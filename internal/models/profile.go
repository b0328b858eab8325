package models

// ProfileRole identifies what a profile is allowed to do
type ProfileRole string

const (
	RoleCustomer  ProfileRole = "customer"
	RoleAffiliate ProfileRole = "affiliate"
	RoleAdmin     ProfileRole = "admin"
)

// Profile represents a person known to the system: a paying customer,
// an affiliate partner, or an admin. ReferralCode is only set for
// affiliates; ReferredBy stores the raw token the person signed up or
// paid under and is the permanent attribution record once a commission
// has been earned from it.
type Profile struct {
	Base
	Email       string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PayPalEmail *string     `gorm:"type:varchar(255)" json:"paypal_email,omitempty"`
	FirstName   string      `gorm:"type:varchar(100)" json:"first_name"`
	LastName    string      `gorm:"type:varchar(100)" json:"last_name"`
	Street      string      `gorm:"type:varchar(255)" json:"street"`
	HouseNumber string      `gorm:"type:varchar(20)" json:"house_number"`
	Zip         string      `gorm:"type:varchar(20)" json:"zip"`
	City        string      `gorm:"type:varchar(100)" json:"city"`
	Role        ProfileRole `gorm:"type:varchar(20);not null;default:'customer'" json:"role"`

	// ReferralCode is matched case-insensitively against incoming
	// referral tokens. Unique across all affiliates.
	ReferralCode *string `gorm:"type:varchar(50);uniqueIndex" json:"referral_code,omitempty"`

	// ReferredBy may be another profile's referral code or, in the
	// legacy encoding, that profile's raw UUID.
	ReferredBy *string `gorm:"type:varchar(100)" json:"referred_by,omitempty"`

	StripeCustomerID *string `gorm:"type:varchar(100);index" json:"stripe_customer_id,omitempty"`
}

// IsAdmin reports whether the profile holds the admin role
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
