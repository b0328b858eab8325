package affiliate

// Settings provides the affiliate program's numbers to every component
// that needs a rate or a price. config.AffiliateConfig is the canonical
// implementation; components never read these values from anywhere
// else.
type Settings interface {
	// CommissionRate is the fraction of the gross amount paid that is
	// owed to the referring partner.
	CommissionRate() float64
	// FallbackPrice is assumed when a subscription row has no stored
	// price.
	FallbackPrice() float64
	// PayoutMinimum is the smallest pending sum a partner may withdraw.
	PayoutMinimum() float64
}
