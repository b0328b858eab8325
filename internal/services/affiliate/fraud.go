package affiliate

import (
	"strings"

	"github.com/ticketwatch/backend/internal/models"
)

// BlockReason identifies which fraud rule blocked an attribution
type BlockReason string

const (
	BlockReasonSameIdentity   BlockReason = "SAME_IDENTITY"
	BlockReasonSameContact    BlockReason = "SAME_CONTACT"
	BlockReasonHouseholdMatch BlockReason = "HOUSEHOLD_MATCH"
)

// FraudRule is one independent predicate over a (payer, partner) pair.
// Rules are evaluated in order; the first match wins.
type FraudRule interface {
	Reason() BlockReason
	Matches(payer, partner *models.Profile) bool
}

// SameIdentity blocks a partner referring their own account
type SameIdentity struct{}

// Reason implements FraudRule
func (SameIdentity) Reason() BlockReason { return BlockReasonSameIdentity }

// Matches implements FraudRule
func (SameIdentity) Matches(payer, partner *models.Profile) bool {
	return partner.ID == payer.ID
}

// SameContact blocks pairs sharing an email address across any of the
// contact fields: partner email vs payer email, partner PayPal email vs
// payer PayPal email, and partner email vs payer PayPal email.
type SameContact struct{}

// Reason implements FraudRule
func (SameContact) Reason() BlockReason { return BlockReasonSameContact }

// Matches implements FraudRule
func (SameContact) Matches(payer, partner *models.Profile) bool {
	if emailsEqual(partner.Email, payer.Email) {
		return true
	}
	if partner.PayPalEmail != nil && payer.PayPalEmail != nil &&
		emailsEqual(*partner.PayPalEmail, *payer.PayPalEmail) {
		return true
	}
	if payer.PayPalEmail != nil && emailsEqual(partner.Email, *payer.PayPalEmail) {
		return true
	}
	return false
}

// HouseholdMatch blocks pairs that look like the same household:
// matching surname and zip code. With RequireStreet set the rule also
// demands a street match and does not fire when either street is
// missing, trading recall for fewer false positives on common
// surnames.
type HouseholdMatch struct {
	RequireStreet bool
}

// Reason implements FraudRule
func (HouseholdMatch) Reason() BlockReason { return BlockReasonHouseholdMatch }

// Matches implements FraudRule
func (r HouseholdMatch) Matches(payer, partner *models.Profile) bool {
	payerName := strings.ToLower(strings.TrimSpace(payer.LastName))
	partnerName := strings.ToLower(strings.TrimSpace(partner.LastName))
	payerZip := strings.TrimSpace(payer.Zip)
	partnerZip := strings.TrimSpace(partner.Zip)

	if payerName == "" || partnerName == "" || payerZip == "" || partnerZip == "" {
		return false
	}
	if payerName != partnerName || payerZip != partnerZip {
		return false
	}

	if r.RequireStreet {
		payerStreet := strings.ToLower(strings.TrimSpace(payer.Street))
		partnerStreet := strings.ToLower(strings.TrimSpace(partner.Street))
		if payerStreet == "" || partnerStreet == "" {
			return false
		}
		return payerStreet == partnerStreet
	}

	return true
}

// FraudGuard runs an ordered rule list over a (payer, partner) pair.
// It is a pure decision function; callers log blocks and must not
// create a commission when blocked.
type FraudGuard struct {
	rules []FraudRule
}

// NewFraudGuard creates a guard with the given rules, evaluated in
// the given order
func NewFraudGuard(rules ...FraudRule) *FraudGuard {
	return &FraudGuard{rules: rules}
}

// DefaultRules returns the standard rule set. The webhook path passes
// requireStreet=true, the repair path false; the asymmetry is kept on
// purpose until the product owner settles on one variant.
func DefaultRules(requireStreet bool) []FraudRule {
	return []FraudRule{
		SameIdentity{},
		SameContact{},
		HouseholdMatch{RequireStreet: requireStreet},
	}
}

// Check evaluates the rules in order and returns the first match
func (g *FraudGuard) Check(payer, partner *models.Profile) (bool, BlockReason) {
	for _, rule := range g.rules {
		if rule.Matches(payer, partner) {
			return true, rule.Reason()
		}
	}
	return false, ""
}

func emailsEqual(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return a == b
}
