package affiliate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/ticketwatch/backend/internal/models"
)

func profileWith(email, lastName, zip, street string) *models.Profile {
	return &models.Profile{
		Base:     models.Base{ID: uuid.New()},
		Email:    email,
		LastName: lastName,
		Zip:      zip,
		Street:   street,
	}
}

func TestFraudGuardSameIdentity(t *testing.T) {
	guard := NewFraudGuard(DefaultRules(true)...)

	payer := profileWith("a@x.com", "Muster", "79111", "Hauptstr.")
	partner := &models.Profile{Base: models.Base{ID: payer.ID}, Email: "other@x.com"}

	blocked, reason := guard.Check(payer, partner)
	assert.True(t, blocked)
	assert.Equal(t, BlockReasonSameIdentity, reason)
}

func TestFraudGuardSameContact(t *testing.T) {
	guard := NewFraudGuard(DefaultRules(true)...)

	t.Run("email vs email, case-insensitive", func(t *testing.T) {
		payer := profileWith("U1@X.com", "", "", "")
		partner := profileWith("u1@x.com", "", "", "")

		blocked, reason := guard.Check(payer, partner)
		assert.True(t, blocked)
		assert.Equal(t, BlockReasonSameContact, reason)
	})

	t.Run("paypal vs paypal", func(t *testing.T) {
		pp := "pay@x.com"
		payer := profileWith("u1@x.com", "", "", "")
		payer.PayPalEmail = &pp
		partner := profileWith("p1@x.com", "", "", "")
		partner.PayPalEmail = &pp

		blocked, reason := guard.Check(payer, partner)
		assert.True(t, blocked)
		assert.Equal(t, BlockReasonSameContact, reason)
	})

	t.Run("partner email vs payer paypal", func(t *testing.T) {
		pp := "p1@x.com"
		payer := profileWith("u1@x.com", "", "", "")
		payer.PayPalEmail = &pp
		partner := profileWith("p1@x.com", "", "", "")

		blocked, reason := guard.Check(payer, partner)
		assert.True(t, blocked)
		assert.Equal(t, BlockReasonSameContact, reason)
	})

	t.Run("empty emails never match", func(t *testing.T) {
		payer := profileWith("u1@x.com", "", "", "")
		partner := profileWith("p1@x.com", "", "", "")

		blocked, _ := guard.Check(payer, partner)
		assert.False(t, blocked)
	})
}

func TestFraudGuardHouseholdMatch(t *testing.T) {
	t.Run("loose blocks on surname and zip alone", func(t *testing.T) {
		guard := NewFraudGuard(DefaultRules(false)...)
		payer := profileWith("u1@x.com", "Muster", "79111", "Bergweg 1")
		partner := profileWith("p1@x.com", " muster ", "79111", "Talstr. 9")

		blocked, reason := guard.Check(payer, partner)
		assert.True(t, blocked)
		assert.Equal(t, BlockReasonHouseholdMatch, reason)
	})

	t.Run("strict requires matching street", func(t *testing.T) {
		guard := NewFraudGuard(DefaultRules(true)...)
		payer := profileWith("u1@x.com", "Muster", "79111", "Bergweg 1")
		partner := profileWith("p1@x.com", "Muster", "79111", "Talstr. 9")

		blocked, _ := guard.Check(payer, partner)
		assert.False(t, blocked)
	})

	t.Run("strict blocks when streets match too", func(t *testing.T) {
		guard := NewFraudGuard(DefaultRules(true)...)
		payer := profileWith("u1@x.com", "Muster", "79111", "Bergweg 1")
		partner := profileWith("p1@x.com", "Muster", "79111", "bergweg 1")

		blocked, reason := guard.Check(payer, partner)
		assert.True(t, blocked)
		assert.Equal(t, BlockReasonHouseholdMatch, reason)
	})

	t.Run("strict does not fire with missing street data", func(t *testing.T) {
		guard := NewFraudGuard(DefaultRules(true)...)
		payer := profileWith("u1@x.com", "Muster", "79111", "")
		partner := profileWith("p1@x.com", "Muster", "79111", "Bergweg 1")

		blocked, _ := guard.Check(payer, partner)
		assert.False(t, blocked)
	})

	t.Run("no block without zip", func(t *testing.T) {
		guard := NewFraudGuard(DefaultRules(false)...)
		payer := profileWith("u1@x.com", "Muster", "", "")
		partner := profileWith("p1@x.com", "Muster", "", "")

		blocked, _ := guard.Check(payer, partner)
		assert.False(t, blocked)
	})
}

func TestFraudGuardPrecedence(t *testing.T) {
	// Same identity wins over contact and household even when all
	// three would match.
	guard := NewFraudGuard(DefaultRules(false)...)
	payer := profileWith("u1@x.com", "Muster", "79111", "")
	partner := &models.Profile{
		Base:     models.Base{ID: payer.ID},
		Email:    "u1@x.com",
		LastName: "Muster",
		Zip:      "79111",
	}

	blocked, reason := guard.Check(payer, partner)
	assert.True(t, blocked)
	assert.Equal(t, BlockReasonSameIdentity, reason)

	// Contact wins over household.
	partner.ID = uuid.New()
	blocked, reason = guard.Check(payer, partner)
	assert.True(t, blocked)
	assert.Equal(t, BlockReasonSameContact, reason)
}

func TestFraudGuardUnrelatedPair(t *testing.T) {
	guard := NewFraudGuard(DefaultRules(true)...)
	payer := profileWith("u1@x.com", "Muster", "79111", "Bergweg 1")
	partner := profileWith("p1@x.com", "Schmidt", "10115", "Allee 3")

	blocked, reason := guard.Check(payer, partner)
	assert.False(t, blocked)
	assert.Equal(t, BlockReason(""), reason)
}
