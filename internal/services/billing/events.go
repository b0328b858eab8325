package billing

import (
	"encoding/json"
	"time"
)

// Event types consumed from the payment processor's webhook
const (
	EventCheckoutSessionCompleted    = "checkout.session.completed"
	EventInvoicePaymentSucceeded     = "invoice.payment_succeeded"
	EventCustomerSubscriptionUpdated = "customer.subscription.updated"
	EventCustomerSubscriptionDeleted = "customer.subscription.deleted"
)

// MetadataKeyReferralCode is the checkout-session metadata field that
// carries the referral token a payer checked out under.
const MetadataKeyReferralCode = "referralCode"

// Event is the envelope of an inbound webhook event
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the processor's checkout session object, both as
// webhook payload and as returned by the query API
type CheckoutSession struct {
	ID            string            `json:"id"`
	Customer      string            `json:"customer"`
	CustomerEmail string            `json:"customer_email"`
	Subscription  string            `json:"subscription"`
	AmountTotal   int64             `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
	Created       int64             `json:"created"`
}

// ReferralCode extracts the referral token from session metadata,
// empty when none was recorded at checkout
func (s CheckoutSession) ReferralCode() string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[MetadataKeyReferralCode]
}

// Invoice is the processor's invoice object carried by
// invoice.payment_succeeded. Amounts are integer cents.
type Invoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	AmountPaid   int64  `json:"amount_paid"`
	PeriodStart  int64  `json:"period_start"`
	PeriodEnd    int64  `json:"period_end"`
}

// AmountPaidMajor converts the paid amount from cents to major units
func (i Invoice) AmountPaidMajor() float64 {
	return float64(i.AmountPaid) / 100
}

// BillingPeriod derives the commission attribution period from the
// invoice, one per calendar month of the period start
func (i Invoice) BillingPeriod() string {
	return time.Unix(i.PeriodStart, 0).UTC().Format("2006-01")
}

// SubscriptionObject is the processor's subscription object carried by
// customer.subscription.updated/deleted
type SubscriptionObject struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	Plan              struct {
		Amount int64 `json:"amount"`
	} `json:"plan"`
}
