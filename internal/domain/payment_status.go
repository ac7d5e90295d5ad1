package domain

import "strings"

// PaymentClass groups the processor's payment statuses by what they mean for
// an order.
type PaymentClass int

const (
	PaymentOther PaymentClass = iota
	PaymentPaid
	PaymentInFlight
	PaymentFailed
)

func (c PaymentClass) String() string {
	switch c {
	case PaymentPaid:
		return "paid"
	case PaymentInFlight:
		return "in_flight"
	case PaymentFailed:
		return "failed"
	default:
		return "other"
	}
}

var paymentClasses = map[string]PaymentClass{
	"finished":  PaymentPaid,
	"confirmed": PaymentPaid,
	"complete":  PaymentPaid,
	"completed": PaymentPaid,
	"paid":      PaymentPaid,

	"confirming":     PaymentInFlight,
	"partially_paid": PaymentInFlight,
	"waiting":        PaymentInFlight,

	"failed":     PaymentFailed,
	"expired":    PaymentFailed,
	"refunded":   PaymentFailed,
	"chargeback": PaymentFailed,
	"canceled":   PaymentFailed,
	"cancelled":  PaymentFailed,
}

// NormalizePaymentStatus trims and lowercases a raw status.
func NormalizePaymentStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func ClassifyPaymentStatus(raw string) PaymentClass {
	if c, ok := paymentClasses[NormalizePaymentStatus(raw)]; ok {
		return c
	}
	return PaymentOther
}
