package entity

// Status constants for Submission
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
)

// Fraud tier constants
const (
	TierLow       = "LOW"
	TierMedium    = "MEDIUM"
	TierHigh      = "HIGH"
	TierConfirmed = "CONFIRMED"
)

// Payment mode constants
const (
	PaymentModeCash   = "CASH"
	PaymentModeCard   = "CARD"
	PaymentModeUPI    = "UPI"
	PaymentModeCredit = "CREDIT"
	PaymentModeDebit  = "DEBIT"
)

// ValidPaymentModes lists the accepted payment mode values.
var ValidPaymentModes = map[string]bool{
	PaymentModeCash:   true,
	PaymentModeCard:   true,
	PaymentModeUPI:    true,
	PaymentModeCredit: true,
	PaymentModeDebit:  true,
}

// HistoryEligible reports whether a submission at the given tier is added to
// the duplicate-reference history.
func HistoryEligible(tier string) bool {
	return tier == TierLow || tier == TierMedium
}
