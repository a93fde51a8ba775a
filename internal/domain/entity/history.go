package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is the compact append-only record of an accepted submission,
// kept purely as reference material for duplicate detection. An entry exists
// if and only if its source submission completed with tier LOW or MEDIUM:
// flagged submissions are excluded so confirmed fraud can never serve as a
// legitimate baseline for later comparisons.
type HistoryEntry struct {
	ID                 int64           `json:"id"`
	SourceSubmissionID int64           `json:"source_submission_id"`
	EmployeeID         string          `json:"employee_id"`
	VendorName         string          `json:"vendor_name"`
	Amount             decimal.Decimal `json:"amount"`
	ExpenseDate        time.Time       `json:"expense_date"`
	InvoiceNumber      string          `json:"invoice_number"`
	ImageFingerprint   uint64          `json:"image_fingerprint"`
	TextFingerprint    uint64          `json:"text_fingerprint"`
	CreatedAt          time.Time       `json:"created_at"`
}
