package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Submission represents one reimbursement request as it moves through the
// screening pipeline. It is created PENDING, mutated only during the single
// pipeline run that created it, and frozen once Status reaches COMPLETED.
type Submission struct {
	ID               int64           `json:"id"`
	EmployeeID       string          `json:"employee_id"`
	Amount           decimal.Decimal `json:"amount"`
	ExpenseDate      time.Time       `json:"expense_date"` // calendar date, zero time-of-day
	VendorName       string          `json:"vendor_name"`
	Category         string          `json:"category"`
	Description      string          `json:"description"`
	PaymentMode      string          `json:"payment_mode"`
	ReceiptReference string          `json:"receipt_reference"`
	RawExtractedText string          `json:"raw_extracted_text"`
	FraudScore       int             `json:"fraud_score"`
	FraudTier        string          `json:"fraud_tier"`
	FraudReasons     []string        `json:"fraud_reasons"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// StructuredReceiptFields holds the typed fields the AI extraction step pulls
// out of raw OCR text. Every field is optional; a nil field means the
// corresponding scoring sub-check is skipped, never that it failed.
type StructuredReceiptFields struct {
	Amount        *decimal.Decimal `json:"amount"`
	ExpenseDate   *time.Time       `json:"expenseDate"`
	VendorName    *string          `json:"vendorName"`
	PaymentMode   *string          `json:"paymentMode"`
	Address       *string          `json:"address"`
	InvoiceNumber *string          `json:"billNumber"`
	TaxAmount     *decimal.Decimal `json:"taxAmount"`
}

// ScreeningResult is what the pipeline hands back to the transport layer.
type ScreeningResult struct {
	SubmissionID int64    `json:"submission_id"`
	FraudScore   int      `json:"fraud_score"`
	FraudTier    string   `json:"fraud_tier"`
	FraudReasons []string `json:"fraud_reasons"`
}

// AdminSubmissionView is the projection returned by the listing queries.
type AdminSubmissionView struct {
	ID           int64           `json:"id"`
	EmployeeID   string          `json:"employee_id"`
	Amount       decimal.Decimal `json:"amount"`
	ExpenseDate  string          `json:"expense_date"`
	VendorName   string          `json:"vendor_name"`
	Category     string          `json:"category"`
	Status       string          `json:"status"`
	FraudScore   int             `json:"fraud_score"`
	FraudTier    string          `json:"fraud_tier"`
	FraudReasons []string        `json:"fraud_reasons"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ToAdminView projects a stored submission to its admin listing shape.
func (s *Submission) ToAdminView() AdminSubmissionView {
	return AdminSubmissionView{
		ID:           s.ID,
		EmployeeID:   s.EmployeeID,
		Amount:       s.Amount,
		ExpenseDate:  s.ExpenseDate.Format("2006-01-02"),
		VendorName:   s.VendorName,
		Category:     s.Category,
		Status:       s.Status,
		FraudScore:   s.FraudScore,
		FraudTier:    s.FraudTier,
		FraudReasons: s.FraudReasons,
		CreatedAt:    s.CreatedAt,
	}
}
