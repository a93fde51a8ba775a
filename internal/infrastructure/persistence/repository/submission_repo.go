package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

const dateLayout = "2006-01-02"

// SubmissionRepository implements port.SubmissionRepository on sqlite
type SubmissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *sql.DB, logger *zap.Logger) port.SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a PENDING submission and fills in its ID
func (r *SubmissionRepository) Create(ctx context.Context, submission *entity.Submission) error {
	query := `
		INSERT INTO submissions (
			employee_id, amount, expense_date, vendor_name, category,
			description, payment_mode, receipt_reference, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		submission.EmployeeID,
		submission.Amount.String(),
		submission.ExpenseDate.Format(dateLayout),
		submission.VendorName,
		submission.Category,
		submission.Description,
		submission.PaymentMode,
		submission.ReceiptReference,
		submission.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create submission", zap.Error(err))
		return fmt.Errorf("failed to create submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	submission.ID = id
	return nil
}

// Finalize writes the scoring outcome and marks the submission COMPLETED
func (r *SubmissionRepository) Finalize(ctx context.Context, submission *entity.Submission) error {
	reasons, err := json.Marshal(submission.FraudReasons)
	if err != nil {
		return fmt.Errorf("failed to marshal fraud reasons: %w", err)
	}

	query := `
		UPDATE submissions
		SET raw_extracted_text = ?, fraud_score = ?, fraud_tier = ?,
			fraud_reasons = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		submission.RawExtractedText,
		submission.FraudScore,
		submission.FraudTier,
		string(reasons),
		submission.Status,
		submission.ID,
	)
	if err != nil {
		r.logger.Error("Failed to finalize submission", zap.Int64("id", submission.ID), zap.Error(err))
		return fmt.Errorf("failed to finalize submission: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: submission %d", entity.ErrNotFound, submission.ID)
	}

	return nil
}

// GetByID retrieves a single submission
func (r *SubmissionRepository) GetByID(ctx context.Context, id int64) (*entity.Submission, error) {
	query := selectSubmissionColumns + " WHERE id = ?"

	submission, err := scanSubmission(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: submission %d", entity.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get submission", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return submission, nil
}

// List retrieves all submissions, newest first
func (r *SubmissionRepository) List(ctx context.Context) ([]*entity.Submission, error) {
	query := selectSubmissionColumns + " ORDER BY created_at DESC"
	return r.queryMany(ctx, query)
}

// ListByEmployee retrieves one employee's submissions, newest first
func (r *SubmissionRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*entity.Submission, error) {
	query := selectSubmissionColumns + " WHERE employee_id = ? ORDER BY created_at DESC"
	return r.queryMany(ctx, query, employeeID)
}

func (r *SubmissionRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Submission, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list submissions", zap.Error(err))
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*entity.Submission
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, submission)
	}

	return submissions, rows.Err()
}

const selectSubmissionColumns = `
	SELECT id, employee_id, amount, expense_date, vendor_name, category,
		description, payment_mode, receipt_reference, raw_extracted_text,
		fraud_score, fraud_tier, fraud_reasons, status, created_at, updated_at
	FROM submissions`

// rowScanner abstracts *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*entity.Submission, error) {
	var (
		submission  entity.Submission
		amount      string
		expenseDate string
		reasons     string
	)

	err := row.Scan(
		&submission.ID,
		&submission.EmployeeID,
		&amount,
		&expenseDate,
		&submission.VendorName,
		&submission.Category,
		&submission.Description,
		&submission.PaymentMode,
		&submission.ReceiptReference,
		&submission.RawExtractedText,
		&submission.FraudScore,
		&submission.FraudTier,
		&reasons,
		&submission.Status,
		&submission.CreatedAt,
		&submission.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if submission.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("malformed amount %q: %w", amount, err)
	}
	if submission.ExpenseDate, err = time.Parse(dateLayout, expenseDate); err != nil {
		return nil, fmt.Errorf("malformed expense date %q: %w", expenseDate, err)
	}
	if err = json.Unmarshal([]byte(reasons), &submission.FraudReasons); err != nil {
		return nil, fmt.Errorf("malformed fraud reasons: %w", err)
	}

	return &submission, nil
}

var _ port.SubmissionRepository = (*SubmissionRepository)(nil)
