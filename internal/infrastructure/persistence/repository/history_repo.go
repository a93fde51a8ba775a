package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

// HistoryRepository implements port.HistoryRepository on sqlite. Fingerprints
// are stored as int64 column values and reinterpreted as uint64 on read.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new history entry
func (r *HistoryRepository) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	query := `
		INSERT INTO request_history (
			source_submission_id, employee_id, vendor_name, amount,
			expense_date, invoice_number, image_fingerprint, text_fingerprint
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entry.SourceSubmissionID,
		entry.EmployeeID,
		entry.VendorName,
		entry.Amount.String(),
		entry.ExpenseDate.Format(dateLayout),
		entry.InvoiceNumber,
		int64(entry.ImageFingerprint),
		int64(entry.TextFingerprint),
	)
	if err != nil {
		r.logger.Error("Failed to append history entry",
			zap.Int64("source_submission_id", entry.SourceSubmissionID),
			zap.Error(err))
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// ExistsVendorDate reports whether any accepted submission shares the vendor
// and expense date.
func (r *HistoryRepository) ExistsVendorDate(ctx context.Context, vendor string, date time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM request_history WHERE vendor_name = ? AND expense_date = ?)`
	return r.exists(ctx, query, vendor, date.Format(dateLayout))
}

// ExistsVendorDateAmount reports whether any accepted submission shares the
// vendor, expense date, and amount.
func (r *HistoryRepository) ExistsVendorDateAmount(ctx context.Context, vendor string, date time.Time, amount decimal.Decimal) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM request_history WHERE vendor_name = ? AND expense_date = ? AND amount = ?)`
	return r.exists(ctx, query, vendor, date.Format(dateLayout), amount.String())
}

func (r *HistoryRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found bool
	if err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		r.logger.Error("History existence query failed", zap.Error(err))
		return false, fmt.Errorf("history existence query failed: %w", err)
	}
	return found, nil
}

// AllImageFingerprints scans every stored image fingerprint. Linear in
// history size; acceptable while the reference set stays small.
func (r *HistoryRepository) AllImageFingerprints(ctx context.Context) ([]uint64, error) {
	return r.allFingerprints(ctx, "image_fingerprint")
}

// AllTextFingerprints scans every stored text fingerprint.
func (r *HistoryRepository) AllTextFingerprints(ctx context.Context) ([]uint64, error) {
	return r.allFingerprints(ctx, "text_fingerprint")
}

func (r *HistoryRepository) allFingerprints(ctx context.Context, column string) ([]uint64, error) {
	query := fmt.Sprintf("SELECT %s FROM request_history", column)

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to scan fingerprints", zap.String("column", column), zap.Error(err))
		return nil, fmt.Errorf("failed to scan fingerprints: %w", err)
	}
	defer rows.Close()

	var fingerprints []uint64
	for rows.Next() {
		var raw int64
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		fingerprints = append(fingerprints, uint64(raw))
	}

	return fingerprints, rows.Err()
}

// AmountsByEmployeeDate returns the accepted amounts one employee submitted
// on a given expense date. Consumed by the policy-limit check.
func (r *HistoryRepository) AmountsByEmployeeDate(ctx context.Context, employeeID string, date time.Time) ([]decimal.Decimal, error) {
	query := `SELECT amount FROM request_history WHERE employee_id = ? AND expense_date = ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, employeeID, date.Format(dateLayout))
	if err != nil {
		r.logger.Error("Failed to query amounts by employee and date", zap.Error(err))
		return nil, fmt.Errorf("failed to query amounts: %w", err)
	}
	defer rows.Close()

	var amounts []decimal.Decimal
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("malformed amount %q: %w", raw, err)
		}
		amounts = append(amounts, amount)
	}

	return amounts, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
