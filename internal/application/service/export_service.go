package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
)

const exportSheet = "Submissions"

var exportHeaders = []string{
	"ID", "Employee", "Amount", "Expense Date", "Vendor",
	"Category", "Status", "Fraud Score", "Fraud Tier", "Fraud Reasons",
}

// ExportService renders screened submissions as an XLSX workbook for the
// finance team.
type ExportService struct {
	submissions port.SubmissionRepository
	logger      *zap.Logger
}

// NewExportService creates a new export service
func NewExportService(submissions port.SubmissionRepository, logger *zap.Logger) *ExportService {
	return &ExportService{
		submissions: submissions,
		logger:      logger,
	}
}

// ExportSubmissions builds a workbook with one row per screened submission,
// newest first.
func (s *ExportService) ExportSubmissions(ctx context.Context) ([]byte, error) {
	submissions, err := s.submissions.List(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create export sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIdx, submission := range submissions {
		values := []interface{}{
			submission.ID,
			submission.EmployeeID,
			submission.Amount.String(),
			submission.ExpenseDate.Format("2006-01-02"),
			submission.VendorName,
			submission.Category,
			submission.Status,
			submission.FraudScore,
			submission.FraudTier,
			strings.Join(submission.FraudReasons, "; "),
		}

		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell name: %w", err)
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	s.logger.Info("Submissions exported", zap.Int("row_count", len(submissions)))

	return buf.Bytes(), nil
}
