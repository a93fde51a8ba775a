package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
	"github.com/sentinel-fin/reimbursement-service/internal/fraud"
)

// FraudScorer is the scoring engine as the pipeline sees it.
type FraudScorer interface {
	Score(
		ctx context.Context,
		submission *entity.Submission,
		fields *entity.StructuredReceiptFields,
		rawText string,
		imageBytes []byte,
	) (*fraud.Result, error)
}

// SubmitRequest carries one employee submission into the screening pipeline.
type SubmitRequest struct {
	EmployeeID  string
	Amount      decimal.Decimal
	ExpenseDate time.Time
	VendorName  string
	Category    string
	Description string
	PaymentMode string

	FileData []byte
	Filename string
}

// compensation is one recorded undo step. Steps are executed in reverse
// order when a later pipeline step fails; their own failures are logged and
// swallowed so the original error survives.
type compensation struct {
	name string
	run  func(ctx context.Context) error
}

// SubmissionService orchestrates the screening pipeline: store the receipt,
// record the submission, run OCR and field extraction, score, finalize, and
// index the accepted submission for future duplicate checks.
type SubmissionService struct {
	submissions port.SubmissionRepository
	history     port.HistoryRepository
	txManager   port.TransactionManager
	blobs       port.BlobStorage
	ocr         port.OCRClient
	extractor   port.FieldExtractor
	rasterizer  port.ReceiptRasterizer
	engine      FraudScorer
	ocrOptions  port.OCROptions
	logger      *zap.Logger
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	submissions port.SubmissionRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	blobs port.BlobStorage,
	ocr port.OCRClient,
	extractor port.FieldExtractor,
	rasterizer port.ReceiptRasterizer,
	engine FraudScorer,
	logger *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissions: submissions,
		history:     history,
		txManager:   txManager,
		blobs:       blobs,
		ocr:         ocr,
		extractor:   extractor,
		rasterizer:  rasterizer,
		engine:      engine,
		ocrOptions:  port.OCROptions{Languages: []string{"eng"}},
		logger:      logger,
	}
}

// Submit runs the full screening pipeline for one reimbursement request.
// The receipt upload happens outside the database transaction and is
// compensated with a best-effort delete when any later step fails; everything
// from the PENDING insert to the history append commits atomically.
func (s *SubmissionService) Submit(ctx context.Context, req *SubmitRequest) (*entity.ScreeningResult, error) {
	if err := validateSubmitRequest(req); err != nil {
		return nil, err
	}

	s.logger.Info("Screening pipeline started",
		zap.String("employee_id", req.EmployeeID),
		zap.String("vendor", req.VendorName),
		zap.String("amount", req.Amount.String()))

	var compensations []compensation

	reference, err := s.blobs.Upload(ctx, req.FileData, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}
	compensations = append(compensations, compensation{
		name: "delete_receipt_blob",
		run: func(ctx context.Context) error {
			return s.blobs.Delete(ctx, reference)
		},
	})

	submission := &entity.Submission{
		EmployeeID:       req.EmployeeID,
		Amount:           req.Amount,
		ExpenseDate:      req.ExpenseDate,
		VendorName:       req.VendorName,
		Category:         req.Category,
		Description:      req.Description,
		PaymentMode:      req.PaymentMode,
		ReceiptReference: reference,
		Status:           entity.StatusPending,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.runScreening(txCtx, submission, req)
	})
	if err != nil {
		s.compensate(ctx, compensations)
		return nil, err
	}

	s.logger.Info("Screening pipeline completed",
		zap.Int64("submission_id", submission.ID),
		zap.Int("fraud_score", submission.FraudScore),
		zap.String("fraud_tier", submission.FraudTier))

	return &entity.ScreeningResult{
		SubmissionID: submission.ID,
		FraudScore:   submission.FraudScore,
		FraudTier:    submission.FraudTier,
		FraudReasons: submission.FraudReasons,
	}, nil
}

// runScreening is the transactional tail of the pipeline. The submission row,
// its scoring outcome, and the history entry commit or roll back together, so
// a half-screened submission never becomes visible.
func (s *SubmissionService) runScreening(ctx context.Context, submission *entity.Submission, req *SubmitRequest) error {
	if err := s.submissions.Create(ctx, submission); err != nil {
		return err
	}

	rawText, err := s.ocr.ExtractText(ctx, req.FileData, req.Filename, s.ocrOptions)
	if err != nil {
		return fmt.Errorf("text extraction failed: %w", err)
	}

	fields, err := s.extractor.ExtractFields(ctx, rawText)
	if err != nil {
		return fmt.Errorf("field extraction failed: %w", err)
	}

	imageBytes, err := s.rasterizer.Rasterize(ctx, req.FileData, req.Filename)
	if err != nil {
		return err
	}

	result, err := s.engine.Score(ctx, submission, fields, rawText, imageBytes)
	if err != nil {
		return err
	}

	submission.RawExtractedText = rawText
	submission.FraudScore = result.Score
	submission.FraudTier = result.Tier
	submission.FraudReasons = result.Reasons
	submission.Status = entity.StatusCompleted

	if err := s.submissions.Finalize(ctx, submission); err != nil {
		return err
	}

	if !entity.HistoryEligible(result.Tier) {
		s.logger.Info("Submission excluded from duplicate-reference history",
			zap.Int64("submission_id", submission.ID),
			zap.String("fraud_tier", result.Tier))
		return nil
	}

	entry := &entity.HistoryEntry{
		SourceSubmissionID: submission.ID,
		EmployeeID:         submission.EmployeeID,
		VendorName:         submission.VendorName,
		Amount:             submission.Amount,
		ExpenseDate:        submission.ExpenseDate,
		ImageFingerprint:   result.ImageFingerprint,
		TextFingerprint:    result.TextFingerprint,
	}
	if fields.InvoiceNumber != nil {
		entry.InvoiceNumber = *fields.InvoiceNumber
	}

	return s.history.Append(ctx, entry)
}

// compensate runs recorded undo steps in reverse order. Failures are logged
// and never override the pipeline error that triggered compensation.
func (s *SubmissionService) compensate(ctx context.Context, compensations []compensation) {
	for i := len(compensations) - 1; i >= 0; i-- {
		step := compensations[i]
		if err := step.run(ctx); err != nil {
			s.logger.Error("Compensation step failed",
				zap.String("step", step.name),
				zap.Error(err))
		}
	}
}

// GetSubmission retrieves one submission by ID.
func (s *SubmissionService) GetSubmission(ctx context.Context, id int64) (*entity.Submission, error) {
	return s.submissions.GetByID(ctx, id)
}

// ListSubmissions returns every screened submission as its admin projection,
// newest first.
func (s *SubmissionService) ListSubmissions(ctx context.Context) ([]entity.AdminSubmissionView, error) {
	submissions, err := s.submissions.List(ctx)
	if err != nil {
		return nil, err
	}
	return toAdminViews(submissions), nil
}

// ListEmployeeSubmissions returns one employee's submissions, newest first.
func (s *SubmissionService) ListEmployeeSubmissions(ctx context.Context, employeeID string) ([]entity.AdminSubmissionView, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("%w: employee id is required", entity.ErrInvalidInput)
	}

	submissions, err := s.submissions.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return toAdminViews(submissions), nil
}

func toAdminViews(submissions []*entity.Submission) []entity.AdminSubmissionView {
	views := make([]entity.AdminSubmissionView, 0, len(submissions))
	for _, submission := range submissions {
		views = append(views, submission.ToAdminView())
	}
	return views
}

func validateSubmitRequest(req *SubmitRequest) error {
	if req.EmployeeID == "" {
		return fmt.Errorf("%w: employee id is required", entity.ErrInvalidInput)
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be positive", entity.ErrInvalidInput)
	}
	if req.ExpenseDate.IsZero() {
		return fmt.Errorf("%w: expense date is required", entity.ErrInvalidInput)
	}
	if req.VendorName == "" {
		return fmt.Errorf("%w: vendor name is required", entity.ErrInvalidInput)
	}
	if req.PaymentMode != "" && !entity.ValidPaymentModes[req.PaymentMode] {
		return fmt.Errorf("%w: invalid payment mode %q", entity.ErrInvalidInput, req.PaymentMode)
	}
	if len(req.FileData) == 0 {
		return fmt.Errorf("%w: receipt file is required", entity.ErrInvalidInput)
	}
	return nil
}
