package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

// BlobStorage is the external receipt store. Upload is not transactional with
// the database, so the pipeline compensates a successful upload with Delete
// when a later step fails. Delete failures are non-fatal to the caller.
type BlobStorage interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	Delete(ctx context.Context, reference string) error
}

// OCROptions selects OCR behavior; serialized as a small JSON document.
type OCROptions struct {
	Languages []string `json:"languages"`
}

// OCRClient extracts raw text from a receipt image.
type OCRClient interface {
	ExtractText(ctx context.Context, data []byte, filename string, options OCROptions) (string, error)
}

// FieldExtractor structures raw OCR text into typed receipt fields via the
// generative-AI provider. Malformed or empty model output is an error, never
// a silently defaulted result.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, rawText string) (*entity.StructuredReceiptFields, error)
}

// PolicyClient resolves an employee's spending limit from the policy service.
// Retained for the toggled-off policy-limit check.
type PolicyClient interface {
	SpendingLimit(ctx context.Context, employeeID string) (decimal.Decimal, error)
}

// ReceiptRasterizer converts a receipt payload into plain image bytes for
// fingerprinting. Non-PDF payloads pass through unchanged; PDFs are rendered
// from their first page.
type ReceiptRasterizer interface {
	Rasterize(ctx context.Context, data []byte, filename string) ([]byte, error)
}
