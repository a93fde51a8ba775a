package receipt

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

// Rasterizer normalizes receipt payloads for fingerprinting. PDF receipts
// are rendered from their first page via mupdf; image payloads pass through
// untouched so the fingerprint sees the original bytes.
type Rasterizer struct {
	logger *zap.Logger
}

// NewRasterizer creates a new receipt rasterizer
func NewRasterizer(logger *zap.Logger) *Rasterizer {
	return &Rasterizer{logger: logger}
}

// Rasterize returns plain image bytes for the receipt.
func (r *Rasterizer) Rasterize(ctx context.Context, data []byte, filename string) ([]byte, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return data, nil
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		r.logger.Error("Failed to open PDF receipt", zap.String("filename", filename), zap.Error(err))
		return nil, fmt.Errorf("%w: failed to open PDF: %v", entity.ErrInvalidImage, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", entity.ErrInvalidImage)
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to render PDF page: %v", entity.ErrInvalidImage, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode rendered page: %w", err)
	}

	r.logger.Debug("PDF receipt rasterized",
		zap.String("filename", filename),
		zap.Int("page_count", doc.NumPage()),
		zap.Int("size", buf.Len()))

	return buf.Bytes(), nil
}

var _ port.ReceiptRasterizer = (*Rasterizer)(nil)
