package receipt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

func TestRasterizePassesThroughImages(t *testing.T) {
	r := NewRasterizer(zap.NewNop())
	data := []byte("raw png bytes")

	tests := []string{"receipt.png", "receipt.jpg", "receipt.JPEG", "scan.gif"}
	for _, filename := range tests {
		t.Run(filename, func(t *testing.T) {
			out, err := r.Rasterize(context.Background(), data, filename)
			require.NoError(t, err)
			assert.Equal(t, data, out, "non-PDF payloads must not be touched")
		})
	}
}

func TestRasterizeRejectsBrokenPDF(t *testing.T) {
	r := NewRasterizer(zap.NewNop())

	_, err := r.Rasterize(context.Background(), []byte("definitely not a pdf"), "receipt.pdf")
	assert.ErrorIs(t, err, entity.ErrInvalidImage)
}
