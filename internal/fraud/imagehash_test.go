package fraud

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

// gradientPNG renders a synthetic receipt-sized gradient so the perceptual
// hash has structure to latch onto.
func gradientPNG(t *testing.T, width, height int, shift uint8) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x*255)/width) + shift
			img.Set(x, y, color.RGBA{R: v, G: uint8((y * 255) / height), B: v / 2, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageFingerprintDeterministic(t *testing.T) {
	hasher := NewImageHasher()
	data := gradientPNG(t, 64, 64, 0)

	first, err := hasher.Fingerprint(data)
	require.NoError(t, err)
	second, err := hasher.Fingerprint(data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestImageFingerprintSurvivesRescale(t *testing.T) {
	hasher := NewImageHasher()

	original, err := hasher.Fingerprint(gradientPNG(t, 64, 64, 0))
	require.NoError(t, err)
	rescaled, err := hasher.Fingerprint(gradientPNG(t, 128, 128, 0))
	require.NoError(t, err)

	assert.LessOrEqual(t, hasher.Distance(original, rescaled), 10)
}

func TestImageFingerprintInvalidBytes(t *testing.T) {
	hasher := NewImageHasher()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not an image at all")},
		{"truncated png", gradientPNG(t, 32, 32, 0)[:10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hasher.Fingerprint(tt.data)
			assert.ErrorIs(t, err, entity.ErrInvalidImage)
		})
	}
}

func TestImageDistance(t *testing.T) {
	hasher := NewImageHasher()

	assert.Equal(t, 0, hasher.Distance(0xcafe, 0xcafe))
	assert.Equal(t, 64, hasher.Distance(0, ^uint64(0)))
}
