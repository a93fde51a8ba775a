package fraud

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"

	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

// ImageHasher produces 64-bit perceptual fingerprints from receipt images.
// Recompressed, rescaled, or rephotographed copies of the same receipt land
// within a small Hamming distance of the original; unrelated images sit near
// 32 bits apart.
type ImageHasher struct{}

// NewImageHasher creates a new image hasher.
func NewImageHasher() *ImageHasher {
	return &ImageHasher{}
}

// Fingerprint decodes the image bytes and computes their perceptual hash.
// Returns entity.ErrInvalidImage when the bytes cannot be decoded.
func (h *ImageHasher) Fingerprint(data []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entity.ErrInvalidImage, err)
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("failed to compute perceptual hash: %w", err)
	}

	return hash.GetHash(), nil
}

// Distance returns the Hamming distance between two fingerprints.
func (h *ImageHasher) Distance(a, b uint64) int {
	return hammingDistance(a, b)
}
