package fraud

import (
	"math/bits"
	"regexp"
	"strings"
)

const hashBits = 64

// FNV-1a 64-bit parameters.
const (
	fnvOffsetBasis uint64 = 0xcbf29ce484222325
	fnvPrime       uint64 = 0x100000001b3
)

var (
	moneyTokenRe    = regexp.MustCompile(`^\d+\.\d{2}$`)
	slashDateRe     = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	isoDateRe       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	merchantWordRe  = regexp.MustCompile(`^[a-z]+$`)
	collapseSpaceRe = regexp.MustCompile(`\s+`)
)

// TextHasher produces 64-bit SimHash fingerprints over normalized OCR text.
// The normalization, token hashing, and weighting must stay stable across
// releases: stored fingerprints are only comparable to new ones if every bit
// of this procedure is reproduced exactly.
type TextHasher struct{}

// NewTextHasher creates a new text hasher.
func NewTextHasher() *TextHasher {
	return &TextHasher{}
}

// Fingerprint computes the weighted SimHash of the given OCR text.
// Empty or blank input yields 0.
func (h *TextHasher) Fingerprint(text string) uint64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	tokens := strings.Split(normalizeText(text), " ")

	var vector [hashBits]int
	for _, token := range tokens {
		if len(token) < 2 {
			continue
		}

		hash := hashToken(token)
		weight := tokenWeight(token)

		for i := 0; i < hashBits; i++ {
			if (hash>>uint(i))&1 == 1 {
				vector[i] += weight
			} else {
				vector[i] -= weight
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < hashBits; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// Distance returns the Hamming distance between two fingerprints.
func (h *TextHasher) Distance(a, b uint64) int {
	return hammingDistance(a, b)
}

// hammingDistance counts differing bits between two 64-bit fingerprints.
func hammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// normalizeText lowercases, maps every character outside [a-z0-9. ] to a
// space, collapses whitespace runs, and trims.
func normalizeText(text string) string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.TrimSpace(collapseSpaceRe.ReplaceAllString(b.String(), " "))
}

// hashToken computes the order-dependent FNV-1a hash of a token.
func hashToken(token string) uint64 {
	hash := fnvOffsetBasis
	for _, r := range token {
		hash ^= uint64(r)
		hash *= fnvPrime
	}
	return hash
}

// tokenWeight assigns SimHash weights by token shape: money-like tokens carry
// the dedup signal hardest, then dates, then probable merchant words.
func tokenWeight(token string) int {
	if moneyTokenRe.MatchString(token) {
		return 5
	}
	if slashDateRe.MatchString(token) || isoDateRe.MatchString(token) {
		return 4
	}
	if len(token) > 4 && merchantWordRe.MatchString(token) {
		return 2
	}
	return 1
}
