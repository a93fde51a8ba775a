package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	hasher := NewTextHasher()

	text := "ACME Supplies Invoice 2024-03-15 Total 125.50"
	first := hasher.Fingerprint(text)
	second := hasher.Fingerprint(text)

	assert.Equal(t, first, second)
	assert.NotZero(t, first)
}

func TestFingerprintBlankInput(t *testing.T) {
	hasher := NewTextHasher()

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"whitespace mix", " \t\n "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Zero(t, hasher.Fingerprint(tt.text))
		})
	}
}

func TestFingerprintIgnoresCaseAndPunctuation(t *testing.T) {
	hasher := NewTextHasher()

	a := hasher.Fingerprint("ACME Supplies, Total: 125.50")
	b := hasher.Fingerprint("acme supplies total 125.50")

	assert.Equal(t, a, b)
}

func TestFingerprintSmallPerturbation(t *testing.T) {
	hasher := NewTextHasher()

	base := "acme supplies invoice number 48213 total 125.50 thank you for shopping with us today please retain this receipt for your records"
	perturbed := "acme supplies invoice number 48214 total 125.50 thank you for shopping with us today please retain this receipt for your records"

	distance := hasher.Distance(hasher.Fingerprint(base), hasher.Fingerprint(perturbed))
	assert.LessOrEqual(t, distance, 10, "one changed token should stay within the similar band")
}

func TestFingerprintUnrelatedTextsDiffer(t *testing.T) {
	hasher := NewTextHasher()

	a := hasher.Fingerprint("acme supplies hardware invoice 125.50 march receipt")
	b := hasher.Fingerprint("grand hotel lodging folio 980.00 september checkout")

	assert.Greater(t, hasher.Distance(a, b), 10)
}

func TestDistance(t *testing.T) {
	hasher := NewTextHasher()

	tests := []struct {
		name string
		a    uint64
		b    uint64
		want int
	}{
		{"identical", 0xdeadbeef, 0xdeadbeef, 0},
		{"one bit", 0b1000, 0b0000, 1},
		{"all bits", 0, ^uint64(0), 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasher.Distance(tt.a, tt.b))
			assert.Equal(t, tt.want, hasher.Distance(tt.b, tt.a))
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "ACME Store", "acme store"},
		{"strips punctuation", "total: $125.50!", "total 125.50"},
		{"collapses whitespace", "a  b\t\tc", "a b c"},
		{"keeps digits and dots", "inv 48213 v1.2", "inv 48213 v1.2"},
		{"trims", "  receipt  ", "receipt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}

func TestTokenWeight(t *testing.T) {
	tests := []struct {
		token string
		want  int
	}{
		{"125.50", 5},
		{"0.99", 5},
		{"03/15/2024", 4},
		{"2024-03-15", 4},
		{"supplies", 2},
		{"acme", 1},
		{"ab12", 1},
		{"48213", 1},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenWeight(tt.token))
		})
	}
}

func TestHashTokenOrderDependent(t *testing.T) {
	assert.NotEqual(t, hashToken("ab"), hashToken("ba"))
}

func TestFingerprintSkipsShortTokens(t *testing.T) {
	hasher := NewTextHasher()

	// Single-character tokens carry no signal, so a text of only those
	// fingerprints to zero.
	assert.Zero(t, hasher.Fingerprint("a b c 1 2 3"))
}
