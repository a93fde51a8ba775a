package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

type fakeHistory struct {
	vendorDate       bool
	vendorDateAmount bool
	imageFPs         []uint64
	textFPs          []uint64
	amounts          []decimal.Decimal
	err              error
}

func (f *fakeHistory) ExistsVendorDate(ctx context.Context, vendor string, date time.Time) (bool, error) {
	return f.vendorDate, f.err
}

func (f *fakeHistory) ExistsVendorDateAmount(ctx context.Context, vendor string, date time.Time, amount decimal.Decimal) (bool, error) {
	return f.vendorDateAmount, f.err
}

func (f *fakeHistory) AllImageFingerprints(ctx context.Context) ([]uint64, error) {
	return f.imageFPs, f.err
}

func (f *fakeHistory) AllTextFingerprints(ctx context.Context) ([]uint64, error) {
	return f.textFPs, f.err
}

func (f *fakeHistory) AmountsByEmployeeDate(ctx context.Context, employeeID string, date time.Time) ([]decimal.Decimal, error) {
	return f.amounts, f.err
}

type fakePolicy struct {
	limit decimal.Decimal
	err   error
}

func (f *fakePolicy) SpendingLimit(ctx context.Context, employeeID string) (decimal.Decimal, error) {
	return f.limit, f.err
}

func newTestEngine(history HistoryIndex, policy PolicyReader, cfg Config) *Engine {
	return NewEngine(NewImageHasher(), NewTextHasher(), history, policy, cfg, zap.NewNop())
}

func testSubmission(amount string) *entity.Submission {
	return &entity.Submission{
		EmployeeID:  "emp-1",
		Amount:      decimal.RequireFromString(amount),
		ExpenseDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		VendorName:  "Acme Supplies",
	}
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func scoreWith(t *testing.T, e *Engine, sub *entity.Submission, fields *entity.StructuredReceiptFields) *Result {
	t.Helper()
	result, err := e.Score(context.Background(), sub, fields, "acme supplies 125.50", gradientPNG(t, 64, 64, 0))
	require.NoError(t, err)
	return result
}

func TestScoreCleanSubmission(t *testing.T) {
	engine := newTestEngine(&fakeHistory{}, &fakePolicy{}, Config{})

	result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{
		Amount:      decPtr("100.00"),
		VendorName:  strPtr("Acme Supplies"),
		ExpenseDate: datePtr(2024, 3, 15),
	})

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, entity.TierLow, result.Tier)
	assert.Empty(t, result.Reasons)
}

func TestScoreAmountMismatch(t *testing.T) {
	tests := []struct {
		name       string
		extracted  string
		wantScore  int
		wantReason string
	}{
		{"six percent off", "106.00", 7, "Amount mismatch"},
		{"three percent off", "103.00", 6, "Minor amount mismatch"},
		{"one percent off", "101.00", 0, ""},
		{"exact match", "100.00", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fakeHistory{}, &fakePolicy{}, Config{})

			result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{
				Amount: decPtr(tt.extracted),
			})

			assert.Equal(t, tt.wantScore, result.Score)
			if tt.wantReason != "" {
				assert.Contains(t, result.Reasons, tt.wantReason)
			} else {
				assert.Empty(t, result.Reasons)
			}
		})
	}
}

func TestScoreVendorMismatch(t *testing.T) {
	engine := newTestEngine(&fakeHistory{}, &fakePolicy{}, Config{})

	t.Run("case-insensitive match passes", func(t *testing.T) {
		result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{
			VendorName: strPtr("ACME SUPPLIES"),
		})
		assert.Equal(t, 0, result.Score)
	})

	t.Run("different vendor flags", func(t *testing.T) {
		result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{
			VendorName: strPtr("Globex Corp"),
		})
		assert.Equal(t, 6, result.Score)
		assert.Contains(t, result.Reasons, "Vendor name mismatch")
	})
}

func TestScoreDateMismatch(t *testing.T) {
	tests := []struct {
		name      string
		extracted *time.Time
		wantScore int
	}{
		{"same day", datePtr(2024, 3, 15), 0},
		{"one day off", datePtr(2024, 3, 16), 0},
		{"two days off", datePtr(2024, 3, 17), 7},
		{"earlier by two days", datePtr(2024, 3, 13), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fakeHistory{}, &fakePolicy{}, Config{})

			result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{
				ExpenseDate: tt.extracted,
			})
			assert.Equal(t, tt.wantScore, result.Score)
		})
	}
}

func TestScoreFieldConsistencyCap(t *testing.T) {
	engine := newTestEngine(&fakeHistory{}, &fakePolicy{}, Config{})

	// Every consistency sub-check fires: 7 + 6 + 7.
	result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{
		Amount:      decPtr("110.00"),
		VendorName:  strPtr("Globex Corp"),
		ExpenseDate: datePtr(2024, 4, 1),
	})

	assert.Equal(t, 20, result.Score)
}

func TestScoreAllSignalsAtMaximum(t *testing.T) {
	submissionImage := gradientPNGForTest(t)
	imageFP, err := NewImageHasher().Fingerprint(submissionImage)
	require.NoError(t, err)
	textFP := NewTextHasher().Fingerprint("acme supplies 125.50")

	// History already holds this exact receipt: same vendor, date, and
	// amount, plus identical image and text fingerprints.
	engine := newTestEngine(&fakeHistory{
		vendorDate:       true,
		vendorDateAmount: true,
		imageFPs:         []uint64{imageFP},
		textFPs:          []uint64{textFP},
	}, &fakePolicy{}, Config{})

	// Every structured field contradicts the declaration: 20 + 35 + 25 + 20.
	result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{
		Amount:      decPtr("110.00"),
		VendorName:  strPtr("Globex Corp"),
		ExpenseDate: datePtr(2024, 4, 1),
	})

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, entity.TierConfirmed, result.Tier)
	assert.Equal(t, []string{
		"Amount mismatch",
		"Vendor name mismatch",
		"Expense date mismatch",
		"Duplicate invoice detected",
		"Duplicate receipt image",
		"Duplicate invoice text",
	}, result.Reasons)
}

func TestScoreNilFields(t *testing.T) {
	engine := newTestEngine(&fakeHistory{}, &fakePolicy{}, Config{})

	result := scoreWith(t, engine, testSubmission("100.00"), nil)

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, entity.TierLow, result.Tier)
	assert.Empty(t, result.Reasons)
}

func TestScoreMissingFieldsSkipChecks(t *testing.T) {
	engine := newTestEngine(&fakeHistory{}, &fakePolicy{}, Config{})

	result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{})

	assert.Equal(t, 0, result.Score)
	assert.Empty(t, result.Reasons)
}

func TestScoreExactDuplicate(t *testing.T) {
	t.Run("full triple outranks vendor-date pair", func(t *testing.T) {
		engine := newTestEngine(&fakeHistory{vendorDate: true, vendorDateAmount: true}, &fakePolicy{}, Config{})

		result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{})

		assert.Equal(t, 35, result.Score)
		assert.Equal(t, []string{"Duplicate invoice detected"}, result.Reasons)
		assert.NotContains(t, result.Reasons, "Same Vendor & date detected")
	})

	t.Run("vendor-date pair alone", func(t *testing.T) {
		engine := newTestEngine(&fakeHistory{vendorDate: true}, &fakePolicy{}, Config{})

		result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{})

		assert.Equal(t, 25, result.Score)
		assert.Equal(t, []string{"Same Vendor & date detected"}, result.Reasons)
	})
}

func TestScoreImageNearDuplicate(t *testing.T) {
	hasher := NewImageHasher()
	exact, err := hasher.Fingerprint(gradientPNGForTest(t))
	require.NoError(t, err)

	tests := []struct {
		name       string
		historyFP  uint64
		wantScore  int
		wantReason string
	}{
		{"identical image", exact, 25, "Duplicate receipt image"},
		{"within similar band", exact ^ 0xFF, 15, "Similar receipt image"},
		{"far away", exact ^ 0xFFFFFFFF, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fakeHistory{imageFPs: []uint64{tt.historyFP}}, &fakePolicy{}, Config{})

			result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{})

			assert.Equal(t, tt.wantScore, result.Score)
			if tt.wantReason != "" {
				assert.Contains(t, result.Reasons, tt.wantReason)
			}
		})
	}
}

func TestScoreTextNearDuplicate(t *testing.T) {
	hasher := NewTextHasher()
	exact := hasher.Fingerprint("acme supplies 125.50")

	tests := []struct {
		name       string
		historyFP  uint64
		wantScore  int
		wantReason string
	}{
		{"identical text", exact, 20, "Duplicate invoice text"},
		{"within similar band", exact ^ 0xFF, 10, "Similar invoice text"},
		{"far away", exact ^ 0xFFFFFFFF, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fakeHistory{textFPs: []uint64{tt.historyFP}}, &fakePolicy{}, Config{})

			result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{})

			assert.Equal(t, tt.wantScore, result.Score)
			if tt.wantReason != "" {
				assert.Contains(t, result.Reasons, tt.wantReason)
			}
		})
	}
}

func TestScorePolicyCheckDisabledByDefault(t *testing.T) {
	engine := newTestEngine(
		&fakeHistory{},
		&fakePolicy{limit: decimal.RequireFromString("10.00")},
		Config{},
	)

	// Amount far beyond the limit, but the check is not in the run.
	result := scoreWith(t, engine, testSubmission("5000.00"), &entity.StructuredReceiptFields{})

	assert.Equal(t, 0, result.Score)
}

func TestScorePolicyCheckEnabled(t *testing.T) {
	history := &fakeHistory{
		amounts: []decimal.Decimal{decimal.RequireFromString("80.00")},
	}
	engine := newTestEngine(
		history,
		&fakePolicy{limit: decimal.RequireFromString("150.00")},
		Config{EnablePolicyCheck: true},
	)

	// 100 + 80 accumulated exceeds the 150 ceiling.
	result := scoreWith(t, engine, testSubmission("100.00"), &entity.StructuredReceiptFields{})

	assert.Equal(t, 25, result.Score)
	assert.Contains(t, result.Reasons, "Policy limit exceeded")
}

func TestScoreHistoryFailureAborts(t *testing.T) {
	wantErr := errors.New("db gone")
	engine := newTestEngine(&fakeHistory{err: wantErr}, &fakePolicy{}, Config{})

	_, err := engine.Score(
		context.Background(),
		testSubmission("100.00"),
		&entity.StructuredReceiptFields{},
		"acme",
		gradientPNGForTest(t),
	)

	assert.ErrorIs(t, err, wantErr)
}

func TestScoreUndecodableImageAborts(t *testing.T) {
	engine := newTestEngine(&fakeHistory{}, &fakePolicy{}, Config{})

	_, err := engine.Score(
		context.Background(),
		testSubmission("100.00"),
		&entity.StructuredReceiptFields{},
		"acme",
		[]byte("not an image"),
	)

	assert.ErrorIs(t, err, entity.ErrInvalidImage)
}

func TestResolveTier(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, entity.TierLow},
		{24, entity.TierLow},
		{25, entity.TierMedium},
		{49, entity.TierMedium},
		{50, entity.TierHigh},
		{89, entity.TierHigh},
		{90, entity.TierConfirmed},
		{100, entity.TierConfirmed},
		{130, entity.TierConfirmed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveTier(tt.score), "score %d", tt.score)
	}
}

func TestNearestDistance(t *testing.T) {
	assert.Equal(t, -1, nearestDistance(42, nil))
	assert.Equal(t, 0, nearestDistance(42, []uint64{7, 42, 99}))
	assert.Equal(t, 1, nearestDistance(0b1000, []uint64{0b0000, 0b1100, 0b1111}))
}

func TestDaysApart(t *testing.T) {
	a := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 3, 16, 0, 1, 0, 0, time.UTC)

	// Calendar-day distance, not elapsed hours.
	assert.Equal(t, 1, daysApart(a, b))
	assert.Equal(t, 1, daysApart(b, a))
	assert.Equal(t, 0, daysApart(a, a))
}

// gradientPNGForTest pins the default image used across engine tests.
func gradientPNGForTest(t *testing.T) []byte {
	return gradientPNG(t, 64, 64, 0)
}
