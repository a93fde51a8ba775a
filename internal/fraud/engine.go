package fraud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

// Signal contribution caps and thresholds.
const (
	amountMismatchScore      = 7
	minorAmountMismatchScore = 6
	vendorMismatchScore      = 6
	dateMismatchScore        = 7

	duplicateInvoiceScore = 35
	sameVendorDateScore   = 25

	duplicateImageScore = 25
	similarImageScore   = 15

	duplicateTextScore = 20
	similarTextScore   = 10

	policyViolationScore = 25

	duplicateDistance = 5
	similarDistance   = 10
)

// Score-to-tier boundaries, half-open on the left.
const (
	mediumTierFloor    = 25
	highTierFloor      = 50
	confirmedTierFloor = 90
)

var (
	amountMismatchRatio = decimal.NewFromFloat(0.05)
	minorMismatchRatio  = decimal.NewFromFloat(0.02)
)

// HistoryIndex is the read side of the duplicate-reference history the engine
// queries. The fingerprint scans are linear over all accepted history; an LSH
// or bucketed index can be substituted behind this same contract.
type HistoryIndex interface {
	ExistsVendorDate(ctx context.Context, vendor string, date time.Time) (bool, error)
	ExistsVendorDateAmount(ctx context.Context, vendor string, date time.Time, amount decimal.Decimal) (bool, error)
	AllImageFingerprints(ctx context.Context) ([]uint64, error)
	AllTextFingerprints(ctx context.Context) ([]uint64, error)
	AmountsByEmployeeDate(ctx context.Context, employeeID string, date time.Time) ([]decimal.Decimal, error)
}

// PolicyReader resolves the role-based reimbursement ceiling for an employee.
// Only the policy-limit check consumes it.
type PolicyReader interface {
	SpendingLimit(ctx context.Context, employeeID string) (decimal.Decimal, error)
}

// Input bundles everything one scoring run looks at.
type Input struct {
	Submission *entity.Submission
	Fields     *entity.StructuredReceiptFields
	RawText    string

	// Fingerprints are computed once per run and shared by the near-duplicate
	// checks; the orchestrator reuses them for the history entry.
	ImageFingerprint uint64
	TextFingerprint  uint64
}

// Result is the outcome of one scoring run.
type Result struct {
	Score            int
	Tier             string
	Reasons          []string
	ImageFingerprint uint64
	TextFingerprint  uint64
}

// Scorecard accumulates the additive fraud score and its ordered reasons over
// one engine invocation. The score only ever increases.
type Scorecard struct {
	score   int
	reasons []string
}

// Add records a signal contribution.
func (c *Scorecard) Add(points int, reason string) {
	c.score += points
	c.reasons = append(c.reasons, reason)
}

// Score returns the accumulated score.
func (c *Scorecard) Score() int { return c.score }

// Reasons returns the reasons in the order they were added.
func (c *Scorecard) Reasons() []string { return c.reasons }

// Config toggles optional signal checks.
type Config struct {
	// EnablePolicyCheck wires the policy-limit violation check into the run.
	// Off by default: the check is retained as a pluggable signal but the
	// reference scoring path does not include it.
	EnablePolicyCheck bool
}

// signalCheck is one independent scoring signal. Checks never reduce each
// other's contributions; the engine simply runs them in order.
type signalCheck struct {
	name string
	run  func(ctx context.Context, in *Input, card *Scorecard) error
}

// Engine runs the fraud signal checks over a submission and maps the
// accumulated score to a risk tier. It is stateless across invocations.
type Engine struct {
	imageHasher *ImageHasher
	textHasher  *TextHasher
	history     HistoryIndex
	policy      PolicyReader
	checks      []signalCheck
	logger      *zap.Logger
}

// NewEngine creates a scoring engine with the standard check list. The policy
// check is appended only when cfg.EnablePolicyCheck is set.
func NewEngine(
	imageHasher *ImageHasher,
	textHasher *TextHasher,
	history HistoryIndex,
	policy PolicyReader,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		imageHasher: imageHasher,
		textHasher:  textHasher,
		history:     history,
		policy:      policy,
		logger:      logger,
	}

	e.checks = []signalCheck{
		{name: "field_consistency", run: e.checkFieldConsistency},
		{name: "exact_duplicate", run: e.checkExactDuplicate},
		{name: "image_near_duplicate", run: e.checkImageNearDuplicate},
		{name: "text_near_duplicate", run: e.checkTextNearDuplicate},
	}
	if cfg.EnablePolicyCheck {
		e.checks = append(e.checks, signalCheck{name: "policy_limit", run: e.checkPolicyLimit})
	}

	return e
}

// Score runs every check against the submission and returns the total score,
// tier, and ordered reasons. Missing optional structured fields skip their
// sub-checks and contribute zero; only collaborator failures and undecodable
// images abort the run.
func (e *Engine) Score(
	ctx context.Context,
	submission *entity.Submission,
	fields *entity.StructuredReceiptFields,
	rawText string,
	imageBytes []byte,
) (*Result, error) {
	imageFP, err := e.imageHasher.Fingerprint(imageBytes)
	if err != nil {
		return nil, err
	}

	in := &Input{
		Submission:       submission,
		Fields:           fields,
		RawText:          rawText,
		ImageFingerprint: imageFP,
		TextFingerprint:  e.textHasher.Fingerprint(rawText),
	}

	card := &Scorecard{}
	for _, check := range e.checks {
		if err := check.run(ctx, in, card); err != nil {
			return nil, fmt.Errorf("fraud check %s: %w", check.name, err)
		}
	}

	result := &Result{
		Score:            card.Score(),
		Tier:             ResolveTier(card.Score()),
		Reasons:          card.Reasons(),
		ImageFingerprint: in.ImageFingerprint,
		TextFingerprint:  in.TextFingerprint,
	}

	e.logger.Info("Fraud scoring completed",
		zap.String("employee_id", submission.EmployeeID),
		zap.Int("score", result.Score),
		zap.String("tier", result.Tier),
		zap.Strings("reasons", result.Reasons))

	return result, nil
}

// ResolveTier maps a fraud score to its risk tier. Intervals are half-open:
// a score of exactly 25 is MEDIUM, exactly 50 is HIGH, exactly 90 CONFIRMED.
func ResolveTier(score int) string {
	switch {
	case score < mediumTierFloor:
		return entity.TierLow
	case score < highTierFloor:
		return entity.TierMedium
	case score < confirmedTierFloor:
		return entity.TierHigh
	default:
		return entity.TierConfirmed
	}
}

// checkFieldConsistency compares the structured fields against what the
// employee declared. Max contribution 20.
func (e *Engine) checkFieldConsistency(_ context.Context, in *Input, card *Scorecard) error {
	sub := in.Submission
	fields := in.Fields

	// A nil field set means extraction produced nothing usable; every
	// sub-check treats its field as absent.
	if fields == nil {
		return nil
	}

	if fields.Amount != nil && !sub.Amount.IsZero() {
		diff := fields.Amount.Sub(sub.Amount).Abs().Div(sub.Amount)
		if diff.GreaterThan(amountMismatchRatio) {
			card.Add(amountMismatchScore, "Amount mismatch")
		} else if diff.GreaterThan(minorMismatchRatio) {
			card.Add(minorAmountMismatchScore, "Minor amount mismatch")
		}
	}

	if fields.VendorName != nil && !strings.EqualFold(*fields.VendorName, sub.VendorName) {
		card.Add(vendorMismatchScore, "Vendor name mismatch")
	}

	if fields.ExpenseDate != nil && daysApart(*fields.ExpenseDate, sub.ExpenseDate) > 1 {
		card.Add(dateMismatchScore, "Expense date mismatch")
	}

	return nil
}

// checkExactDuplicate looks for a previously accepted submission with the
// same vendor, date, and amount. Max contribution 35; the weaker
// vendor+date-only signal fires only when the full triple does not match.
func (e *Engine) checkExactDuplicate(ctx context.Context, in *Input, card *Scorecard) error {
	sub := in.Submission

	sameTriple, err := e.history.ExistsVendorDateAmount(ctx, sub.VendorName, sub.ExpenseDate, sub.Amount)
	if err != nil {
		return err
	}
	if sameTriple {
		card.Add(duplicateInvoiceScore, "Duplicate invoice detected")
		return nil
	}

	samePair, err := e.history.ExistsVendorDate(ctx, sub.VendorName, sub.ExpenseDate)
	if err != nil {
		return err
	}
	if samePair {
		card.Add(sameVendorDateScore, "Same Vendor & date detected")
	}

	return nil
}

// checkImageNearDuplicate scans history for a perceptually close receipt
// image. Max contribution 25. Empty history contributes nothing.
func (e *Engine) checkImageNearDuplicate(ctx context.Context, in *Input, card *Scorecard) error {
	fingerprints, err := e.history.AllImageFingerprints(ctx)
	if err != nil {
		return err
	}

	best := nearestDistance(in.ImageFingerprint, fingerprints)
	switch {
	case best < 0:
	case best <= duplicateDistance:
		card.Add(duplicateImageScore, "Duplicate receipt image")
	case best <= similarDistance:
		card.Add(similarImageScore, "Similar receipt image")
	}

	return nil
}

// checkTextNearDuplicate is the textual twin of the image check.
// Max contribution 20.
func (e *Engine) checkTextNearDuplicate(ctx context.Context, in *Input, card *Scorecard) error {
	fingerprints, err := e.history.AllTextFingerprints(ctx)
	if err != nil {
		return err
	}

	best := nearestDistance(in.TextFingerprint, fingerprints)
	switch {
	case best < 0:
	case best <= duplicateDistance:
		card.Add(duplicateTextScore, "Duplicate invoice text")
	case best <= similarDistance:
		card.Add(similarTextScore, "Similar invoice text")
	}

	return nil
}

// checkPolicyLimit compares the employee's cumulative same-day spend against
// their role-based reimbursement ceiling. Max contribution 25. Disabled in
// the default check list; see Config.EnablePolicyCheck.
func (e *Engine) checkPolicyLimit(ctx context.Context, in *Input, card *Scorecard) error {
	sub := in.Submission

	limit, err := e.policy.SpendingLimit(ctx, sub.EmployeeID)
	if err != nil {
		return err
	}

	amounts, err := e.history.AmountsByEmployeeDate(ctx, sub.EmployeeID, sub.ExpenseDate)
	if err != nil {
		return err
	}

	spend := sub.Amount
	for _, amount := range amounts {
		spend = spend.Add(amount)
	}

	if spend.GreaterThan(limit) {
		card.Add(policyViolationScore, "Policy limit exceeded")
	}

	return nil
}

// nearestDistance returns the minimum Hamming distance from fingerprint to
// any element of fingerprints, or -1 when the set is empty.
func nearestDistance(fingerprint uint64, fingerprints []uint64) int {
	best := -1
	for _, other := range fingerprints {
		d := hammingDistance(fingerprint, other)
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

// daysApart returns the absolute calendar-day distance between two dates.
func daysApart(a, b time.Time) int {
	days := epochDay(a) - epochDay(b)
	if days < 0 {
		days = -days
	}
	return int(days)
}

func epochDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
