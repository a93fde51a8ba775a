package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

// FieldExtractor implements port.FieldExtractor using the OpenAI chat API.
// The model receives raw OCR text and must answer with a single JSON object
// matching the receipt field schema.
type FieldExtractor struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewFieldExtractor creates a new OpenAI-backed field extractor. baseURL
// overrides the API endpoint when non-empty, which lets tests and
// OpenAI-compatible gateways stand in for the real service.
func NewFieldExtractor(apiKey, baseURL, model string, temperature float32, logger *zap.Logger) *FieldExtractor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &FieldExtractor{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// extractedFields is the wire shape the model is asked to produce. Amounts
// and dates arrive as JSON strings and are converted after parsing.
type extractedFields struct {
	Amount      *string `json:"amount"`
	ExpenseDate *string `json:"expenseDate"`
	VendorName  *string `json:"vendorName"`
	PaymentMode *string `json:"paymentMode"`
	Address     *string `json:"address"`
	BillNumber  *string `json:"billNumber"`
	TaxAmount   *string `json:"taxAmount"`
}

// ExtractFields asks the model to structure raw OCR text into typed receipt
// fields. Any malformed model output is an upstream failure.
func (e *FieldExtractor) ExtractFields(ctx context.Context, rawText string) (*entity.StructuredReceiptFields, error) {
	prompt := buildExtractionPrompt(rawText)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a receipt data extraction engine. You answer with a single JSON object and nothing else.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		e.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: OpenAI API call failed: %v", entity.ErrUpstreamFailure, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no response from OpenAI", entity.ErrUpstreamFailure)
	}

	content := stripCodeFences(resp.Choices[0].Message.Content)

	var wire extractedFields
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		e.logger.Error("Failed to parse extraction response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("%w: malformed extraction response: %v", entity.ErrUpstreamFailure, err)
	}

	fields, err := wire.toEntity()
	if err != nil {
		e.logger.Error("Extraction response failed field conversion", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstreamFailure, err)
	}

	e.logger.Debug("Receipt fields extracted",
		zap.Bool("has_amount", fields.Amount != nil),
		zap.Bool("has_vendor", fields.VendorName != nil),
		zap.Bool("has_date", fields.ExpenseDate != nil))

	return fields, nil
}

func (w *extractedFields) toEntity() (*entity.StructuredReceiptFields, error) {
	fields := &entity.StructuredReceiptFields{
		VendorName:    emptyToNil(w.VendorName),
		PaymentMode:   emptyToNil(w.PaymentMode),
		Address:       emptyToNil(w.Address),
		InvoiceNumber: emptyToNil(w.BillNumber),
	}

	if s := emptyToNil(w.Amount); s != nil {
		amount, err := decimal.NewFromString(*s)
		if err != nil {
			return nil, fmt.Errorf("malformed amount %q", *s)
		}
		fields.Amount = &amount
	}

	if s := emptyToNil(w.TaxAmount); s != nil {
		tax, err := decimal.NewFromString(*s)
		if err != nil {
			return nil, fmt.Errorf("malformed tax amount %q", *s)
		}
		fields.TaxAmount = &tax
	}

	if s := emptyToNil(w.ExpenseDate); s != nil {
		date, err := parseReceiptDate(*s)
		if err != nil {
			return nil, err
		}
		fields.ExpenseDate = &date
	}

	return fields, nil
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return nil
	}
	return &trimmed
}

var receiptDateLayouts = []string{"2006-01-02", "01/02/2006", "02/01/2006"}

func parseReceiptDate(s string) (time.Time, error) {
	for _, layout := range receiptDateLayouts {
		if date, err := time.Parse(layout, s); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed expense date %q", s)
}

// stripCodeFences removes a surrounding markdown code block if the model
// wrapped its JSON in one despite instructions.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func buildExtractionPrompt(rawText string) string {
	return fmt.Sprintf(`Extract the receipt fields from the OCR text below.

**OCR Text:**
%s

Respond with ONLY a valid JSON object (no markdown, no explanation). The JSON must have this exact structure:
{
  "amount": "total amount as a decimal string, e.g. \"125.50\"",
  "expenseDate": "date in YYYY-MM-DD format",
  "vendorName": "merchant or vendor name",
  "paymentMode": "payment method if visible, e.g. CASH, CARD, UPI",
  "address": "vendor address if visible",
  "billNumber": "invoice or bill number",
  "taxAmount": "tax amount as a decimal string"
}

Use null for any field that is not present in the text. Do not guess or make up values.`, rawText)
}

var _ port.FieldExtractor = (*FieldExtractor)(nil)
