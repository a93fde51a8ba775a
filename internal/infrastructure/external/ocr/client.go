package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

var trailingJunkRe = regexp.MustCompile(`[\s\x00-\x1f]+$`)

// Client implements port.OCRClient against the HTTP OCR provider. The
// provider takes a multipart request (file + JSON options part) and answers
// with the recognized text under data.stdout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new OCR client
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type ocrResponse struct {
	Data struct {
		Stdout string `json:"stdout"`
	} `json:"data"`
}

// ExtractText sends the receipt to the OCR provider and returns the raw text
// with trailing control characters and whitespace stripped.
func (c *Client) ExtractText(ctx context.Context, data []byte, filename string, options port.OCROptions) (string, error) {
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal OCR options: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	filePart, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	if _, err := filePart.Write(data); err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}

	optionsHeader := textproto.MIMEHeader{}
	optionsHeader.Set("Content-Disposition", `form-data; name="options"`)
	optionsHeader.Set("Content-Type", "application/json")
	optionsPart, err := writer.CreatePart(optionsHeader)
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	if _, err := optionsPart.Write(optionsJSON); err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debug("OCR request sent", zap.String("filename", filename), zap.Int("size", len(data)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("OCR call failed", zap.Error(err))
		return "", fmt.Errorf("%w: OCR call failed: %v", entity.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read OCR response: %v", entity.ErrUpstreamFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("OCR provider returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", payload))
		return "", fmt.Errorf("%w: OCR provider returned status %d", entity.ErrUpstreamFailure, resp.StatusCode)
	}

	var parsed ocrResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("%w: malformed OCR response: %v", entity.ErrUpstreamFailure, err)
	}

	return trailingJunkRe.ReplaceAllString(parsed.Data.Stdout, ""), nil
}

var _ port.OCRClient = (*Client)(nil)
