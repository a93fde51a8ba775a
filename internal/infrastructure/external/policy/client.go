package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

// Client implements port.PolicyClient against the employee policy service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new policy client
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type limitResponse struct {
	EmployeeID    string `json:"employee_id"`
	SpendingLimit string `json:"spending_limit"`
}

// SpendingLimit fetches the per-day spending limit for one employee.
func (c *Client) SpendingLimit(ctx context.Context, employeeID string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/employees/%s/spending-limit", c.baseURL, url.PathEscape(employeeID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build policy request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Policy service call failed", zap.String("employee_id", employeeID), zap.Error(err))
		return decimal.Zero, fmt.Errorf("%w: policy service call failed: %v", entity.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, fmt.Errorf("%w: no policy for employee %s", entity.ErrNotFound, employeeID)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: policy service returned status %d", entity.ErrUpstreamFailure, resp.StatusCode)
	}

	var parsed limitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed policy response: %v", entity.ErrUpstreamFailure, err)
	}

	limit, err := decimal.NewFromString(parsed.SpendingLimit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed spending limit %q", entity.ErrUpstreamFailure, parsed.SpendingLimit)
	}

	return limit, nil
}

var _ port.PolicyClient = (*Client)(nil)
