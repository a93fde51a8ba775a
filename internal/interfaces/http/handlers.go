package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/service"
	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	submissionService *service.SubmissionService
	exportService     *service.ExportService
	logger            *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	submissionService *service.SubmissionService,
	exportService *service.ExportService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		submissionService: submissionService,
		exportService:     exportService,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitExpense handles POST /api/submissions. The request is multipart: the
// receipt under "receipt" plus the declared expense fields as form values.
func (h *Handlers) SubmitExpense(c *gin.Context) {
	req, err := parseSubmitForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	result, err := h.submissionService.Submit(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    result,
	})
}

// GetSubmission handles GET /api/submissions/:id
func (h *Handlers) GetSubmission(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid submission id",
		})
		return
	}

	submission, err := h.submissionService.GetSubmission(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    submission.ToAdminView(),
	})
}

// ListSubmissions handles GET /api/submissions
func (h *Handlers) ListSubmissions(c *gin.Context) {
	views, err := h.submissionService.ListSubmissions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    views,
	})
}

// ListEmployeeSubmissions handles GET /api/employees/:id/submissions
func (h *Handlers) ListEmployeeSubmissions(c *gin.Context) {
	views, err := h.submissionService.ListEmployeeSubmissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    views,
	})
}

// ExportSubmissions handles GET /api/exports/submissions and streams an XLSX
// workbook.
func (h *Handlers) ExportSubmissions(c *gin.Context) {
	workbook, err := h.exportService.ExportSubmissions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("submissions-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		workbook)
}

// respondError maps domain errors to HTTP status codes.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidImage):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrUpstreamFailure):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

func parseSubmitForm(c *gin.Context) (*service.SubmitRequest, error) {
	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		return nil, fmt.Errorf("receipt file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt file")
	}

	amount, err := decimal.NewFromString(c.PostForm("amount"))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", c.PostForm("amount"))
	}

	expenseDate, err := time.Parse("2006-01-02", c.PostForm("expense_date"))
	if err != nil {
		return nil, fmt.Errorf("invalid expense date %q, want YYYY-MM-DD", c.PostForm("expense_date"))
	}

	return &service.SubmitRequest{
		EmployeeID:  c.PostForm("employee_id"),
		Amount:      amount,
		ExpenseDate: expenseDate,
		VendorName:  c.PostForm("vendor_name"),
		Category:    c.PostForm("category"),
		Description: c.PostForm("description"),
		PaymentMode: c.PostForm("payment_mode"),
		FileData:    data,
		Filename:    fileHeader.Filename,
	}, nil
}
