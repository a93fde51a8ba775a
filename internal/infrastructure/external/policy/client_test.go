package policy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

func TestSpendingLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/employees/emp-1/spending-limit", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"employee_id": "emp-1", "spending_limit": "1500.00"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	limit, err := client.SpendingLimit(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "1500", limit.String())
}

func TestSpendingLimitUnknownEmployee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	_, err := client.SpendingLimit(context.Background(), "ghost")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSpendingLimitServiceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	_, err := client.SpendingLimit(context.Background(), "emp-1")
	assert.ErrorIs(t, err, entity.ErrUpstreamFailure)
}

func TestSpendingLimitMalformedValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"employee_id": "emp-1", "spending_limit": "lots"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	_, err := client.SpendingLimit(context.Background(), "emp-1")
	assert.ErrorIs(t, err, entity.ErrUpstreamFailure)
}
