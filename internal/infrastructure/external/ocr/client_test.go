package ocr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

func TestExtractText(t *testing.T) {
	var gotFilename string
	var gotOptions port.OCROptions

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("receipt bytes"), content)

		optionsValues := r.MultipartForm.Value["options"]
		require.Len(t, optionsValues, 1)
		require.NoError(t, json.Unmarshal([]byte(optionsValues[0]), &gotOptions))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"stdout":"ACME SUPPLIES\nTOTAL 125.50\n"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	text, err := client.ExtractText(
		context.Background(),
		[]byte("receipt bytes"),
		"receipt.png",
		port.OCROptions{Languages: []string{"eng"}},
	)
	require.NoError(t, err)

	assert.Equal(t, "ACME SUPPLIES\nTOTAL 125.50", text)
	assert.Equal(t, "receipt.png", gotFilename)
	assert.Equal(t, []string{"eng"}, gotOptions.Languages)
}

func TestExtractTextProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	_, err := client.ExtractText(context.Background(), []byte("x"), "r.png", port.OCROptions{})
	assert.ErrorIs(t, err, entity.ErrUpstreamFailure)
}

func TestExtractTextMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	_, err := client.ExtractText(context.Background(), []byte("x"), "r.png", port.OCROptions{})
	assert.ErrorIs(t, err, entity.ErrUpstreamFailure)
}

func TestExtractTextUnreachableProvider(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop())

	_, err := client.ExtractText(context.Background(), []byte("x"), "r.png", port.OCROptions{})
	assert.ErrorIs(t, err, entity.ErrUpstreamFailure)
}
