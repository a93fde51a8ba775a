package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

func TestUploadAndDelete(t *testing.T) {
	store := NewLocalBlobStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	reference, err := store.Upload(ctx, []byte("receipt bytes"), "scan.PNG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(reference, "receipts/"))
	assert.True(t, strings.HasSuffix(reference, ".png"), "extension is lowercased")

	require.NoError(t, store.Delete(ctx, reference))
}

func TestUploadPersistsBytes(t *testing.T) {
	baseDir := t.TempDir()
	store := NewLocalBlobStorage(baseDir, zap.NewNop())

	reference, err := store.Upload(context.Background(), []byte("receipt bytes"), "scan.png")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(baseDir, reference))
	require.NoError(t, err)
	assert.Equal(t, []byte("receipt bytes"), data)
}

func TestUploadUniqueReferences(t *testing.T) {
	store := NewLocalBlobStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	first, err := store.Upload(ctx, []byte("a"), "scan.png")
	require.NoError(t, err)
	second, err := store.Upload(ctx, []byte("a"), "scan.png")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestUploadEmptyFile(t *testing.T) {
	store := NewLocalBlobStorage(t.TempDir(), zap.NewNop())

	_, err := store.Upload(context.Background(), nil, "scan.png")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	store := NewLocalBlobStorage(t.TempDir(), zap.NewNop())

	assert.NoError(t, store.Delete(context.Background(), "receipts/never-existed.png"))
}

func TestDeleteRejectsEscapingReference(t *testing.T) {
	store := NewLocalBlobStorage(t.TempDir(), zap.NewNop())

	err := store.Delete(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}
