package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
)

// LocalBlobStorage implements port.BlobStorage on the local filesystem.
// References returned by Upload are paths relative to the base directory and
// are the only handle later pipeline steps (and compensation) hold.
type LocalBlobStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalBlobStorage creates a new local blob store rooted at baseDir
func NewLocalBlobStorage(baseDir string, logger *zap.Logger) port.BlobStorage {
	return &LocalBlobStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Upload persists the receipt bytes under a fresh reference. Empty payloads
// fail fast.
func (s *LocalBlobStorage) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", entity.ErrInvalidInput)
	}

	reference := filepath.Join("receipts", uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	fullPath := filepath.Join(s.baseDir, reference)

	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create storage directory",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return "", fmt.Errorf("%w: failed to create storage directory: %v", entity.ErrUpstreamFailure, err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		s.logger.Error("Failed to write receipt blob",
			zap.String("reference", reference),
			zap.Error(err))
		return "", fmt.Errorf("%w: failed to write blob: %v", entity.ErrUpstreamFailure, err)
	}

	s.logger.Debug("Receipt blob stored",
		zap.String("reference", reference),
		zap.Int("size", len(data)))

	return reference, nil
}

// Delete removes a stored blob. Deleting a reference that no longer exists is
// a no-op.
func (s *LocalBlobStorage) Delete(ctx context.Context, reference string) error {
	fullPath := filepath.Join(s.baseDir, reference)

	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(fullPath); err != nil {
		s.logger.Error("Failed to delete receipt blob",
			zap.String("reference", reference),
			zap.Error(err))
		return fmt.Errorf("%w: failed to delete blob: %v", entity.ErrUpstreamFailure, err)
	}

	s.logger.Debug("Receipt blob deleted", zap.String("reference", reference))
	return nil
}

// validatePath checks that the path stays within baseDir
func (s *LocalBlobStorage) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("%w: reference escapes storage root", entity.ErrInvalidInput)
	}

	return nil
}

var _ port.BlobStorage = (*LocalBlobStorage)(nil)
