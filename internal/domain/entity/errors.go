package entity

import "errors"

// Pipeline error taxonomy. Every failure is terminal for the submission being
// processed; nothing is retried inside the core.
var (
	// ErrInvalidInput marks rejected caller input (empty file, unparsable date).
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamFailure marks a failed call to storage, OCR, or the AI
	// extraction provider, including malformed AI JSON.
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrInvalidImage marks receipt bytes that cannot be decoded as an image.
	ErrInvalidImage = errors.New("invalid image")

	// ErrNotFound marks a referenced entity missing in a collaborator service.
	ErrNotFound = errors.New("not found")
)
