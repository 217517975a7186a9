package domain

import "errors"

var (
	// ErrEmptyQuery signals a blank query text.
	ErrEmptyQuery = errors.New("empty query")
	// ErrInvalidRequest signals out-of-range query parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidFilter signals a filter document that cannot be decoded.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIndexUnavailable signals a vector index failure.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrCompletionFailed signals a completion provider failure.
	ErrCompletionFailed = errors.New("completion failed")
	// ErrCorpusMismatch signals that the index and the catalog disagree on corpus size.
	ErrCorpusMismatch = errors.New("index and catalog sizes differ")
)
