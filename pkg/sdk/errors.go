package catalogqa

import "github.com/kailas-cloud/catalogqa/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyQuery             = domain.ErrEmptyQuery
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrInvalidFilter          = domain.ErrInvalidFilter
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrIndexUnavailable       = domain.ErrIndexUnavailable
	ErrCompletionFailed       = domain.ErrCompletionFailed
	ErrCorpusMismatch         = domain.ErrCorpusMismatch
)
