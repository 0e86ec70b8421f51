package domain

import "errors"

var (
	// ErrInvalidInput signals malformed caller input (mismatched lengths, empty query).
	ErrInvalidInput = errors.New("invalid input")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDuplicateID signals an entry id that is already present in the collection.
	ErrDuplicateID = errors.New("duplicate entry id")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrBackendUnavailable signals a storage-layer failure during add/query/delete.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)
