// Package limits provides centralized size limits for encoded content.
// This ensures consistent validation across the pipeline, the message store
// facade and the outbox.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxEncodedContent is the largest serialized EncodedContent accepted
	// from or handed to the messaging engine (1MB).
	MaxEncodedContent = 1024 * 1024

	// MaxDecompressedContent caps the output of inflating a compressed
	// payload. Compressed content that expands past this is rejected.
	MaxDecompressedContent = 8 * MaxEncodedContent

	// DefaultCompressionThreshold is the payload size at which the pipeline
	// starts compressing when compression is configured.
	DefaultCompressionThreshold = 1024

	// MaxPageSize is the largest page a single list query may request.
	// Zero means "engine default" and is always accepted.
	MaxPageSize = 10000

	// MaxBatchQueries limits the number of sub-requests in one batch listing.
	MaxBatchQueries = 100
)

var (
	// ErrContentEmpty indicates an empty payload was provided
	ErrContentEmpty = errors.New("empty content")

	// ErrContentTooLarge indicates a payload exceeds its size limit
	ErrContentTooLarge = errors.New("content too large")

	// ErrTooManyQueries indicates a batch listing exceeds MaxBatchQueries
	ErrTooManyQueries = errors.New("too many queries")
)

// ValidateContentSize validates a payload against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateContentSize(data []byte, maxSize int) error {
	if len(data) == 0 {
		return ErrContentEmpty
	}
	if len(data) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrContentTooLarge, len(data), maxSize)
	}
	return nil
}

// ValidateEncodedContent validates serialized content against MaxEncodedContent.
func ValidateEncodedContent(data []byte) error {
	if len(data) == 0 {
		return ErrContentEmpty
	}
	if len(data) > MaxEncodedContent {
		return fmt.Errorf("%w: encoded size %d exceeds limit %d", ErrContentTooLarge, len(data), MaxEncodedContent)
	}
	return nil
}

// ValidatePageSize validates a requested page size. Zero is accepted and
// leaves the page size to the engine.
func ValidatePageSize(pageSize int) error {
	if pageSize < 0 {
		return fmt.Errorf("page size %d must not be negative", pageSize)
	}
	if pageSize > MaxPageSize {
		return fmt.Errorf("page size %d exceeds limit %d", pageSize, MaxPageSize)
	}
	return nil
}

// ValidateBatchSize validates the number of queries in a batch listing.
func ValidateBatchSize(count int) error {
	if count > MaxBatchQueries {
		return fmt.Errorf("%w: %d queries exceeds limit %d", ErrTooManyQueries, count, MaxBatchQueries)
	}
	return nil
}
