// Package limits provides centralized size constants and validation functions
// for encoded content, list pages and batch queries.
//
// # Size Hierarchy
//
//   - MaxEncodedContent (1MB): the largest serialized EncodedContent that crosses
//     the engine boundary in either direction.
//
//   - MaxDecompressedContent (8MB): the largest payload produced by inflating
//     compressed content. This bounds memory use when a peer sends a highly
//     compressible payload.
//
//   - MaxPageSize and MaxBatchQueries bound the shape of message listings.
//
// # Validation Functions
//
//	err := limits.ValidateEncodedContent(data)
//	if errors.Is(err, limits.ErrContentTooLarge) {
//	    // reject
//	}
//
// For custom limits use ValidateContentSize:
//
//	err := limits.ValidateContentSize(data, 4096)
package limits
