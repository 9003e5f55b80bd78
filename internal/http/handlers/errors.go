// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and accompany every error response next to
// the human-readable "error" text, so clients can branch on them without
// parsing messages.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "validation_failed",
//	  "error": "Validation failed",
//	  "details": {"currency_code": "is required"}
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeUpstream = "upstream_unavailable"
)

// User-facing error texts.
const (
	msgValidation      = "Validation failed"
	msgCountryNotFound = "Country not found"
	msgCountryExists   = "Country already exists"
	msgImageNotFound   = "Summary image not found"
	msgUpstream        = "External data source unavailable"
	msgInternal        = "Internal server error"
)
