// Package errors provides structured error handling for askpile.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, extraction)
//   - 3XX: Capability errors (vector index, embedding, generation)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and extraction I/O errors.
	CategoryIO Category = "IO"
	// CategoryCapability indicates errors from external capabilities
	// (vector index, embedding provider, completion provider).
	CategoryCapability Category = "CAPABILITY"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeInvalidConfiguration = "ERR_101_INVALID_CONFIGURATION"
	ErrCodeConfigNotFound       = "ERR_102_CONFIG_NOT_FOUND"

	// IO errors (200-299)
	ErrCodeExtractionFailed = "ERR_201_EXTRACTION_FAILED"
	ErrCodeFileTooLarge     = "ERR_202_FILE_TOO_LARGE"
	ErrCodeFileNotFound     = "ERR_203_FILE_NOT_FOUND"
	ErrCodeCorruptIndex     = "ERR_204_CORRUPT_INDEX"

	// Capability errors (300-399)
	ErrCodeIndexWrite       = "ERR_301_INDEX_WRITE"
	ErrCodeIndexRead        = "ERR_302_INDEX_READ"
	ErrCodeGenerationFailed = "ERR_303_GENERATION_FAILED"
	ErrCodeEmbeddingFailed  = "ERR_304_EMBEDDING_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidArgument   = "ERR_401_INVALID_ARGUMENT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeEmptyQuestion     = "ERR_403_EMPTY_QUESTION"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeMetadataStore = "ERR_502_METADATA_STORE"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_INVALID_CONFIGURATION")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryCapability
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Fatal errors
	switch code {
	case ErrCodeCorruptIndex:
		return SeverityFatal
	}

	// Retryable capability errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	// Default to error severity
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingFailed, ErrCodeGenerationFailed:
		return true
	default:
		return false
	}
}
