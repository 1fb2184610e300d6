package gaps

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidAnswer        = errors.New("invalid answer")
	ErrQuestionOutOfRange   = errors.New("question index out of range")
	ErrGapClosed            = errors.New("gap is closed")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrDuplicateFingerprint = errors.New("duplicate fingerprint")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeConflict   = "CONFLICT"
	ErrorCodeStorage    = "STORAGE_ERROR"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)
