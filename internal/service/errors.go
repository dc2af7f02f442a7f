package service

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateRating is returned when a session already rated the item.
	ErrDuplicateRating = errors.New("duplicate rating")
	ErrItemNotFound    = errors.New("media not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrReportNotFound  = errors.New("report not found")
	ErrAdminNotFound   = errors.New("admin not found")

	// ErrFeatureDisabled is returned when a settings toggle turns an operation off.
	ErrFeatureDisabled = errors.New("feature disabled")
	// ErrUploadLimit is returned when upload_max_total or upload_max_mb rejects a submission.
	ErrUploadLimit = errors.New("upload limit reached")
)

// ValidationError rejects malformed input before any mutation happens.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(code, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
