package apperrors

import (
	"errors"
	"fmt"
)

// Error codes carried by DataError and ValidationError
const (
	CodeEmptyTable     = "EMPTY_TABLE"
	CodeTableNotFound  = "TABLE_NOT_FOUND"
	CodeColumnNotFound = "COLUMN_NOT_FOUND"
	CodeDuplicateLink  = "DUPLICATE_LINK"
	CodeLinkNotFound   = "LINK_NOT_FOUND"
	CodeMissingPredict = "MISSING_PREDICT"
)

var (
	ErrEmptyTable     = errors.New("empty table")
	ErrTableNotFound  = errors.New("table not found")
	ErrColumnNotFound = errors.New("column not found")
	ErrDuplicateLink  = errors.New("duplicate link")
	ErrLinkNotFound   = errors.New("link not found")
	ErrMissingPredict = errors.New("missing predict target")
)

var sentinels = map[string]error{
	CodeEmptyTable:     ErrEmptyTable,
	CodeTableNotFound:  ErrTableNotFound,
	CodeColumnNotFound: ErrColumnNotFound,
	CodeDuplicateLink:  ErrDuplicateLink,
	CodeLinkNotFound:   ErrLinkNotFound,
	CodeMissingPredict: ErrMissingPredict,
}

// DataError reports a structural precondition violated by a table's data
type DataError struct {
	Code    string
	Message string
}

func (e *DataError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match the sentinel for the error's code
func (e *DataError) Unwrap() error {
	return sentinels[e.Code]
}

// ValidationError reports an invalid identifier or structural reference
// supplied by the caller
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return sentinels[e.Code]
}

// NewDataError creates a DataError with a formatted message
func NewDataError(code, format string, args ...any) *DataError {
	return &DataError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDataError reports whether err is or wraps a DataError
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
