package errors

import (
	"errors"
	"fmt"
)

// Standard application errors
var (
	ErrEmptyInput       = errors.New("input is empty or contains only whitespace")
	ErrInvalidJSON      = errors.New("invalid JSON format")
	ErrMultipleJSON     = errors.New("multiple JSON values found at the root, only one is allowed")
	ErrFileNotFound     = errors.New("file not found")
	ErrFileEmpty        = errors.New("file is empty")
	ErrNoInput          = errors.New("no input provided: please specify a file or pipe JSON data to stdin")
	ErrPathNotFound     = errors.New("path not found")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrNotAnArray       = errors.New("value is not an array")
	ErrNotScalar        = errors.New("value is not a scalar")
	ErrInvalidNumber    = errors.New("not a valid number")
	ErrClipboardTimeout = errors.New("clipboard operation timed out")
	ErrSessionNotFound  = errors.New("form session not found")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput     ErrorType = "input"
	ErrorTypeParsing   ErrorType = "parsing"
	ErrorTypePath      ErrorType = "path"
	ErrorTypeIndex     ErrorType = "index"
	ErrorTypeCoercion  ErrorType = "coercion"
	ErrorTypeClipboard ErrorType = "clipboard"
	ErrorTypeExport    ErrorType = "export"
	ErrorTypeOutput    ErrorType = "output"
	ErrorTypeStore     ErrorType = "store"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInput, Message: message, Err: err}
}

// NewParsingError creates a new error related to JSON parsing. It is the only
// error kind meant to be shown to the user next to the text editor.
func NewParsingError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeParsing, Message: message, Err: err}
}

// NewPathError reports a structural mutation addressed at a path that does not resolve.
func NewPathError(path string, err error) *AppError {
	return &AppError{Type: ErrorTypePath, Message: fmt.Sprintf("path %q does not resolve", path), Err: err}
}

// NewIndexError reports an array index outside the array bounds.
func NewIndexError(path string, index, length int) *AppError {
	return &AppError{
		Type:    ErrorTypeIndex,
		Message: fmt.Sprintf("index %d out of range for %q (length %d)", index, path, length),
		Err:     ErrIndexOutOfRange,
	}
}

// NewCoercionError reports a raw field value that cannot be stored as the field's kind.
func NewCoercionError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeCoercion, Message: message, Err: err}
}

// NewClipboardError creates a new error related to clipboard access
func NewClipboardError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeClipboard, Message: message, Err: err}
}

// NewExportError creates a new error related to file export
func NewExportError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeExport, Message: message, Err: err}
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeOutput, Message: message, Err: err}
}

// NewStoreError creates a new error related to session snapshot storage
func NewStoreError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeStore, Message: message, Err: err}
}

// IsUserFacing reports whether err comes from what the user typed and is meant
// to be shown next to the input. Everything else is an operational failure or
// a broken invariant inside the form core.
func IsUserFacing(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeParsing, ErrorTypeCoercion, ErrorTypeInput:
			return true
		}
	}
	return false
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", appErr.Message)
		case ErrorTypeParsing:
			return fmt.Sprintf("Invalid JSON: %s", appErr.Message)
		case ErrorTypePath, ErrorTypeIndex:
			return fmt.Sprintf("Edit error: %s", appErr.Message)
		case ErrorTypeCoercion:
			return fmt.Sprintf("Field error: %s", appErr.Message)
		case ErrorTypeClipboard:
			return fmt.Sprintf("Clipboard error: %s", appErr.Message)
		case ErrorTypeExport:
			return fmt.Sprintf("Export error: %s", appErr.Message)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", appErr.Message)
		case ErrorTypeStore:
			return fmt.Sprintf("Storage error: %s", appErr.Message)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	// Handle standard errors
	if errors.Is(err, ErrEmptyInput) {
		return "Error: The input is empty. Please provide valid JSON data."
	}
	if errors.Is(err, ErrInvalidJSON) {
		return "Error: The input contains invalid JSON. Please check your JSON syntax."
	}
	if errors.Is(err, ErrMultipleJSON) {
		return "Error: Multiple JSON values found. Please provide a single JSON value."
	}
	if errors.Is(err, ErrFileNotFound) {
		return "Error: The specified file could not be found. Please check the file path."
	}
	if errors.Is(err, ErrNoInput) {
		return "Error: No input provided. Please specify a file or pipe JSON data to stdin."
	}
	if errors.Is(err, ErrSessionNotFound) {
		return "Error: The form session does not exist or has expired."
	}

	return fmt.Sprintf("Error: %v", err)
}
