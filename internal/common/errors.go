package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Stage   string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	prefix := e.Code
	if e.Stage != "" {
		prefix = e.Stage + ": " + e.Code
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeConfig                  = "CONFIG_ERROR"
	CodeUnsupportedFormat       = "UNSUPPORTED_FORMAT"
	CodeExtractionFailed        = "EXTRACTION_FAILED"
	CodeEmptyExtraction         = "EMPTY_EXTRACTION"
	CodeStructuringParse        = "STRUCTURING_PARSE_ERROR"
	CodeInvalidStructuredOutput = "INVALID_STRUCTURED_OUTPUT"
	CodeCompletionFailed        = "COMPLETION_FAILED"
	CodeTimeout                 = "TIMEOUT"
	CodeCancelled               = "CANCELLED"
	CodeStorage                 = "STORAGE_ERROR"
	CodeInternal                = "INTERNAL"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	ErrUnsupportedFormat       = errors.New("unsupported format")
	ErrExtractionFailed        = errors.New("extraction failed")
	ErrEmptyExtraction         = errors.New("empty extraction")
	ErrStructuringParse        = errors.New("structuring parse error")
	ErrInvalidStructuredOutput = errors.New("invalid structured output")
	ErrCompletionFailed        = errors.New("completion failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewStageError wraps a pipeline failure with the stage it came from and a code derived from err.
func NewStageError(stage string, err error) *AppError {
	return &AppError{
		Code:    CodeOf(err),
		Stage:   stage,
		Message: stage + " stage failed",
		Cause:   err,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf maps an error chain onto an error code.
func CodeOf(err error) string {
	var appErr *AppError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.Is(err, ErrUnsupportedFormat):
		return CodeUnsupportedFormat
	case errors.Is(err, ErrEmptyExtraction):
		return CodeEmptyExtraction
	case errors.Is(err, ErrExtractionFailed):
		return CodeExtractionFailed
	case errors.Is(err, ErrStructuringParse):
		return CodeStructuringParse
	case errors.Is(err, ErrInvalidStructuredOutput):
		return CodeInvalidStructuredOutput
	case errors.Is(err, ErrCompletionFailed):
		return CodeCompletionFailed
	case errors.Is(err, ErrDatabase):
		return CodeStorage
	case errors.As(err, &appErr) && appErr.Code != "":
		return appErr.Code
	}
	return CodeInternal
}

// StageOf returns the stage recorded on the first AppError in the chain.
func StageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stage
	}
	return ""
}

// gRPC error helpers

// ToStatus converts a pipeline error into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput) && CodeOf(err) != CodeConfig:
		return status.Error(codes.InvalidArgument, err.Error())
	}
	var c codes.Code
	switch CodeOf(err) {
	case CodeUnsupportedFormat:
		c = codes.InvalidArgument
	case CodeEmptyExtraction, CodeInvalidStructuredOutput:
		c = codes.FailedPrecondition
	case CodeStructuringParse:
		c = codes.DataLoss
	case CodeCompletionFailed:
		c = codes.Unavailable
	case CodeTimeout:
		c = codes.DeadlineExceeded
	case CodeCancelled:
		c = codes.Canceled
	case CodeConfig:
		c = codes.FailedPrecondition
	case CodeStorage:
		c = codes.Unavailable
	default:
		c = codes.Internal
	}
	return status.Error(c, err.Error())
}

func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
