package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so wrapped instances of
// the predefined errors below satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

const (
	CodeConfigNotFound = "CONFIG_001"
	CodeConfigInvalid  = "CONFIG_002"

	CodeExtraction    = "EXTRACT_001"
	CodeAIResponse    = "EXTRACT_002"
	CodeAIUnavailable = "EXTRACT_003"

	CodeLedgerParse = "LEDGER_001"

	CodeUploadMissing  = "UPLOAD_001"
	CodeUploadRejected = "UPLOAD_002"

	CodeReportKind = "REPORT_001"

	CodeNotFound   = "GEN_001"
	CodeBadRequest = "GEN_002"
	CodeInternal   = "GEN_003"
)

var (
	ErrConfigNotFound = &AppError{Code: CodeConfigNotFound, Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: CodeConfigInvalid, Message: "invalid configuration"}

	ErrExtraction    = &AppError{Code: CodeExtraction, Message: "invoice extraction failed"}
	ErrAIResponse    = &AppError{Code: CodeAIResponse, Message: "malformed AI response"}
	ErrAIUnavailable = &AppError{Code: CodeAIUnavailable, Message: "vision model unavailable"}

	ErrLedgerParse = &AppError{Code: CodeLedgerParse, Message: "ledger could not be parsed"}

	ErrUploadMissing  = &AppError{Code: CodeUploadMissing, Message: "both files are required"}
	ErrUploadRejected = &AppError{Code: CodeUploadRejected, Message: "invalid file type"}

	ErrReportKind = &AppError{Code: CodeReportKind, Message: "unknown report type"}

	ErrNotFound   = &AppError{Code: CodeNotFound, Message: "resource not found"}
	ErrBadRequest = &AppError{Code: CodeBadRequest, Message: "bad request"}
	ErrInternal   = &AppError{Code: CodeInternal, Message: "internal error"}
)

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// GetMessage returns the message of the outermost AppError in err's chain,
// or err.Error() for other errors.
func GetMessage(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// HTTPStatus maps an error code to the status the API responds with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeUploadMissing, CodeUploadRejected, CodeReportKind, CodeBadRequest, CodeLedgerParse:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAIUnavailable:
		return http.StatusServiceUnavailable
	case CodeExtraction, CodeAIResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
