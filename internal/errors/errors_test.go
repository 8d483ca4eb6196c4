package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError(t *testing.T) {
	err := New(CodeLedgerParse, "ledger could not be parsed")

	if err.Code != "LEDGER_001" {
		t.Errorf("expected code LEDGER_001, got %s", err.Code)
	}
	if err.Message != "ledger could not be parsed" {
		t.Errorf("unexpected message %s", err.Message)
	}
	if err.Error() != "[LEDGER_001] ledger could not be parsed" {
		t.Errorf("unexpected error string %s", err.Error())
	}
}

func TestAppErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("gs: executable file not found")
	err := New(CodeExtraction, "rasterize failed", cause)

	if err.Cause != cause {
		t.Errorf("expected cause to be set")
	}
	if !strings.Contains(err.Error(), "executable file not found") {
		t.Errorf("expected error string to contain cause, got %s", err.Error())
	}
	if err.Unwrap() != cause {
		t.Errorf("expected unwrap to return cause")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := New(CodeReportKind, "unknown report type")
	wrapped := fmt.Errorf("download: %w", appErr)

	if !IsAppError(appErr) {
		t.Error("expected IsAppError to return true for AppError")
	}
	if !IsAppError(wrapped) {
		t.Error("expected IsAppError to see through fmt wrapping")
	}
	if IsAppError(fmt.Errorf("standard error")) {
		t.Error("expected IsAppError to return false for standard error")
	}
}

func TestGetCodeAndMessage(t *testing.T) {
	wrapped := fmt.Errorf("compare: %w", Wrap(fmt.Errorf("eof"), CodeLedgerParse, "bad sheet"))

	if GetCode(wrapped) != CodeLedgerParse {
		t.Errorf("expected LEDGER_001, got %s", GetCode(wrapped))
	}
	if GetMessage(wrapped) != "bad sheet" {
		t.Errorf("expected message 'bad sheet', got %s", GetMessage(wrapped))
	}
	if GetCode(fmt.Errorf("plain")) != "UNKNOWN" {
		t.Error("expected UNKNOWN for standard error")
	}
	if GetMessage(fmt.Errorf("plain")) != "plain" {
		t.Error("expected error text for standard error")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), CodeReportKind, "unknown report type: pdf")

	if !stderrors.Is(err, ErrReportKind) {
		t.Error("expected errors.Is to match on code")
	}
	if stderrors.Is(err, ErrLedgerParse) {
		t.Error("expected errors.Is to reject a different code")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrUploadMissing, http.StatusBadRequest},
		{ErrUploadRejected, http.StatusBadRequest},
		{ErrReportKind, http.StatusBadRequest},
		{ErrLedgerParse, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrAIUnavailable, http.StatusServiceUnavailable},
		{ErrExtraction, http.StatusBadGateway},
		{ErrInternal, http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
