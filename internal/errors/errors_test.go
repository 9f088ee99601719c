package errors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
)

func TestAppError(t *testing.T) {
	cause := errors.New("underlying error")
	appErr := NewAppError(ErrorTypeDiscovery, "walk failed", cause)

	if appErr.Type != ErrorTypeDiscovery {
		t.Errorf("Expected type %v, got %v", ErrorTypeDiscovery, appErr.Type)
	}

	if appErr.Message != "walk failed" {
		t.Errorf("Expected message 'walk failed', got %v", appErr.Message)
	}

	if appErr.Cause != cause {
		t.Errorf("Expected cause %v, got %v", cause, appErr.Cause)
	}

	if appErr.IsRecoverable() {
		t.Error("Expected non-recoverable error")
	}

	expectedError := "discovery: walk failed (caused by: underlying error)"
	if appErr.Error() != expectedError {
		t.Errorf("Expected error string %v, got %v", expectedError, appErr.Error())
	}
}

func TestAppErrorWithContext(t *testing.T) {
	appErr := NewAppError(ErrorTypeUpload, "upload failed", nil)
	appErr.WithContext("vault", "photos").WithContext("attempt", 3)

	if appErr.Context["vault"] != "photos" {
		t.Errorf("Expected context vault=photos, got %v", appErr.Context["vault"])
	}

	if appErr.Context["attempt"] != 3 {
		t.Errorf("Expected context attempt=3, got %v", appErr.Context["attempt"])
	}
}

func TestNewRecoverableError(t *testing.T) {
	appErr := NewRecoverableError(ErrorTypeNetwork, "temporary failure", nil)

	if !appErr.IsRecoverable() {
		t.Error("Expected recoverable error")
	}
}

func TestClassifyError(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		name        string
		err         error
		wantType    ErrorType
		recoverable bool
	}{
		{
			name:        "context canceled",
			err:         context.Canceled,
			wantType:    ErrorTypeInterruption,
			recoverable: false,
		},
		{
			name:        "deadline exceeded",
			err:         fmt.Errorf("upload: %w", context.DeadlineExceeded),
			wantType:    ErrorTypeTimeout,
			recoverable: true,
		},
		{
			name:        "aws access denied",
			err:         awserr.NewRequestFailure(awserr.New("AccessDeniedException", "denied", nil), 403, "req-1"),
			wantType:    ErrorTypePermission,
			recoverable: false,
		},
		{
			name:        "aws missing vault",
			err:         awserr.NewRequestFailure(awserr.New("ResourceNotFoundException", "no vault", nil), 404, "req-2"),
			wantType:    ErrorTypeNotFound,
			recoverable: false,
		},
		{
			name:        "aws service unavailable",
			err:         awserr.NewRequestFailure(awserr.New("ServiceUnavailableException", "busy", nil), 503, "req-3"),
			wantType:    ErrorTypeUpload,
			recoverable: true,
		},
		{
			name:        "aws throttled",
			err:         awserr.NewRequestFailure(awserr.New("ThrottlingException", "slow down", nil), 429, "req-4"),
			wantType:    ErrorTypeUpload,
			recoverable: true,
		},
		{
			name:        "aws request canceled",
			err:         awserr.New(request.CanceledErrorCode, "canceled", nil),
			wantType:    ErrorTypeInterruption,
			recoverable: false,
		},
		{
			name:        "aws request error",
			err:         awserr.New("RequestError", "send request failed", errors.New("connection reset")),
			wantType:    ErrorTypeNetwork,
			recoverable: true,
		},
		{
			name:        "missing local file",
			err:         &os.PathError{Op: "open", Path: "/data/a.jpg", Err: syscall.ENOENT},
			wantType:    ErrorTypeNotFound,
			recoverable: false,
		},
		{
			name:        "permission denied",
			err:         &os.PathError{Op: "open", Path: "/data/a.jpg", Err: syscall.EACCES},
			wantType:    ErrorTypePermission,
			recoverable: false,
		},
		{
			name:        "unknown error",
			err:         errors.New("something odd"),
			wantType:    ErrorTypeUnknown,
			recoverable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.ClassifyError(tt.err)
			if got == nil {
				t.Fatal("Expected classified error, got nil")
			}
			if got.Type != tt.wantType {
				t.Errorf("Expected type %v, got %v", tt.wantType, got.Type)
			}
			if got.IsRecoverable() != tt.recoverable {
				t.Errorf("Expected recoverable=%v, got %v", tt.recoverable, got.IsRecoverable())
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("Expected classified error to wrap the original error")
			}
		})
	}
}

func TestClassifyErrorNil(t *testing.T) {
	if NewErrorClassifier().ClassifyError(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestClassifyErrorKeepsAppError(t *testing.T) {
	original := NewOutputError("disk full", nil)
	got := NewErrorClassifier().ClassifyError(fmt.Errorf("write: %w", original))

	if got != original {
		t.Errorf("Expected the wrapped AppError to be returned unchanged")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"usage", NewUsageError("wrong argument count"), ExitUsage},
		{"configuration", NewConfigurationError("output exists", nil), ExitConfiguration},
		{"credentials", NewCredentialsError("no profile", nil), ExitConfiguration},
		{"wrapped configuration", fmt.Errorf("startup: %w", NewConfigurationError("bad region", nil)), ExitConfiguration},
		{"discovery", NewDiscoveryError("unreadable", nil), ExitRuntime},
		{"interruption", NewInterruptionError("signal", context.Canceled), ExitRuntime},
		{"plain error", errors.New("boom"), ExitRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if FormatUserError(nil) != "" {
		t.Error("Expected empty message for nil error")
	}

	appErr := NewConfigurationError("output exists", nil).WithUserMessage("Output file already exists - exiting!")
	if got := FormatUserError(appErr); got != "Output file already exists - exiting!" {
		t.Errorf("Expected user message, got %q", got)
	}

	if got := FormatUserError(NewDiscoveryError("walk failed", nil)); got != "walk failed" {
		t.Errorf("Expected message fallback, got %q", got)
	}

	if got := FormatUserError(errors.New("raw")); got == "" {
		t.Error("Expected generic message for plain errors")
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "ignored") != nil {
		t.Error("Expected nil when wrapping nil")
	}

	wrapped := WrapError(NewRecoverableError(ErrorTypeNetwork, "reset", nil), "upload failed")
	if GetErrorType(wrapped) != ErrorTypeNetwork {
		t.Errorf("Expected network type, got %v", GetErrorType(wrapped))
	}
	if !IsRecoverableError(wrapped) {
		t.Error("Expected wrapped error to stay recoverable")
	}

	classified := WrapError(context.Canceled, "interrupted")
	if GetErrorType(classified) != ErrorTypeInterruption {
		t.Errorf("Expected interruption type, got %v", GetErrorType(classified))
	}
	if classified.Error() == "" {
		t.Error("Expected error text")
	}
}
