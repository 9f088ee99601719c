package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeUsage represents a malformed command line
	ErrorTypeUsage ErrorType = "usage"
	// ErrorTypeConfiguration represents invalid configuration detected at startup
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeCredentials represents credentials that could not be loaded
	ErrorTypeCredentials ErrorType = "credentials"
	// ErrorTypeDiscovery represents failures while enumerating files to back up
	ErrorTypeDiscovery ErrorType = "discovery"
	// ErrorTypeUpload represents failures reported by the archival service
	ErrorTypeUpload ErrorType = "upload"
	// ErrorTypeOutput represents failures writing the result document
	ErrorTypeOutput ErrorType = "output"
	// ErrorTypeNetwork represents network errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypePermission represents permission/access errors
	ErrorTypePermission ErrorType = "permission"
	// ErrorTypeNotFound represents missing files or remote resources
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeInterruption represents user interruption
	ErrorTypeInterruption ErrorType = "interruption"
	// ErrorTypeUnknown represents unknown errors
	ErrorTypeUnknown ErrorType = "unknown"
)

// Process exit codes
const (
	ExitOK            = 0
	ExitUsage         = 1
	ExitConfiguration = 2
	ExitRuntime       = 3
)

// AppError represents an application-specific error with context
type AppError struct {
	Type        ErrorType
	Message     string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
	UserMessage string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns a user-friendly error message
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// IsRecoverable returns whether the error is recoverable
func (e *AppError) IsRecoverable() bool {
	return e.Recoverable
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithUserMessage sets the message shown to the operator
func (e *AppError) WithUserMessage(msg string) *AppError {
	e.UserMessage = msg
	return e
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:        errorType,
		Message:     message,
		Cause:       cause,
		Context:     make(map[string]interface{}),
		Recoverable: false,
	}
}

// NewRecoverableError creates a new recoverable error
func NewRecoverableError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:        errorType,
		Message:     message,
		Cause:       cause,
		Context:     make(map[string]interface{}),
		Recoverable: true,
	}
}

// Common error constructors

func NewUsageError(message string) *AppError {
	return NewAppError(ErrorTypeUsage, message, nil)
}

func NewConfigurationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, cause)
}

func NewCredentialsError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeCredentials, message, cause)
}

func NewDiscoveryError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeDiscovery, message, cause)
}

func NewOutputError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeOutput, message, cause)
}

func NewInterruptionError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeInterruption, message, cause)
}

// ErrorClassifier provides methods to classify and handle different types of errors
type ErrorClassifier struct{}

// NewErrorClassifier creates a new error classifier
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// ClassifyError analyzes an error and returns an AppError with appropriate classification
func (ec *ErrorClassifier) ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	// Context errors first: the SDKs wrap cancellation in their own types
	if ctxErr := ec.classifyContextError(err); ctxErr != nil {
		return ctxErr
	}

	if awsErr := ec.classifyAWSError(err); awsErr != nil {
		return awsErr
	}

	if netErr := ec.classifyNetworkError(err); netErr != nil {
		return netErr
	}

	if fsErr := ec.classifyFileSystemError(err); fsErr != nil {
		return fsErr
	}

	// Anything else reported by an archival backend is assumed transient
	return NewRecoverableError(ErrorTypeUnknown, "An unexpected error occurred", err)
}

// classifyAWSError classifies errors returned by the AWS SDK
func (ec *ErrorClassifier) classifyAWSError(err error) *AppError {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		status := reqErr.StatusCode()
		switch {
		case status == 401 || status == 403:
			return NewAppError(ErrorTypePermission,
				"Archival service denied access - check credentials and vault policy", err).
				WithContext("aws_error_code", reqErr.Code()).
				WithContext("status_code", status)
		case status == 404:
			return NewAppError(ErrorTypeNotFound,
				"Vault or upload does not exist", err).
				WithContext("aws_error_code", reqErr.Code()).
				WithContext("status_code", status)
		case status == 408 || status == 429 || status >= 500:
			return NewRecoverableError(ErrorTypeUpload,
				"Archival service is temporarily unavailable", err).
				WithContext("aws_error_code", reqErr.Code()).
				WithContext("status_code", status)
		default:
			return NewAppError(ErrorTypeUpload,
				fmt.Sprintf("Archival service rejected the request: %s", reqErr.Message()), err).
				WithContext("aws_error_code", reqErr.Code()).
				WithContext("status_code", status)
		}
	}

	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		switch awsErr.Code() {
		case request.CanceledErrorCode:
			return NewAppError(ErrorTypeInterruption, "Upload was canceled", err)
		case request.ErrCodeResponseTimeout, request.ErrCodeRead, "RequestError", "RequestTimeout", "ThrottlingException":
			return NewRecoverableError(ErrorTypeNetwork, "Request to archival service failed", err).
				WithContext("aws_error_code", awsErr.Code())
		case "NoCredentialProviders", "SharedCredsLoad":
			return NewAppError(ErrorTypeCredentials, "Unable to load AWS credentials", err).
				WithContext("aws_error_code", awsErr.Code())
		case "ResourceNotFoundException":
			return NewAppError(ErrorTypeNotFound, "Vault does not exist", err).
				WithContext("aws_error_code", awsErr.Code())
		}
		return NewRecoverableError(ErrorTypeUpload, awsErr.Message(), err).
			WithContext("aws_error_code", awsErr.Code())
	}

	return nil
}

// classifyNetworkError classifies network-related errors
func (ec *ErrorClassifier) classifyNetworkError(err error) *AppError {
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewRecoverableError(ErrorTypeTimeout,
				"Network operation timed out", err)
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial":
			return NewRecoverableError(ErrorTypeNetwork,
				"Failed to establish network connection", err)
		case "read", "write":
			return NewRecoverableError(ErrorTypeNetwork,
				"Network I/O error", err)
		}
	}

	return nil
}

// classifyContextError classifies context-related errors
func (ec *ErrorClassifier) classifyContextError(err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewRecoverableError(ErrorTypeTimeout,
			"Operation timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewAppError(ErrorTypeInterruption,
			"Operation was canceled", err)
	}

	return nil
}

// classifyFileSystemError classifies file system errors
func (ec *ErrorClassifier) classifyFileSystemError(err error) *AppError {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		switch {
		case errors.Is(pathErr.Err, syscall.ENOENT):
			return NewAppError(ErrorTypeNotFound,
				fmt.Sprintf("File or directory not found: %s", pathErr.Path), err)
		case errors.Is(pathErr.Err, syscall.EACCES):
			return NewAppError(ErrorTypePermission,
				fmt.Sprintf("Permission denied: %s", pathErr.Path), err)
		}
		return NewRecoverableError(ErrorTypeUnknown,
			fmt.Sprintf("File system error: %s", pathErr.Path), err)
	}

	return nil
}

// IsRecoverableError checks if an error is recoverable
func IsRecoverableError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.IsRecoverable()
	}
	return false
}

// GetErrorType returns the error type of an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// ExitCode maps an error returned by the CLI to a process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch GetErrorType(err) {
	case ErrorTypeUsage:
		return ExitUsage
	case ErrorTypeConfiguration, ErrorTypeCredentials:
		return ExitConfiguration
	default:
		return ExitRuntime
	}
}

// FormatUserError formats an error for display to users
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.GetUserMessage()
	}

	return "An unexpected error occurred. Please check the logs for more details."
}

// WrapError wraps an existing error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		wrapped := NewAppError(appErr.Type, message, err)
		wrapped.Recoverable = appErr.Recoverable
		return wrapped
	}

	classifier := NewErrorClassifier()
	classifiedErr := classifier.ClassifyError(err)
	classifiedErr.Message = message
	return classifiedErr
}
