package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeParse    ErrorType = "parse"
	ErrorTypeStage    ErrorType = "stage"
	ErrorTypeTemplate ErrorType = "template"
	ErrorTypeMount    ErrorType = "mount"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeNetwork  ErrorType = "network"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// PreviewError is a structured error type with context.
type PreviewError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Stage       string
	Document    string
	Recoverable bool
}

// Error implements the error interface.
func (e *PreviewError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Stage != "" {
		parts = append(parts, "stage:"+e.Stage)
	}

	if e.Document != "" {
		parts = append(parts, "document:"+e.Document)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *PreviewError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *PreviewError) Is(target error) bool {
	var t *PreviewError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *PreviewError) WithContext(key string, value interface{}) *PreviewError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithDocument records which document was being processed.
func (e *PreviewError) WithDocument(path string) *PreviewError {
	e.Document = path

	return e
}

// WithStage records which transform stage failed.
func (e *PreviewError) WithStage(stage string) *PreviewError {
	e.Stage = stage

	return e
}

// Common error codes.
const (
	ErrCodeParseFailed       = "ERR_PARSE_FAILED"
	ErrCodeStageFailed       = "ERR_STAGE_FAILED"
	ErrCodeStagePanic        = "ERR_STAGE_PANIC"
	ErrCodeTemplateNotFound  = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeTemplateExec      = "ERR_TEMPLATE_EXEC"
	ErrCodeMountFailed       = "ERR_MOUNT_FAILED"
	ErrCodeBridgeUnavailable = "ERR_BRIDGE_UNAVAILABLE"
	ErrCodeUpdateFailed      = "ERR_UPDATE_FAILED"
	ErrCodeDocumentRead      = "ERR_DOCUMENT_READ"
	ErrCodeThemeNotFound     = "ERR_THEME_NOT_FOUND"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// NewParseError creates an error for malformed markdown source.
// The pipeline recovers locally by rendering escaped raw text.
func NewParseError(document string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeParse,
		Code:        ErrCodeParseFailed,
		Message:     "markdown parse failed",
		Cause:       cause,
		Document:    document,
		Recoverable: true,
	}
}

// NewStageError creates an error for a failing transform stage.
func NewStageError(stage, document string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeStage,
		Code:        ErrCodeStageFailed,
		Message:     "transform stage failed",
		Cause:       cause,
		Stage:       stage,
		Document:    document,
		Recoverable: true,
	}
}

// NewStagePanicError wraps a recovered panic value raised inside a stage.
func NewStagePanicError(stage, document string, recovered interface{}) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeStage,
		Code:        ErrCodeStagePanic,
		Message:     fmt.Sprintf("transform stage panicked: %v", recovered),
		Stage:       stage,
		Document:    document,
		Recoverable: true,
	}
}

// NewTemplateNotFoundError reports a missing template. Non-fatal.
func NewTemplateNotFoundError(id string) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeTemplate,
		Code:        ErrCodeTemplateNotFound,
		Message:     "template not found: " + id,
		Recoverable: true,
	}
}

// NewTemplateExecError reports a template that failed to compile or execute.
func NewTemplateExecError(id string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeTemplate,
		Code:        ErrCodeTemplateExec,
		Message:     "template execution failed: " + id,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewMountError creates an error for a failed or unavailable UI bridge.
func NewMountError(code string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeMount,
		Code:        code,
		Message:     "preview surface could not be mounted",
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var pe *PreviewError
	if errors.As(err, &pe) {
		return pe.Recoverable
	}

	return false
}

// IsType reports whether err is a PreviewError of the given type.
func IsType(err error, errType ErrorType) bool {
	var pe *PreviewError
	if errors.As(err, &pe) {
		return pe.Type == errType
	}

	return false
}

// IsStageError checks if an error came from a transform stage.
func IsStageError(err error) bool {
	return IsType(err, ErrorTypeStage)
}

// IsMountError checks if an error came from the UI bridge.
func IsMountError(err error) bool {
	return IsType(err, ErrorTypeMount)
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error with the context needed to diagnose it. It never
// panics and never re-raises, so it is safe at public entry points.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h == nil || h.logger == nil {
		return
	}

	var pe *PreviewError
	if !errors.As(err, &pe) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch pe.Type {
	case ErrorTypeStage:
		h.logger.Warn(ctx, pe, "Transform stage failed",
			"type", pe.Type,
			"code", pe.Code,
			"stage", pe.Stage,
			"document", pe.Document)
	case ErrorTypeParse:
		h.logger.Warn(ctx, pe, "Markdown parse failed",
			"type", pe.Type,
			"code", pe.Code,
			"document", pe.Document)
	case ErrorTypeTemplate:
		h.logger.Warn(ctx, pe, "Template fallback used",
			"type", pe.Type,
			"code", pe.Code)
	case ErrorTypeMount:
		h.logger.Error(ctx, pe, "Preview mount failed",
			"type", pe.Type,
			"code", pe.Code)
	default:
		h.logger.Error(ctx, pe, "Error occurred",
			"type", pe.Type,
			"code", pe.Code,
			"document", pe.Document)
	}
}
