package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a PreviewError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *PreviewError {
	if err == nil {
		return nil
	}

	// Keep stage and document context from an inner PreviewError
	var pe *PreviewError
	if errors.As(err, &pe) {
		return &PreviewError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       pe,
			Context:     pe.Context,
			Stage:       pe.Stage,
			Document:    pe.Document,
			Recoverable: pe.Recoverable,
		}
	}

	return &PreviewError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeParse || errType == ErrorTypeStage || errType == ErrorTypeTemplate,
	}
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *PreviewError {
	pe := Wrap(err, ErrorTypeIO, code, message)
	if pe != nil {
		pe.Recoverable = false
	}
	return pe
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *PreviewError {
	pe := Wrap(err, ErrorTypeConfig, code, message)
	if pe != nil {
		pe.Recoverable = false
	}
	return pe
}

// FormatError formats an error for user display
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// GetErrorContext extracts context information from a PreviewError
func GetErrorContext(err error) map[string]interface{} {
	var pe *PreviewError
	if errors.As(err, &pe) {
		context := make(map[string]interface{})
		for k, v := range pe.Context {
			context[k] = v
		}
		if pe.Stage != "" {
			context["stage"] = pe.Stage
		}
		if pe.Document != "" {
			context["document"] = pe.Document
		}
		context["type"] = string(pe.Type)
		context["code"] = pe.Code
		context["recoverable"] = pe.Recoverable
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	if len(nonNil) == 1 {
		return nonNil[0]
	}

	var messages []string
	for _, err := range nonNil {
		messages = append(messages, err.Error())
	}

	return &PreviewError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("multiple errors occurred: %d errors", len(nonNil)),
		Context: map[string]interface{}{
			"error_count": len(nonNil),
			"errors":      messages,
		},
	}
}
