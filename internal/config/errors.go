package config

import (
	"errors"
	"fmt"
	"strings"
)

// Error types reported in ConfigurationError.ErrorType.
const (
	ErrorTypeIO         = "io"
	ErrorTypeParse      = "parse"
	ErrorTypeValidation = "validation"
	ErrorTypeSchema     = "schema"
)

// ConfigurationError represents a structured error raised while loading or
// validating configuration, or while checking the shape of a configured store.
type ConfigurationError struct {
	FilePath    string   `json:"filePath"`    // Full path to the file that caused the error
	FileName    string   `json:"fileName"`    // Base name of the file
	Field       string   `json:"field"`       // Dotted key of the offending setting, if any
	ErrorType   string   `json:"errorType"`   // io, parse, validation, schema
	Message     string   `json:"message"`     // Human-readable error message
	Details     string   `json:"details"`     // Additional details about the error
	LineNumber  int      `json:"lineNumber"`  // Line number where error occurred (if available)
	Suggestions []string `json:"suggestions"` // Actionable suggestions to fix the error
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(ce.ErrorType)
	b.WriteString("]")
	if ce.FileName != "" {
		b.WriteString(" ")
		b.WriteString(ce.FileName)
	}
	if ce.Field != "" {
		b.WriteString(" ")
		b.WriteString(ce.Field)
	}
	b.WriteString(": ")
	b.WriteString(ce.Message)
	return b.String()
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Configuration Error: %s", ce.Message))
	if ce.FilePath != "" {
		parts = append(parts, fmt.Sprintf("  File: %s", ce.FilePath))
	}
	if ce.Field != "" {
		parts = append(parts, fmt.Sprintf("  Field: %s", ce.Field))
	}
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))

	if ce.LineNumber > 0 {
		parts = append(parts, fmt.Sprintf("  Line: %d", ce.LineNumber))
	}

	if ce.Details != "" {
		parts = append(parts, fmt.Sprintf("  Details: %s", ce.Details))
	}

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

// ConfigurationErrorCollection holds multiple configuration errors
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// Error implements the error interface
func (cec ConfigurationErrorCollection) Error() string {
	if len(cec.Errors) == 0 {
		return "no configuration errors"
	}
	if len(cec.Errors) == 1 {
		return cec.Errors[0].Error()
	}
	return fmt.Sprintf("%d configuration errors, first: %s", len(cec.Errors), cec.Errors[0].Error())
}

// HasErrors returns true if there are any errors in the collection
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Count returns the number of errors in the collection
func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

// Add adds an error to the collection
func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// AddValidation records a validation problem for a single field.
func (cec *ConfigurationErrorCollection) AddValidation(field, message string, suggestions ...string) {
	cec.Add(ConfigurationError{
		Field:       field,
		ErrorType:   ErrorTypeValidation,
		Message:     message,
		Suggestions: suggestions,
	})
}

// GetErrorsByField returns all errors reported for a field.
func (cec *ConfigurationErrorCollection) GetErrorsByField(field string) []ConfigurationError {
	var errs []ConfigurationError
	for _, err := range cec.Errors {
		if err.Field == field {
			errs = append(errs, err)
		}
	}
	return errs
}

// GetDetailedReport returns a detailed report of all errors
func (cec *ConfigurationErrorCollection) GetDetailedReport() string {
	if !cec.HasErrors() {
		return "No configuration errors found."
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Configuration Error Report (%d errors)", len(cec.Errors)))
	parts = append(parts, strings.Repeat("=", 50))

	for i, err := range cec.Errors {
		parts = append(parts, "")
		parts = append(parts, fmt.Sprintf("Error %d:", i+1))
		parts = append(parts, err.DetailedError())
	}

	return strings.Join(parts, "\n")
}

// withFile stamps every collected error with the file it came from.
func (cec *ConfigurationErrorCollection) withFile(path, name string) {
	for i := range cec.Errors {
		if cec.Errors[i].FilePath == "" {
			cec.Errors[i].FilePath = path
			cec.Errors[i].FileName = name
		}
	}
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(filePath, fileName, errorType, message string) ConfigurationError {
	return ConfigurationError{
		FilePath:  filePath,
		FileName:  fileName,
		ErrorType: errorType,
		Message:   message,
	}
}

// NewConfigurationErrorWithDetails creates a new configuration error with additional details
func NewConfigurationErrorWithDetails(filePath, fileName, errorType, message, details string, suggestions []string) ConfigurationError {
	err := NewConfigurationError(filePath, fileName, errorType, message)
	err.Details = details
	err.Suggestions = suggestions
	return err
}

// IsConfigurationError reports whether err is, or wraps, a configuration error
// or a collection of them.
func IsConfigurationError(err error) bool {
	var ce ConfigurationError
	if errors.As(err, &ce) {
		return true
	}
	var cep *ConfigurationError
	if errors.As(err, &cep) {
		return true
	}
	var cec *ConfigurationErrorCollection
	if errors.As(err, &cec) {
		return true
	}
	var cecv ConfigurationErrorCollection
	return errors.As(err, &cecv)
}
