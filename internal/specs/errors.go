// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package specs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/ibpcdc/internal/validate"
)

var (
	// ErrUnknownField classifies documents carrying keys outside the schema.
	// Use errors.Is(err, ErrUnknownField) instead of string matching.
	ErrUnknownField = errors.New("unknown spec field")
	// ErrMissingField classifies documents lacking a required key.
	ErrMissingField = errors.New("missing required spec field")
	// ErrFieldType classifies keys whose value has the wrong JSON type.
	ErrFieldType = errors.New("spec field has wrong type")
	// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported spec format")
	// ErrMultipleDocuments is returned when trailing content follows the record.
	ErrMultipleDocuments = errors.New("spec contains multiple documents or trailing content")
	// ErrDuplicateTag is returned when two records loaded together share a TAG.
	ErrDuplicateTag = errors.New("duplicate spec TAG")
)

// SchemaIssue is one schema violation found in a raw document.
type SchemaIssue struct {
	Path   string
	Kind   error // one of ErrUnknownField, ErrMissingField, ErrFieldType
	Detail string
}

func (i SchemaIssue) String() string {
	if i.Detail == "" {
		return fmt.Sprintf("%s: %v", i.Path, i.Kind)
	}
	return fmt.Sprintf("%s: %v (%s)", i.Path, i.Kind, i.Detail)
}

// SchemaError collects every schema violation of a document.
type SchemaError struct {
	Issues []SchemaIssue
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "schema check failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the issue kinds to errors.Is.
func (e *SchemaError) Unwrap() []error {
	seen := make(map[error]bool, 3)
	var out []error
	for _, issue := range e.Issues {
		if !seen[issue.Kind] {
			seen[issue.Kind] = true
			out = append(out, issue.Kind)
		}
	}
	return out
}

// Problem is one field-level finding of a failed load or validation.
type Problem struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Problems flattens schema and validation errors into per-field findings.
// Any other error becomes a single finding without a field.
func Problems(err error) []Problem {
	if err == nil {
		return nil
	}
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		out := make([]Problem, 0, len(schemaErr.Issues))
		for _, issue := range schemaErr.Issues {
			msg := issue.Kind.Error()
			if issue.Detail != "" {
				msg += " (" + issue.Detail + ")"
			}
			out = append(out, Problem{Field: issue.Path, Message: msg})
		}
		return out
	}
	var verr validate.ValidationError
	if errors.As(err, &verr) {
		out := make([]Problem, 0, len(verr.Errors()))
		for _, e := range verr.Errors() {
			out = append(out, Problem{Field: e.Field, Message: e.Message})
		}
		return out
	}
	return []Problem{{Message: err.Error()}}
}
