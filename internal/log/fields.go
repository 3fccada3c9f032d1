// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldRequestID = "request_id"
	FieldTag       = "tag"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Spec fields
	FieldArchitecture = "architecture"
	FieldEpoch        = "epoch"
	FieldField        = "field"

	// Path fields
	FieldPath = "path"
	FieldDir  = "dir"
)
