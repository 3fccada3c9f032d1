// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package specs defines the training specification record consumed by the
// point-cloud completion trainers, together with its strict loader, schema
// registry, business validation, diffing and canonical writer.
//
// A loaded Spec is a plain value. Nothing in this package mutates a record
// after it has been decoded; defaults for optional fields are derived by
// accessor methods instead of being written back.
package specs
