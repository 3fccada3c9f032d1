// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package specs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	xglog "github.com/ManuGH/ibpcdc/internal/log"
	"github.com/ManuGH/ibpcdc/internal/metrics"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a record file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath maps a file extension to its Format.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (only .json, .yaml and .yml)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// IsSpecFile reports whether path has a record file extension.
func IsSpecFile(path string) bool {
	_, err := FormatForPath(path)
	return err == nil
}

// Load reads and strictly decodes one record file.
// Unknown keys, missing required keys and mistyped values are rejected; the
// record is not business-validated (see Validate).
func Load(path string) (Spec, error) {
	logger := xglog.WithComponent("specs")
	path = filepath.Clean(path)

	format, err := FormatForPath(path)
	if err != nil {
		metrics.IncSpecLoad("parse_error")
		return Spec{}, err
	}

	// #nosec G304 -- spec paths are provided by the operator via CLI
	data, err := os.ReadFile(path)
	if err != nil {
		metrics.IncSpecLoad("io_error")
		return Spec{}, fmt.Errorf("read file: %w", err)
	}

	spec, err := decodeBytes(data, format)
	if err != nil {
		outcome := "parse_error"
		var se *SchemaError
		if errors.As(err, &se) {
			outcome = "schema_error"
		}
		metrics.IncSpecLoad(outcome)
		logger.Debug().
			Err(err).
			Str(xglog.FieldEvent, "specs.load_failed").
			Str(xglog.FieldPath, path).
			Msg("spec rejected")
		return Spec{}, err
	}

	metrics.IncSpecLoad("success")
	return spec, nil
}

// LoadValidated loads a record and runs Validate on it. A record that decodes
// but breaks a rule is returned together with the validation error.
func LoadValidated(path string) (Spec, error) {
	spec, err := Load(path)
	if err != nil {
		return Spec{}, err
	}
	if err := Validate(spec); err != nil {
		return spec, err
	}
	return spec, nil
}

// Decode strictly decodes one record from r.
func Decode(r io.Reader, format Format) (Spec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Spec{}, fmt.Errorf("read spec: %w", err)
	}
	return decodeBytes(data, format)
}

func decodeBytes(data []byte, format Format) (Spec, error) {
	raw, err := decodeRaw(data, format)
	if err != nil {
		return Spec{}, err
	}
	if err := CheckSchema(raw); err != nil {
		return Spec{}, err
	}

	var spec Spec
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return Spec{}, fmt.Errorf("strict spec parse error: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			return Spec{}, fmt.Errorf("strict spec parse error: %w", err)
		}
	default:
		return Spec{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return spec, nil
}

// decodeRaw decodes the document into generic maps and enforces a single document.
func decodeRaw(data []byte, format Format) (map[string]any, error) {
	var doc any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				return nil, errors.New("spec parse error: empty document")
			}
			return nil, fmt.Errorf("spec parse error: %w", err)
		}
		if _, err := dec.Token(); err != io.EOF {
			return nil, ErrMultipleDocuments
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				return nil, errors.New("spec parse error: empty document")
			}
			return nil, fmt.Errorf("spec parse error: %w", err)
		}
		if err := dec.Decode(&struct{}{}); err != io.EOF {
			return nil, ErrMultipleDocuments
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("spec parse error: top-level value must be an object, got %s", describe(doc))
	}
	return obj, nil
}

// CheckSchema verifies key presence, key names and value types of a generically
// decoded document against the registry. All violations are reported together.
func CheckSchema(doc map[string]any) error {
	r, err := GetRegistry()
	if err != nil {
		return fmt.Errorf("schema registry: %w", err)
	}
	var issues []SchemaIssue
	checkObject(r, "", doc, &issues)
	if len(issues) == 0 {
		return nil
	}
	return &SchemaError{Issues: issues}
}

func checkObject(r *Registry, prefix string, obj map[string]any, issues *[]SchemaIssue) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := joinPath(prefix, k)
		if _, ok := r.ByPath[path]; !ok {
			*issues = append(*issues, SchemaIssue{Path: path, Kind: ErrUnknownField})
		}
	}

	for _, path := range r.Children(prefix) {
		f := r.ByPath[path]
		key := path[len(prefix):]
		key = strings.TrimPrefix(key, ".")
		v, present := obj[key]
		if !present || v == nil {
			if f.Required {
				*issues = append(*issues, SchemaIssue{Path: path, Kind: ErrMissingField})
			}
			continue
		}
		if !matchesKind(v, f.Kind) {
			*issues = append(*issues, SchemaIssue{
				Path:   path,
				Kind:   ErrFieldType,
				Detail: fmt.Sprintf("want %s, got %s", f.Kind, describe(v)),
			})
			continue
		}
		if f.Kind == KindObject {
			checkObject(r, path, v.(map[string]any), issues)
		}
	}
}

func matchesKind(v any, kind Kind) bool {
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	case KindInt:
		switch n := v.(type) {
		case int, int64, uint64:
			return true
		case json.Number:
			_, err := strconv.ParseInt(string(n), 10, 64)
			return err == nil
		case float64:
			return n == math.Trunc(n) && !math.IsInf(n, 0)
		}
		return false
	case KindFloat:
		switch n := v.(type) {
		case int, int64, uint64, float64:
			return true
		case json.Number:
			_, err := n.Float64()
			return err == nil
		}
		return false
	}
	return false
}

func describe(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case json.Number:
		if strings.ContainsAny(string(n), ".eE") {
			return "float"
		}
		return "int"
	case int, int64, uint64:
		return "int"
	case float64:
		return "float"
	default:
		return fmt.Sprintf("%T", v)
	}
}
