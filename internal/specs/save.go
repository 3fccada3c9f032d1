// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package specs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	xglog "github.com/ManuGH/ibpcdc/internal/log"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Marshal renders a record in canonical form: keys in schema order, JSON
// indented with four spaces, YAML with two.
func Marshal(s Spec, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return buf.Bytes(), nil
}

// Save writes a record atomically in the format implied by the path extension.
func Save(path string, s Spec) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	data, err := Marshal(s, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("mkdir spec dir: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("create pending spec file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger := xglog.WithComponent("specs")
			logger.Debug().Err(err).Str(xglog.FieldPath, path).Msg("cleanup pending spec file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write spec data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace spec file: %w", err)
	}
	return nil
}
