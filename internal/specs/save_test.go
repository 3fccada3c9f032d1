// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package specs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/ibpcdc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_KeyOrderAndIndent(t *testing.T) {
	data, err := Marshal(validSpec(), FormatJSON)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "{\n    \"TAG\": \"PCN_INTE\""), text)
	assert.Less(t, strings.Index(text, `"TrainOptions"`), strings.Index(text, `"IBSALossOptions"`))
	assert.Less(t, strings.Index(text, `"MADSLossOptions"`), strings.Index(text, `"LogOptions"`))
	assert.NotContains(t, text, `"Description"`, "empty optional keys are omitted")
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	for _, name := range []string{"spec.json", "spec.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			want := validSpec()
			want.Description = "round trip"

			require.NoError(t, Save(path, want))
			got, err := LoadValidated(path)
			require.NoError(t, err)
			assert.Empty(t, Diff(want, got))
		})
	}
}

func TestSave_ReferenceSpecIsCanonical(t *testing.T) {
	path := testutil.ReferenceSpec(t, "PCN")
	spec, err := Load(path)
	require.NoError(t, err)

	want, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := Marshal(spec, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestSave_UnsupportedExtension(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "spec.ini"), validSpec())
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFields_RegistryConsistent(t *testing.T) {
	r, err := GetRegistry()
	require.NoError(t, err)

	fields := Fields()
	require.NotEmpty(t, fields)
	assert.Equal(t, "TAG", fields[0].Path)
	assert.Contains(t, r.Children(""), "TrainOptions")
	assert.Equal(t, []string{
		"LogOptions.FileLevel", "LogOptions.GlobalLevel", "LogOptions.LogDir", "LogOptions.Mode",
		"LogOptions.StreamLevel", "LogOptions.TAG", "LogOptions.Type",
	}, r.Children("LogOptions"))

	_, err = buildRegistry([]Field{{Path: "A.B", Kind: KindInt}})
	assert.Error(t, err, "orphaned child must be rejected")
	_, err = buildRegistry([]Field{{Path: "A", Kind: KindInt}, {Path: "A", Kind: KindInt}})
	assert.Error(t, err, "duplicate path must be rejected")
}
