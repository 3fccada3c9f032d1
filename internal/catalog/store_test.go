// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/ManuGH/ibpcdc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func referenceSpec(t *testing.T, arch string) (string, specs.Spec) {
	t.Helper()
	path := testutil.ReferenceSpec(t, arch)
	spec, err := specs.LoadValidated(path)
	require.NoError(t, err)
	return path, spec
}

func TestRegister_NewAndGet(t *testing.T) {
	s := openStore(t)
	path, spec := referenceSpec(t, "PCN")

	e, err := s.Register(t.Context(), Entry{Path: path, Spec: spec})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "PCN_INTE", e.Tag)
	assert.Equal(t, specs.ArchPCN, e.Architecture)
	assert.Len(t, e.Checksum, 64)
	assert.Equal(t, spec, e.Spec)

	got, err := s.Get(t.Context(), "PCN_INTE")
	require.NoError(t, err)
	assert.Equal(t, e, got)

	want, _, err := Checksum(spec)
	require.NoError(t, err)
	assert.Equal(t, want, got.Checksum)
}

func TestRegister_UpsertKeepsIdentity(t *testing.T) {
	s := openStore(t)
	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return first }

	path, spec := referenceSpec(t, "PMPNet")
	orig, err := s.Register(t.Context(), Entry{Path: path, Spec: spec})
	require.NoError(t, err)

	s.now = func() time.Time { return first.Add(time.Hour) }
	spec.TrainOptions.NumEpochs = 175
	next, err := s.Register(t.Context(), Entry{Path: "elsewhere.json", Spec: spec})
	require.NoError(t, err)

	assert.Equal(t, orig.ID, next.ID)
	assert.Equal(t, first, next.CreatedAt)
	assert.Equal(t, first.Add(time.Hour), next.UpdatedAt)
	assert.Equal(t, "elsewhere.json", next.Path)
	assert.NotEqual(t, orig.Checksum, next.Checksum)
	assert.Equal(t, 175, next.Spec.TrainOptions.NumEpochs)
}

func TestRegister_RequiresTag(t *testing.T) {
	s := openStore(t)
	_, err := s.Register(t.Context(), Entry{Path: "x.json"})
	require.Error(t, err)
}

func TestListAndDelete(t *testing.T) {
	s := openStore(t)
	for _, arch := range []string{"SnowFlakeNet", "PCN", "PMPNet"} {
		path, spec := referenceSpec(t, arch)
		_, err := s.Register(t.Context(), Entry{Path: path, Spec: spec})
		require.NoError(t, err)
	}

	list, err := s.List(t.Context())
	require.NoError(t, err)
	var tags []string
	for _, e := range list {
		tags = append(tags, e.Tag)
	}
	assert.Equal(t, []string{"PCN_INTE", "PMPNet_INTE", "SnowFlakeNet_INTE"}, tags)

	require.NoError(t, s.Delete(t.Context(), "PMPNet_INTE"))
	_, err = s.Get(t.Context(), "PMPNet_INTE")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(t.Context(), "PMPNet_INTE"), ErrNotFound)

	list, err = s.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestValidationHistory(t *testing.T) {
	s := openStore(t)
	path, spec := referenceSpec(t, "PCN")
	_, err := s.Register(t.Context(), Entry{Path: path, Spec: spec})
	require.NoError(t, err)

	require.NoError(t, s.RecordValidation(t.Context(), "PCN_INTE", false, "TrainOptions.BatchSize: must be positive"))
	require.NoError(t, s.RecordValidation(t.Context(), "PCN_INTE", true, ""))
	require.ErrorIs(t, s.RecordValidation(t.Context(), "missing", true, ""), ErrNotFound)

	history, err := s.Validations(t.Context(), "PCN_INTE")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].OK)
	assert.Equal(t, "TrainOptions.BatchSize: must be positive", history[0].Message)
	assert.True(t, history[1].OK)

	require.NoError(t, s.Delete(t.Context(), "PCN_INTE"))
	history, err = s.Validations(t.Context(), "PCN_INTE")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReopenKeepsEntries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.sqlite")
	s, err := Open(dbPath)
	require.NoError(t, err)
	path, spec := referenceSpec(t, "PCN")
	_, err = s.Register(t.Context(), Entry{Path: path, Spec: spec})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.Get(t.Context(), "PCN_INTE")
	require.NoError(t, err)
	assert.Equal(t, spec, got.Spec)

	issues, err := s.Verify(false)
	require.NoError(t, err)
	assert.Nil(t, issues)
}
