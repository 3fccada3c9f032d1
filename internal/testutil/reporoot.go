package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// RepoRoot returns the repository root by walking up to the nearest go.mod.
func RepoRoot() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("cannot determine caller")
	}
	dir := filepath.Dir(file)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("go.mod not found")
}

// MustRepoRoot returns the repo root or fails the test.
func MustRepoRoot(t *testing.T) string {
	t.Helper()
	root, err := RepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	return root
}

// ReferenceSpecDir returns the directory holding the checked-in INTE training specs.
func ReferenceSpecDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(MustRepoRoot(t), "configs", "INTE")
}

// ReferenceSpec returns the path of the checked-in INTE spec for an architecture
// ("PCN", "SnowFlakeNet" or "PMPNet").
func ReferenceSpec(t *testing.T, arch string) string {
	t.Helper()
	path := filepath.Join(ReferenceSpecDir(t), "specs_train_"+arch+"_INTE.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("reference spec %s: %v", arch, err)
	}
	return path
}
