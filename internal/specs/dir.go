// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package specs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// maxParallelLoads bounds concurrent file reads in LoadDir.
const maxParallelLoads = 8

// Result is the outcome of loading one file of a directory.
type Result struct {
	Path string
	Spec Spec
	Err  error
}

// OK reports whether the file loaded and validated.
func (r Result) OK() bool { return r.Err == nil }

// LoadDir loads and validates every record file directly inside dir.
// Results are sorted by path. A TAG already used by an earlier path marks the
// later result with ErrDuplicateTag. The returned error is reserved for
// failures to list the directory or a cancelled context.
func LoadDir(ctx context.Context, dir string) ([]Result, error) {
	paths, err := ListDir(dir)
	if err != nil {
		return nil, err
	}
	return LoadFiles(ctx, paths)
}

// ListDir returns the sorted spec files directly inside dir.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read spec dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsSpecFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadFiles loads and validates the given files concurrently, preserving order.
func LoadFiles(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			spec, err := LoadValidated(p)
			results[i] = Result{Path: p, Spec: spec, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	markDuplicateTags(results)
	return results, nil
}

func markDuplicateTags(results []Result) {
	firstByTag := make(map[string]string, len(results))
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			continue
		}
		if first, ok := firstByTag[r.Spec.Tag]; ok {
			r.Err = fmt.Errorf("%w: %q already defined in %s", ErrDuplicateTag, r.Spec.Tag, first)
			continue
		}
		firstByTag[r.Spec.Tag] = r.Path
	}
}
