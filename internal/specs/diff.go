// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package specs

import (
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Change is one differing key between two records.
type Change struct {
	Path string `json:"path"`
	Old  any    `json:"old"`
	New  any    `json:"new"`
}

// Diff compares two records and returns the changed keys in document order.
func Diff(old, next Spec) []Change {
	var r changeReporter
	cmp.Equal(old, next, cmp.Reporter(&r))
	return r.changes
}

// changeReporter collects leaf differences with their file key paths.
type changeReporter struct {
	path    cmp.Path
	changes []Change
}

func (r *changeReporter) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *changeReporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	vx, vy := r.path.Last().Values()
	r.changes = append(r.changes, Change{
		Path: keyPath(r.path),
		Old:  valueOf(vx),
		New:  valueOf(vy),
	})
}

func (r *changeReporter) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

// keyPath renders a cmp.Path using the serialized key names.
func keyPath(p cmp.Path) string {
	var parts []string
	for i, step := range p {
		sf, ok := step.(cmp.StructField)
		if !ok || i == 0 {
			continue
		}
		parent := p[i-1].Type()
		name := sf.Name()
		if f, found := parent.FieldByName(name); found {
			if tag := f.Tag.Get("json"); tag != "" {
				if key, _, _ := strings.Cut(tag, ","); key != "" {
					name = key
				}
			}
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ".")
}

func valueOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}
