// SPDX-License-Identifier: MIT

// Package specset holds the validated set of training specs of a directory
// and reloads it when the directory changes.
package specset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	xglog "github.com/ManuGH/ibpcdc/internal/log"
	"github.com/ManuGH/ibpcdc/internal/metrics"
	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the watcher waits for a directory to settle
// before reloading.
const DefaultDebounce = 500 * time.Millisecond

// ErrInvalidSet is returned by Reload when any file of the directory fails to
// load, validate, or reuses a TAG.
var ErrInvalidSet = errors.New("spec set rejected")

// Entry is one record of a set and the file it came from.
type Entry struct {
	Path string     `json:"path"`
	Spec specs.Spec `json:"spec"`
}

// Set is an immutable snapshot of a spec directory.
type Set struct {
	byTag    map[string]Entry
	tags     []string
	LoadedAt time.Time
}

func newSet(entries []Entry, loadedAt time.Time) *Set {
	s := &Set{byTag: make(map[string]Entry, len(entries)), LoadedAt: loadedAt}
	for _, e := range entries {
		s.byTag[e.Spec.Tag] = e
		s.tags = append(s.tags, e.Spec.Tag)
	}
	sort.Strings(s.tags)
	return s
}

// Get returns the entry with the given TAG.
func (s *Set) Get(tag string) (Entry, bool) {
	e, ok := s.byTag[tag]
	return e, ok
}

// List returns the entries sorted by TAG.
func (s *Set) List() []Entry {
	out := make([]Entry, 0, len(s.tags))
	for _, tag := range s.tags {
		out = append(out, s.byTag[tag])
	}
	return out
}

// Len returns the number of records in the set.
func (s *Set) Len() int { return len(s.tags) }

// Holder owns the current set of a directory.
type Holder struct {
	dir      string
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.RWMutex
	current *Set

	reloadMu        sync.RWMutex
	reloadListeners []chan<- *Set

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New returns a holder for dir with an empty set. Call Reload to load it.
func New(dir string) *Holder {
	return &Holder{
		dir:      dir,
		debounce: DefaultDebounce,
		logger:   xglog.WithComponent("specset"),
		current:  newSet(nil, time.Time{}),
	}
}

// Dir returns the watched directory.
func (h *Holder) Dir() string { return h.dir }

// Current returns the active set.
func (h *Holder) Current() *Set {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Get looks up a TAG in the active set.
func (h *Holder) Get(tag string) (Entry, bool) {
	return h.Current().Get(tag)
}

// List returns the active set's entries sorted by TAG.
func (h *Holder) List() []Entry {
	return h.Current().List()
}

// Reload loads and validates every record file of the directory. The new set
// replaces the active one only when every file is valid and TAGs are unique;
// otherwise the active set is kept and the per-file errors are returned.
func (h *Holder) Reload(ctx context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "specset.reload_start").Str(xglog.FieldDir, h.dir).Msg("reloading spec set")

	results, err := specs.LoadDir(ctx, h.dir)
	if err != nil {
		metrics.IncSpecsetReload("failure")
		h.logger.Error().Err(err).Str(xglog.FieldEvent, "specset.reload_failed").Msg("failed to read spec directory")
		return fmt.Errorf("load spec dir: %w", err)
	}

	var (
		entries []Entry
		errs    []error
	)
	for _, r := range results {
		if !r.OK() {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(r.Path), r.Err))
			continue
		}
		entries = append(entries, Entry{Path: r.Path, Spec: r.Spec})
	}
	if len(errs) > 0 {
		metrics.IncSpecsetReload("failure")
		err := fmt.Errorf("%w: %w", ErrInvalidSet, errors.Join(errs...))
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "specset.validation_failed").
			Int("invalid_files", len(errs)).
			Msg("spec set failed validation, keeping previous set")
		return err
	}

	next := newSet(entries, time.Now())
	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	byArch := map[string]int{}
	for _, e := range entries {
		byArch[string(e.Spec.Architecture())]++
	}
	metrics.IncSpecsetReload("success")
	metrics.RecordSpecsLoaded(byArch)

	h.notifyListeners(next)
	h.logChanges(prev, next)

	h.logger.Info().
		Str(xglog.FieldEvent, "specset.reload_success").
		Int("specs", next.Len()).
		Msg("spec set reloaded")
	return nil
}

// StartWatcher reloads the set whenever a record file in the directory is
// written, created, removed or renamed. Bursts of events are coalesced into
// one reload after the debounce interval. The watcher stops when ctx is done
// or Stop is called.
func (h *Holder) StartWatcher(ctx context.Context) error {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if h.watcher != nil {
		return errors.New("spec watcher already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(h.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch spec dir: %w", err)
	}
	h.watcher = watcher
	h.done = make(chan struct{})

	h.logger.Info().
		Str(xglog.FieldEvent, "specset.watcher_started").
		Str(xglog.FieldDir, h.dir).
		Msg("watching spec directory for changes")

	go h.watchLoop(ctx, watcher, h.done)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer func() { _ = watcher.Close() }()

	var (
		timer  *time.Timer
		settle <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "specset.watcher_stopped").Msg("spec watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !specs.IsSpecFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "specset.file_changed").
				Str(xglog.FieldPath, event.Name).
				Str("op", event.Op.String()).
				Msg("spec file changed")

			if timer == nil {
				timer = time.NewTimer(h.debounce)
			} else {
				timer.Reset(h.debounce)
			}
			settle = timer.C

		case <-settle:
			settle = nil
			if err := h.Reload(ctx); err != nil {
				h.logger.Error().
					Err(err).
					Str(xglog.FieldEvent, "specset.auto_reload_failed").
					Msg("automatic spec reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "specset.watcher_error").
				Msg("spec watcher error")
		}
	}
}

// Stop stops the watcher, if running, and waits for it to exit.
func (h *Holder) Stop() {
	h.watchMu.Lock()
	watcher, done := h.watcher, h.done
	h.watcher, h.done = nil, nil
	h.watchMu.Unlock()

	if watcher == nil {
		return
	}
	_ = watcher.Close()
	<-done
}

// RegisterListener registers a channel that receives every newly activated
// set. Sends never block; a full channel misses the update.
func (h *Holder) RegisterListener(ch chan<- *Set) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *Holder) notifyListeners(next *Set) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- next:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "specset.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(prev, next *Set) {
	for _, tag := range next.tags {
		old, ok := prev.Get(tag)
		if !ok {
			h.logger.Info().Str(xglog.FieldEvent, "specset.added").Str(xglog.FieldTag, tag).Msg("spec added")
			continue
		}
		for _, c := range specs.Diff(old.Spec, next.byTag[tag].Spec) {
			h.logger.Info().
				Str(xglog.FieldEvent, "specset.changed").
				Str(xglog.FieldTag, tag).
				Str(xglog.FieldField, c.Path).
				Interface("old", c.Old).
				Interface("new", c.New).
				Msg("spec changed")
		}
	}
	for _, tag := range prev.tags {
		if _, ok := next.Get(tag); !ok {
			h.logger.Info().Str(xglog.FieldEvent, "specset.removed").Str(xglog.FieldTag, tag).Msg("spec removed")
		}
	}
}
