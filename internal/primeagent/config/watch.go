package config

import (
	"context"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/prime-system/prime-agent/pkg/logger"
	"github.com/prime-system/prime-agent/pkg/utils/safego"
)

// debounceWindow coalesces the burst of fsnotify events a single editor
// save typically produces, the same debounce idiom the teacher's
// WorkspaceLoader uses for its own file watch
// (internal/hivemind/.../runtime/prompt/workspace.go).
const debounceWindow = 500 * time.Millisecond

// Store holds the live Config snapshot behind an atomic pointer so readers
// never observe a partially applied reload: Reload builds a brand new
// *Config and swaps it in only after a successful parse, per the Design
// Notes' "invalid reload preserves the previous in-memory snapshot" rule.
type Store struct {
	path    string
	current atomic.Pointer[Config]

	watcher *fsnotify.Watcher
	closeCh chan struct{}
}

// NewStore loads path once (or falls back to Default() when path is empty)
// and returns a Store ready to serve Current().
func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, closeCh: make(chan struct{})}
	s.current.Store(cfg)
	return s, nil
}

// Current returns the live snapshot. Callers must not mutate it.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// ApplyOverrides swaps in a copy of the current snapshot with fn applied,
// for one-time command-line overrides at startup (before Watch is
// running, so there is no concurrent reader to race).
func (s *Store) ApplyOverrides(fn func(*Config)) {
	next := *s.current.Load()
	fn(&next)
	s.current.Store(&next)
}

// Reload re-reads the config file and swaps the snapshot in on success. It
// returns the names of top-level sections whose serialized form changed
// (SPEC_FULL.md §E's reload-diff), or an error if the file failed to
// parse — in which case the previous snapshot is left untouched.
func (s *Store) Reload() ([]string, error) {
	next, err := Load(s.path)
	if err != nil {
		logger.ErrorX(moduleName, "config reload failed, keeping previous snapshot: %v", err)
		return nil, err
	}

	prev := s.current.Load()
	changed := diffSections(prev, next)
	s.current.Store(next)
	logger.InfoX(moduleName, "config reloaded, changed sections: %v", changed)
	return changed, nil
}

// diffSections compares each top-level field of Config by value, returning
// the mapstructure-tag name of every field that differs.
func diffSections(a, b *Config) []string {
	if a == nil || b == nil {
		return nil
	}
	var changed []string
	av, bv := reflect.ValueOf(*a), reflect.ValueOf(*b)
	t := av.Type()
	for i := 0; i < t.NumField(); i++ {
		if !reflect.DeepEqual(av.Field(i).Interface(), bv.Field(i).Interface()) {
			name := t.Field(i).Tag.Get("mapstructure")
			if name == "" {
				name = t.Field(i).Name
			}
			changed = append(changed, name)
		}
	}
	return changed
}

// Watch starts a background fsnotify watcher on the config file's parent
// directory and calls Reload on every debounced write/create event. A
// missing or empty path is a no-op: there is nothing to watch.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	safego.Go(ctx, func() { s.watchLoop(ctx) })
	return nil
}

func (s *Store) watchLoop(ctx context.Context) {
	var debounce *time.Timer
	fire := func() {
		if _, err := s.Reload(); err != nil {
			logger.WarnX(moduleName, "config hot-reload skipped a bad revision: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeCh:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, fire)
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the background watcher, if one was started.
func (s *Store) Close() {
	close(s.closeCh)
	if s.watcher != nil {
		s.watcher.Close()
	}
}
