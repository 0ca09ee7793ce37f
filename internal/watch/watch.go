/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package watch re-runs a callback when notation files change on disk,
// collapsing save bursts into one invocation. It backs `vna lint --watch`.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "vna/internal/log"
)

// DefaultDebounce is how long the watcher waits after the last change
// before invoking the callback. Editors tend to emit several events per
// save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher tracks a fixed set of files and directories. For a directory,
// any .vna file inside it counts; for a file, only that path. The
// callback runs on the watcher's own goroutine with the sorted list of
// changed paths.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]bool
	dirs     map[string]bool
	debounce time.Duration
	onChange func(changed []string)
	log      *slog.Logger
	done     chan struct{}
}

// New starts watching the given paths. Every path must exist; the
// directories containing watched files are registered with the OS
// watcher, so a file can be replaced by rename and still be seen.
func New(paths []string, debounce time.Duration, onChange func(changed []string)) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("nothing to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		debounce: debounce,
		onChange: onChange,
		log:      applog.WithComponent("watch"),
		done:     make(chan struct{}),
	}

	watched := map[string]bool{}
	add := func(dir string) error {
		if watched[dir] {
			return nil
		}
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		watched[dir] = true
		return nil
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		if info.IsDir() {
			w.dirs[abs] = true
			if err := add(abs); err != nil {
				_ = fsw.Close()
				return nil, err
			}
		} else {
			w.files[abs] = true
			if err := add(filepath.Dir(abs)); err != nil {
				_ = fsw.Close()
				return nil, err
			}
		}
	}

	go w.loop()
	return w, nil
}

// Close stops the watcher. Pending debounced changes are dropped.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	pending := map[string]bool{}
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(ev.Name)
			if !w.tracks(name) {
				continue
			}
			pending[name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = map[string]bool{}
			timer = nil
			fire = nil
			w.log.Debug("files changed", slog.Int("count", len(changed)))
			w.onChange(changed)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", slog.Any("err", err))
		}
	}
}

// tracks reports whether an event path belongs to the watched set.
func (w *Watcher) tracks(name string) bool {
	if w.files[name] {
		return true
	}
	if !strings.EqualFold(filepath.Ext(name), ".vna") {
		return false
	}
	return w.dirs[filepath.Dir(name)]
}
