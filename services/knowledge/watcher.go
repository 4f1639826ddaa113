// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// Corpus Watcher
// =============================================================================

// corpusReloadDebounce batches the event bursts editors produce when
// saving a file.
const corpusReloadDebounce = 200 * time.Millisecond

// CorpusWatcher hot-reloads a corpus override file into a LocalStore.
//
// # Description
//
// The watcher observes the directory containing the override file, since
// editors commonly replace files by rename and a watch on the file itself
// would go stale. Write events are debounced, then the file is reparsed.
// A file that fails to parse is logged and the previous corpus stays in
// place, so a half-written save never degrades a running service.
//
// # Thread Safety
//
// Safe for concurrent use. Start and Stop may be called once each.
type CorpusWatcher struct {
	path    string
	store   *LocalStore
	watcher *fsnotify.Watcher

	done     chan struct{}
	stopOnce sync.Once
}

// NewCorpusWatcher creates a watcher for the corpus file at path, feeding
// reloads into store.
func NewCorpusWatcher(path string, store *LocalStore) (*CorpusWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving corpus path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	return &CorpusWatcher{
		path:    absPath,
		store:   store,
		watcher: watcher,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. The reload loop exits when ctx is canceled or
// Stop is called.
func (w *CorpusWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching corpus directory: %w", err)
	}

	go w.run(ctx)

	slog.Info("Watching corpus file for changes", slog.String("path", w.path))
	return nil
}

// Stop stops the watcher.
func (w *CorpusWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

// run is the debounced event loop.
func (w *CorpusWatcher) run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(corpusReloadDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(corpusReloadDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Corpus watcher error", slog.String("error", err.Error()))
		}
	}
}

// reload reparses the corpus file and swaps it into the store. Parse
// failures keep the previous corpus.
func (w *CorpusWatcher) reload() {
	corpus, err := LoadCorpusFile(w.path)
	if err != nil {
		corpusReloadErrors.Inc()
		slog.Error("Corpus reload failed, keeping previous corpus",
			slog.String("path", w.path),
			slog.String("error", err.Error()))
		return
	}

	w.store.swap(corpus)
	corpusReloadsTotal.Inc()
	slog.Info("Corpus reloaded",
		slog.String("path", w.path),
		slog.Int("articles", len(corpus.Articles)))
}

// WatchCorpusIfConfigured starts a watcher when TERE4AI_CORPUS_PATH points
// at an override file. Returns nil without error when no override is
// configured.
func WatchCorpusIfConfigured(ctx context.Context, store *LocalStore) (*CorpusWatcher, error) {
	path := os.Getenv(CorpusPathEnv)
	if path == "" {
		return nil, nil
	}

	watcher, err := NewCorpusWatcher(path, store)
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return nil, err
	}
	return watcher, nil
}
