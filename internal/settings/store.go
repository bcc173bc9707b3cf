// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package settings persists the small set of user-editable preferences as
// a JSON document next to the agent. The store never fails the caller:
// a missing or malformed file yields defaults and saves are best-effort.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// Settings is the persisted document. An empty CustomUsername means the
// OS account name is used.
type Settings struct {
	CustomUsername string `json:"custom_username"`
}

// Store holds the current settings and keeps them in sync with the file
// on disk, including edits made by other programs.
type Store struct {
	logger logr.Logger
	path   string

	mu      sync.RWMutex
	current Settings

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewStore loads settings from path. Missing or unparseable files produce
// defaults, never an error.
func NewStore(logger logr.Logger, path string) *Store {
	s := &Store{
		logger: logger.WithName("settings"),
		path:   path,
		done:   make(chan struct{}),
	}
	s.current = s.load()
	return s
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the current settings and writes them to disk. A failed
// write keeps the in-memory value and is only logged.
func (s *Store) Set(settings Settings) {
	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		s.logger.Error(err, "failed to encode settings")
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Error(err, "failed to save settings", "path", s.path)
	}
}

// Watch starts reloading the store whenever the file changes on disk.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	// Watch the directory: editors replace files rather than write in
	// place, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	s.watcher = watcher
	s.wg.Add(1)
	go s.processEvents()
	return nil
}

func (s *Store) Close() error {
	close(s.done)
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.wg.Wait()
	return err
}

func (s *Store) processEvents() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				s.logger.V(1).Info("settings file changed on disk, reloading")
				loaded := s.load()
				s.mu.Lock()
				s.current = loaded
				s.mu.Unlock()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error(err, "filesystem watcher error")
		}
	}
}

func (s *Store) load() Settings {
	var settings Settings
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.V(1).Info("failed to read settings, using defaults", "error", err)
		}
		return settings
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		s.logger.V(1).Info("failed to parse settings, using defaults", "error", err)
		return Settings{}
	}
	return settings
}
