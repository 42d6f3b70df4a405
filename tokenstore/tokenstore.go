// Package tokenstore persists portal restore tokens so a daemon can
// re-establish its capability grant across restarts without showing the
// consent dialog again.
package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/amigadave/libportal/logger"
)

// Store holds one restore token in a file. Safe for concurrent use.
type Store struct {
	path string

	mu    sync.RWMutex
	token string
}

// New creates a store backed by the given file and loads the current
// token from it, if any.
func New(path string) *Store {
	s := &Store{path: path}
	s.reload()
	return s
}

// Token returns the current restore token, or "" when none is known.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Save persists a new token. An empty token removes the file, revoking
// the stored grant.
func (s *Store) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		s.token = ""
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, []byte(token), 0600); err != nil {
		return err
	}
	s.token = token
	return nil
}

// reload reads the token file from disk. A missing file means no token.
func (s *Store) reload() {
	data, err := os.ReadFile(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.token = ""
		return
	}
	s.token = strings.TrimSpace(string(data))
}

// Watch reloads the token when its file changes on disk, so an external
// edit or revocation takes effect for the next session. Returns after
// starting the watcher goroutine; the watcher stops with ctx.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: the file itself may not exist yet, and
	// editors replace files rather than writing in place.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		closeWatcher(watcher)
		return err
	}
	if err := watcher.Add(dir); err != nil {
		closeWatcher(watcher)
		return err
	}

	logger.Info("[tokenstore] watching %s", dir)
	go s.listen(ctx, watcher)
	return nil
}

func (s *Store) listen(ctx context.Context, watcher *fsnotify.Watcher) {
	defer closeWatcher(watcher)

	for {
		select {
		case <-ctx.Done():
			return

		case event, open := <-watcher.Events:
			if !open {
				return
			}
			if event.Name != s.path {
				continue
			}
			logger.Debug("[tokenstore] %s changed (%s), reloading", s.path, event.Op)
			s.reload()

		case err, open := <-watcher.Errors:
			if !open {
				return
			}
			logger.Error("[tokenstore] watcher error: %v", err)
		}
	}
}

func closeWatcher(watcher *fsnotify.Watcher) {
	if err := watcher.Close(); err != nil {
		logger.Warn("[tokenstore] failed to close watcher: %v", err)
	}
}
