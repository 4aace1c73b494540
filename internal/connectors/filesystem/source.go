// Package filesystem lists and watches input documents in a local folder.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("source closed")

// Source reads the top level of a data folder. Hidden files and
// subdirectories are ignored.
type Source struct {
	root string

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// New creates a source over root.
func New(root string) *Source {
	return &Source{root: root}
}

// Root returns the watched folder.
func (s *Source) Root() string {
	return s.root
}

// List returns the visible regular files in root, sorted by name.
func (s *Source) List(ctx context.Context) ([]driven.SourceFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := s.validateRoot()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}

	files := make([]driven.SourceFile, 0, len(entries))
	for _, e := range entries {
		if isHidden(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, driven.SourceFile{Name: e.Name(), Path: filepath.Join(abs, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Watch emits created or written files until ctx is cancelled.
func (s *Source) Watch(ctx context.Context) (<-chan driven.SourceFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	abs, err := s.validateRoot()
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(abs); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}
	s.watchers = append(s.watchers, watcher)

	changes := make(chan driven.SourceFile)
	go s.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (s *Source) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- driven.SourceFile) {
	defer close(changes)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			file := s.handleFsEvent(event)
			if file == nil {
				continue
			}
			select {
			case changes <- *file:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error on %s: %v", s.root, err)
		}
	}
}

// handleFsEvent maps an event to a source file, or nil if it is not a
// create or write of a visible regular file. Writes are reported too so a
// file still being copied in triggers a run once it settles; ingestion skips
// names it has already processed.
func (s *Source) handleFsEvent(event fsnotify.Event) *driven.SourceFile {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return nil
	}
	name := filepath.Base(event.Name)
	if isHidden(name) {
		return nil
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	return &driven.SourceFile{Name: name, Path: event.Name}
}

// Close stops every watcher. Watch fails afterwards.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var errs []error
	for _, w := range s.watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.watchers = nil
	return errors.Join(errs...)
}

func (s *Source) validateRoot() (string, error) {
	if s.root == "" {
		return "", errors.New("root path error: empty path")
	}
	abs, err := filepath.Abs(s.root)
	if err != nil {
		return "", fmt.Errorf("root path error: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root path error: %s is not a directory", abs)
	}
	return abs, nil
}

// isHidden reports whether any element of path starts with a dot,
// ignoring "." and "..".
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
