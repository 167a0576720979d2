package review

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch recomputes the diff whenever either input file is written and
// hands the result to fn. It runs until the context is canceled. The
// initial comparison is delivered before any file event.
func Watch(ctx context.Context, originalPath, correctedPath string, fn func([]Block, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the parent directories: editors and the pipeline replace
	// files rather than writing in place, which drops per-file watches.
	dirs := map[string]struct{}{
		filepath.Dir(originalPath):  {},
		filepath.Dir(correctedPath): {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	watched := map[string]struct{}{
		filepath.Clean(originalPath):  {},
		filepath.Clean(correctedPath): {},
	}

	fn(CompareFiles(originalPath, correctedPath))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, relevant := watched[filepath.Clean(event.Name)]; !relevant {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fn(CompareFiles(originalPath, correctedPath))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fn(nil, err)
		}
	}
}
