package templates

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"cvbuilder/internal/shared/telemetry"
)

// Watch reloads the catalog from dir whenever catalog.yaml is written or
// replaced. Invalid files are logged and the current catalog is kept. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, dir string, catalog *Catalog) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so editors that replace the file by rename are seen.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	telemetry.Info("templates.watch", map[string]any{"dir": dir})

	target := filepath.Join(dir, CatalogFile)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			next, err := Load(dir)
			if err != nil {
				telemetry.Warn("templates.reload_failed", map[string]any{"dir": dir, "err": err})
				continue
			}
			catalog.Replace(next)
			telemetry.Info("templates.reloaded", map[string]any{"dir": dir, "count": len(next.List(""))})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			telemetry.Warn("templates.watch_error", map[string]any{"err": err})
		}
	}
}
