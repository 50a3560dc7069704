// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ManuGH/chatrelay/internal/log"
)

// Watch observes the config file and invokes onChange with the freshly loaded
// configuration whenever it is rewritten. Load errors are logged and skipped;
// the running config stays untouched. Blocks until ctx is done.
func Watch(ctx context.Context, path, version string, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors and orchestrators replace the file, which
	// drops inode-level watches.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	logger := log.WithComponent("config-watch")
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := NewLoader(path, version).Load()
			if err != nil {
				logger.Warn().
					Err(err).
					Str("path", path).
					Msg("config reload skipped, file invalid")
				continue
			}
			logger.Info().
				Str("event", "config.reloaded").
				Str("path", path).
				Msg("configuration reloaded")
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}
