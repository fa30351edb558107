package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the policy from path whenever the file is written or replaced, until ctx is done.
// The containing directory is watched so that editors that rename over the file are picked up.
// A file that fails to compile is logged and the previous policy stays active.
func (e *OPAEvaluator) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}
	log := e.log.WithField("policy", target)

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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := e.LoadFile(ctx, target); err != nil {
				log.WithError(err).Warn("policy reload failed, keeping previous policy")
				continue
			}
			log.Info("policy reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("policy watcher error")
		}
	}
}
