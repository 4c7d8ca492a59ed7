package cache

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces bursts of filesystem events (e.g. rsync writing
// several images) into one notification.
const debounceDelay = 2 * time.Second

// Watch reports images that appear in the cache directory from outside the
// daemon (scp, rsync, a cron job) by calling onNew after a short debounce.
// The cache's own downloads are ignored. Blocks until ctx is cancelled.
func (c *Cache) Watch(ctx context.Context, onNew func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}
	slog.Info("cache: watching image directory", "dir", c.dir)

	var debounce *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, imageExt) || c.wroteRecently(name) {
				continue
			}
			slog.Info("cache: new image appeared out-of-band", "file", name)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			onNew()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("cache: watcher error", "err", err)
		}
	}
}
