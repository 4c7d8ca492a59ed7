// Package cache downloads images and persists them to a flat, append-only
// directory so the frame always has something to fall back on.
package cache

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	// Accept whatever raster format the image endpoint serves.
	_ "image/gif"
	_ "image/jpeg"
)

const (
	requestTimeout = 10 * time.Second

	// timestampFormat names cache files so they sort chronologically.
	timestampFormat = "20060102_150405"

	imageExt = ".png"
)

// Record identifies one persisted image in the cache directory.
type Record struct {
	Path    string
	ModTime time.Time
}

// Cache manages the image directory. The directory only ever grows; records
// are never mutated or pruned.
type Cache struct {
	dir    string
	client *http.Client
	now    func() time.Time

	mu     sync.Mutex
	writes map[string]time.Time // own recent writes, so the watcher skips them
}

// New creates a Cache rooted at dir, creating the directory if needed.
// client may be nil for a default 10 second timeout client.
func New(dir string, client *http.Client) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Cache{
		dir:    dir,
		client: client,
		now:    time.Now,
		writes: make(map[string]time.Time),
	}, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string { return c.dir }

// Download fetches the image at url, decodes it to verify it is a real
// raster image, and persists it as PNG under a timestamp-derived name.
// Two downloads within the same clock second target the same name; the
// later one wins. That collision window is accepted.
func (c *Cache) Download(ctx context.Context, url string) (Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Record{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Record{}, fmt.Errorf("image endpoint returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return Record{}, fmt.Errorf("decode image: %w", err)
	}

	name := c.now().Format(timestampFormat) + imageExt
	path := filepath.Join(c.dir, name)
	if err := c.writeAtomic(path, img); err != nil {
		return Record{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Record{}, fmt.Errorf("stat written image: %w", err)
	}

	c.rememberWrite(name)
	return Record{Path: path, ModTime: info.ModTime()}, nil
}

// writeAtomic encodes img as PNG into a temp file in the cache directory
// and renames it into place, so Latest never sees a half-written image.
func (c *Cache) writeAtomic(path string, img image.Image) error {
	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into cache: %w", err)
	}
	return nil
}

// Latest returns the cached image with the most recent modification time.
// An empty or unreadable directory is an error; the caller treats it as
// "no fallback available".
func (c *Cache) Latest() (Record, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return Record{}, fmt.Errorf("read image directory: %w", err)
	}

	var best Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), imageExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best.Path == "" || info.ModTime().After(best.ModTime) {
			best = Record{Path: filepath.Join(c.dir, e.Name()), ModTime: info.ModTime()}
		}
	}

	if best.Path == "" {
		return Record{}, fmt.Errorf("no cached images in %s", c.dir)
	}
	return best, nil
}

func (c *Cache) rememberWrite(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.writes[name] = now
	// Drop stale entries so the map does not grow with the cache.
	for n, t := range c.writes {
		if now.Sub(t) > time.Minute {
			delete(c.writes, n)
		}
	}
}

// wroteRecently reports whether the cache itself created name within the
// last minute. Used by the watcher to ignore the daemon's own downloads.
func (c *Cache) wroteRecently(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.writes[name]
	return ok && c.now().Sub(t) <= time.Minute
}
