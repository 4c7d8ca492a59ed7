// Package frame holds the refresh orchestration: fetch the current image
// reference, download it, fall back to the newest cached image when that
// fails, and commit the result to the panel. Every trigger in the daemon
// (scheduler, buttons, HTTP, cache watcher) funnels through here.
package frame

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/robr/muses-frame/internal/cache"
)

// Fetcher resolves the remote image reference.
type Fetcher interface {
	FetchReference(ctx context.Context) (string, error)
}

// Store persists downloaded images and serves the newest cached one.
type Store interface {
	Download(ctx context.Context, url string) (cache.Record, error)
	Latest() (cache.Record, error)
}

// Renderer commits a cached image to the panel.
type Renderer interface {
	Render(ctx context.Context, rec cache.Record) error
}

// Outcome describes how a refresh ended.
type Outcome string

const (
	OutcomeFresh        Outcome = "fresh"         // new image downloaded and shown
	OutcomeFallback     Outcome = "fallback"      // cached image shown
	OutcomeSkipped      Outcome = "skipped"       // nothing to show, panel untouched
	OutcomeRenderFailed Outcome = "render_failed" // image available but render failed
)

// Status is a snapshot of the coordinator for the HTTP API.
type Status struct {
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success"`
	LastImage   string    `json:"last_image"`
	LastOutcome Outcome   `json:"last_outcome"`
	Refreshes   int       `json:"refreshes"`
}

// Coordinator composes fetcher, store, and renderer into one idempotent
// refresh operation. Refreshes from concurrent triggers serialize on an
// internal mutex; an e-paper refresh takes tens of seconds and overlapping
// ones are never useful.
type Coordinator struct {
	fetcher  Fetcher
	store    Store
	renderer Renderer

	// limiter drops triggers arriving faster than the panel can refresh.
	// nil means unlimited.
	limiter *rate.Limiter

	mu sync.Mutex // serializes whole refreshes

	statusMu sync.Mutex
	status   Status

	now func() time.Time
}

// New creates a Coordinator. minInterval is the floor between two
// refreshes; zero disables rate limiting.
func New(fetcher Fetcher, store Store, renderer Renderer, minInterval time.Duration) *Coordinator {
	c := &Coordinator{
		fetcher:  fetcher,
		store:    store,
		renderer: renderer,
		now:      time.Now,
	}
	if minInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return c
}

// Refresh fetches the current reference, downloads it, and updates the
// display, falling back to the newest cached image when anything upstream
// fails. It never returns an error: every failure is logged and absorbed,
// and with nothing at all to show the panel simply keeps its last frame.
func (c *Coordinator) Refresh(ctx context.Context) {
	if c.limiter != nil && !c.limiter.Allow() {
		slog.Info("refresh suppressed by rate limit")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log := slog.With("refresh", uuid.NewString()[:8])
	log.Info("refreshing image")

	outcome := OutcomeFresh
	var rec cache.Record
	have := false

	url, err := c.fetcher.FetchReference(ctx)
	if err != nil {
		log.Error("fetching image reference failed", "err", err)
	} else {
		log.Info("fetched image reference", "url", url)
		rec, err = c.store.Download(ctx, url)
		if err != nil {
			log.Error("downloading image failed", "url", url, "err", err)
		} else {
			log.Info("saved new image", "path", rec.Path)
			have = true
		}
	}

	if !have {
		log.Warn("falling back to last saved image")
		rec, err = c.store.Latest()
		if err != nil {
			log.Warn("no image available, skipping display update", "err", err)
			c.record(OutcomeSkipped, "")
			return
		}
		have = true
		outcome = OutcomeFallback
	}

	c.render(ctx, log, rec, outcome)
}

// RenderLatest shows the newest cached image without touching the network.
// Used at startup and when an image appears in the cache out-of-band.
func (c *Coordinator) RenderLatest(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := slog.With("refresh", uuid.NewString()[:8])
	rec, err := c.store.Latest()
	if err != nil {
		log.Warn("no cached image to display", "err", err)
		c.record(OutcomeSkipped, "")
		return
	}
	c.render(ctx, log, rec, OutcomeFallback)
}

func (c *Coordinator) render(ctx context.Context, log *slog.Logger, rec cache.Record, outcome Outcome) {
	if err := c.renderer.Render(ctx, rec); err != nil {
		log.Error("display update failed", "image", rec.Path, "err", err)
		c.record(OutcomeRenderFailed, rec.Path)
		return
	}
	log.Info("display updated", "image", rec.Path, "outcome", outcome)
	c.record(outcome, rec.Path)
}

func (c *Coordinator) record(outcome Outcome, imagePath string) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	now := c.now()
	c.status.LastAttempt = now
	c.status.LastOutcome = outcome
	c.status.Refreshes++
	if outcome == OutcomeFresh || outcome == OutcomeFallback {
		c.status.LastSuccess = now
		c.status.LastImage = imagePath
	}
}

// Status returns a snapshot of the coordinator state.
func (c *Coordinator) Status() Status {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.status
}
