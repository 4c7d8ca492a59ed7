// Command musesframe is the e-paper photo frame daemon. It refreshes the
// display at the top of every hour and on a button press, pulling the
// current image from the muses API and falling back to the local cache
// whenever the network lets it down. Run with --mock to use a log-only
// panel and no GPIO (no frame hardware required).
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robr/muses-frame/internal/api"
	"github.com/robr/muses-frame/internal/cache"
	"github.com/robr/muses-frame/internal/config"
	"github.com/robr/muses-frame/internal/display"
	"github.com/robr/muses-frame/internal/fetcher"
	"github.com/robr/muses-frame/internal/frame"
	"github.com/robr/muses-frame/internal/input"
	"github.com/robr/muses-frame/internal/sched"
	"github.com/robr/muses-frame/internal/zeroconf"
)

func main() {
	var (
		mock    = flag.Bool("mock", false, "use log-only panel and no GPIO (no frame hardware required)")
		debug   = flag.Bool("debug", false, "enable debug logging")
		envFile = flag.String("env", "", "path to .env file (default: ./.env if present)")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := setupLogging(cfg.LogFile, *debug); err != nil {
		slog.Error("cannot open log file", "path", cfg.LogFile, "err", err)
		os.Exit(1)
	}

	slog.Info("musesframe starting",
		"api", cfg.APIURL,
		"image_dir", cfg.ImageDir,
		"trigger", cfg.TriggerButton,
		"mock", *mock,
	)

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := cache.New(cfg.ImageDir, nil)
	if err != nil {
		slog.Error("cannot set up image cache", "err", err)
		os.Exit(1)
	}

	// Panel: real Inky hardware, or the log-only panel when running with
	// --mock or when hardware init fails. A frame with a broken panel
	// connection should still cache images for when it comes back.
	var panel display.Panel
	if *mock {
		slog.Info("using log-only panel")
		panel = display.NewLogPanel(600, 448)
	} else {
		inky, err := display.NewInky(display.DefaultInkyConfig())
		if err != nil {
			slog.Warn("panel init failed, falling back to log-only panel", "err", err)
			panel = display.NewLogPanel(600, 448)
		} else {
			defer inky.Close()
			panel = inky
		}
	}

	renderer := display.NewRenderer(panel, cfg.Saturation)
	coord := frame.New(
		fetcher.New(cfg.APIURL, nil),
		store,
		renderer,
		cfg.MinRefreshInterval,
	)

	// Button listener
	if !*mock {
		events, release, err := input.OpenButtons(cfg.GPIOChip, cfg.ButtonOffsets)
		if err != nil {
			slog.Warn("button input unavailable", "chip", cfg.GPIOChip, "err", err)
		} else {
			defer release()
			go input.New(events, cfg.ButtonOffsets, cfg.TriggerButton, coord).Run(ctx)
		}
	}

	// Re-render when images are dropped into the cache directory by hand.
	go func() {
		if err := store.Watch(ctx, func() { coord.RenderLatest(ctx) }); err != nil {
			slog.Warn("cache watcher unavailable", "err", err)
		}
	}()

	// Status API
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(coord, store),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		slog.Info("http: listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "err", err)
			cancel()
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	// mDNS advertisement
	go func() {
		name, err := os.Hostname()
		if err != nil || name == "" {
			name = "muses-frame"
		}
		if err := zeroconf.New(name, httpPort(cfg.HTTPAddr)).Start(ctx); err != nil {
			slog.Warn("zeroconf unavailable", "err", err)
		}
	}()

	// Show something immediately instead of waiting for the first boundary.
	coord.Refresh(ctx)

	// Hourly refresh loop runs on the main goroutine until shutdown.
	sched.New(coord).Run(ctx)

	slog.Info("musesframe stopped")
}

// setupLogging points slog at stderr, plus an append-only log file when
// configured.
func setupLogging(logFile string, debug bool) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

// httpPort extracts the port from a listen address for mDNS registration.
func httpPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 80
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 80
	}
	return port
}
