package display

import (
	"context"
	"image"
	"image/color"
	"log/slog"
)

// LogPanel is a panel that only logs. It stands in for real hardware on
// development machines and when panel initialization fails at startup.
type LogPanel struct {
	bounds image.Rectangle
}

// NewLogPanel creates a log-only panel with the given resolution.
func NewLogPanel(w, h int) *LogPanel {
	return &LogPanel{bounds: image.Rect(0, 0, w, h)}
}

func (p *LogPanel) Bounds() image.Rectangle { return p.bounds }

func (p *LogPanel) SetImage(img image.Image) error {
	slog.Debug("display: staged image", "size", img.Bounds().Size())
	return nil
}

func (p *LogPanel) SetBorder(c color.Color) error {
	return nil
}

func (p *LogPanel) Show(ctx context.Context) error {
	slog.Info("display: frame committed (log-only panel)")
	return nil
}
