// Package display renders cached images onto the e-paper panel.
// It defines the Panel interface implemented by both the real Inky driver
// and the mock panel used in tests.
package display

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"

	// The cache stores PNG, but out-of-band images may be anything.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/robr/muses-frame/internal/cache"
)

// Panel is the minimal surface an e-paper panel must provide.
type Panel interface {
	// Bounds returns the panel's fixed resolution.
	Bounds() image.Rectangle

	// SetImage stages img into the panel's frame buffer.
	SetImage(img image.Image) error

	// SetBorder sets the border color around the active area.
	SetBorder(c color.Color) error

	// Show commits the staged frame to the physical panel. E-paper
	// refreshes are slow; Show blocks until the panel is done or ctx
	// is cancelled.
	Show(ctx context.Context) error
}

// SaturationPanel is implemented by panels that support saturation control
// when staging an image. The renderer checks for it once per render instead
// of probing with a call that may fail.
type SaturationPanel interface {
	Panel
	SetImageWithSaturation(img image.Image, saturation float64) error
}

// Renderer scales images to the panel resolution and commits them.
type Renderer struct {
	panel      Panel
	saturation float64
}

// NewRenderer creates a Renderer for panel. saturation is used only when
// the panel supports it.
func NewRenderer(panel Panel, saturation float64) *Renderer {
	return &Renderer{panel: panel, saturation: saturation}
}

// Render loads the image behind rec, scales it to the panel resolution and
// commits it with a black border. Errors are returned for the caller to
// log; a failed render leaves the panel showing its previous frame.
func (r *Renderer) Render(ctx context.Context, rec cache.Record) error {
	f, err := os.Open(rec.Path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	scaled := scaleToPanel(img, r.panel.Bounds())

	if sp, ok := r.panel.(SaturationPanel); ok {
		err = sp.SetImageWithSaturation(scaled, r.saturation)
	} else {
		err = r.panel.SetImage(scaled)
	}
	if err != nil {
		return fmt.Errorf("set image: %w", err)
	}

	if err := r.panel.SetBorder(color.Black); err != nil {
		return fmt.Errorf("set border: %w", err)
	}
	if err := r.panel.Show(ctx); err != nil {
		return fmt.Errorf("show: %w", err)
	}
	return nil
}

// scaleToPanel resizes img to exactly fill bounds. The panel aspect ratio
// wins; the source is stretched like the original frame always did.
func scaleToPanel(img image.Image, bounds image.Rectangle) image.Image {
	if img.Bounds().Dx() == bounds.Dx() && img.Bounds().Dy() == bounds.Dy() {
		return img
	}
	dst := image.NewRGBA(bounds)
	xdraw.CatmullRom.Scale(dst, bounds, img, img.Bounds(), xdraw.Src, nil)
	return dst
}
