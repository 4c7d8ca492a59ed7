package display

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/robr/muses-frame/internal/cache"
)

// writeTestImage writes a w x h PNG and returns a Record for it.
func writeTestImage(t *testing.T, w, h int) cache.Record {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "20260826_120000.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return cache.Record{Path: path, ModTime: info.ModTime()}
}

func TestRenderScalesToPanel(t *testing.T) {
	rec := writeTestImage(t, 100, 80)
	panel := NewMock(60, 40)
	r := NewRenderer(panel, 0.8)

	if err := r.Render(context.Background(), rec); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if panel.Shows() != 1 {
		t.Errorf("Shows = %d, want 1", panel.Shows())
	}
	got := panel.LastImage()
	if got == nil {
		t.Fatal("no image staged")
	}
	if got.Bounds().Dx() != 60 || got.Bounds().Dy() != 40 {
		t.Errorf("staged image is %v, want 60x40", got.Bounds().Size())
	}
}

func TestRenderUsesSaturationWhenSupported(t *testing.T) {
	rec := writeTestImage(t, 60, 40)

	sat := NewSatMock(60, 40)
	if err := NewRenderer(sat, 0.8).Render(context.Background(), rec); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := sat.LastSaturation(); got != 0.8 {
		t.Errorf("saturation = %v, want 0.8", got)
	}

	plain := NewMock(60, 40)
	if err := NewRenderer(plain, 0.8).Render(context.Background(), rec); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := plain.LastSaturation(); got != -1 {
		t.Errorf("plain panel got saturation %v, want none", got)
	}
}

func TestRenderErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		panel := NewMock(60, 40)
		rec := cache.Record{Path: filepath.Join(t.TempDir(), "gone.png")}
		if err := NewRenderer(panel, 0.8).Render(context.Background(), rec); err == nil {
			t.Fatal("expected error for missing file")
		}
		if panel.Shows() != 0 {
			t.Errorf("Shows = %d, want 0", panel.Shows())
		}
	})

	t.Run("undecodable file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.png")
		if err := os.WriteFile(path, []byte("not a png"), 0o644); err != nil {
			t.Fatal(err)
		}
		panel := NewMock(60, 40)
		err := NewRenderer(panel, 0.8).Render(context.Background(), cache.Record{Path: path})
		if err == nil {
			t.Fatal("expected decode error")
		}
	})

	t.Run("show failure propagates", func(t *testing.T) {
		rec := writeTestImage(t, 60, 40)
		panel := NewMock(60, 40)
		panel.SetFailShow(true)
		if err := NewRenderer(panel, 0.8).Render(context.Background(), rec); err == nil {
			t.Fatal("expected show error")
		}
	})
}

func TestBlendedPalette(t *testing.T) {
	// At saturation 0 the palette is the pure digital colours.
	p0 := blendedPalette(0)
	if p0[4] != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("red at saturation 0 = %v", p0[4])
	}
	// At saturation 1 it is the measured ink colours.
	p1 := blendedPalette(1)
	if p1[4] != (color.RGBA{156, 72, 75, 255}) {
		t.Errorf("red at saturation 1 = %v", p1[4])
	}
	if len(p0) != 7 || len(p1) != 7 {
		t.Errorf("palette sizes %d/%d, want 7", len(p0), len(p1))
	}
}

func TestDitherToPaletteIndices(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: 128, B: uint8(y * 32), A: 255})
		}
	}
	out := ditherToPalette(img, blendedPalette(0.5))
	for _, px := range out.Pix {
		if px > 6 {
			t.Fatalf("pixel index %d out of ink range", px)
		}
	}
}
