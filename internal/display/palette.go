package display

import (
	"image"
	"image/color"
	"image/draw"
)

// The 7-colour panel renders a fixed ink set. Two reference palettes are
// blended by the saturation factor: at 0 the pure digital colours, at 1 the
// colours the inks actually produce on paper.
var (
	desaturatedPalette = [7]color.RGBA{
		{0, 0, 0, 255},       // black
		{255, 255, 255, 255}, // white
		{0, 255, 0, 255},     // green
		{0, 0, 255, 255},     // blue
		{255, 0, 0, 255},     // red
		{255, 255, 0, 255},   // yellow
		{255, 140, 0, 255},   // orange
	}
	saturatedPalette = [7]color.RGBA{
		{57, 48, 57, 255},
		{255, 255, 255, 255},
		{58, 91, 70, 255},
		{61, 59, 94, 255},
		{156, 72, 75, 255},
		{208, 190, 71, 255},
		{177, 106, 73, 255},
	}
)

// blendedPalette interpolates between the saturated and desaturated ink
// palettes. saturation must be in [0,1].
func blendedPalette(saturation float64) color.Palette {
	p := make(color.Palette, len(saturatedPalette))
	for i := range saturatedPalette {
		s, d := saturatedPalette[i], desaturatedPalette[i]
		p[i] = color.RGBA{
			R: blend(s.R, d.R, saturation),
			G: blend(s.G, d.G, saturation),
			B: blend(s.B, d.B, saturation),
			A: 255,
		}
	}
	return p
}

func blend(sat, desat uint8, f float64) uint8 {
	v := float64(sat)*f + float64(desat)*(1-f)
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

// ditherToPalette converts img to a paletted image over pal using
// Floyd-Steinberg error diffusion. The returned pixel values are ink
// indices ready for the panel frame buffer.
func ditherToPalette(img image.Image, pal color.Palette) *image.Paletted {
	dst := image.NewPaletted(img.Bounds(), pal)
	draw.FloydSteinberg.Draw(dst, img.Bounds(), img, img.Bounds().Min)
	return dst
}
