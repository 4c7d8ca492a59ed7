package display

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// Mock is a thread-safe in-memory panel for testing. It records every call
// so tests can assert on what was staged and shown.
type Mock struct {
	mu         sync.Mutex
	bounds     image.Rectangle
	images     []image.Image
	saturation []float64 // parallel to images; -1 for plain SetImage
	borders    []color.Color
	shows      int
	failSet    bool
	failShow   bool
}

// NewMock creates a mock panel with the given resolution.
func NewMock(w, h int) *Mock {
	return &Mock{bounds: image.Rect(0, 0, w, h)}
}

// SetFailSet configures the mock to fail SetImage calls.
func (m *Mock) SetFailSet(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSet = fail
}

// SetFailShow configures the mock to fail Show calls.
func (m *Mock) SetFailShow(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failShow = fail
}

func (m *Mock) Bounds() image.Rectangle { return m.bounds }

func (m *Mock) SetImage(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errMock("set image failure configured")
	}
	m.images = append(m.images, img)
	m.saturation = append(m.saturation, -1)
	return nil
}

func (m *Mock) SetBorder(c color.Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.borders = append(m.borders, c)
	return nil
}

func (m *Mock) Show(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failShow {
		return errMock("show failure configured")
	}
	m.shows++
	return nil
}

// Shows returns the number of committed frames.
func (m *Mock) Shows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shows
}

// LastImage returns the most recently staged image, or nil.
func (m *Mock) LastImage() image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.images) == 0 {
		return nil
	}
	return m.images[len(m.images)-1]
}

// LastSaturation returns the saturation of the most recent staging, or -1
// when the plain SetImage path was used.
func (m *Mock) LastSaturation() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saturation) == 0 {
		return -1
	}
	return m.saturation[len(m.saturation)-1]
}

// SatMock is a Mock that additionally supports saturation control, for
// exercising the renderer's capability check.
type SatMock struct {
	Mock
}

// NewSatMock creates a saturation-capable mock panel.
func NewSatMock(w, h int) *SatMock {
	return &SatMock{Mock: Mock{bounds: image.Rect(0, 0, w, h)}}
}

func (m *SatMock) SetImageWithSaturation(img image.Image, saturation float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errMock("set image failure configured")
	}
	m.images = append(m.images, img)
	m.saturation = append(m.saturation, saturation)
	return nil
}

type errMock string

func (e errMock) Error() string { return "mock: " + string(e) }
