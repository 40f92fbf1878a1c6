package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-labeler/pkg/types"
)

var gray = color.NRGBA{128, 128, 128, 255}

func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, gray)
		}
	}
	return img
}

func box(x, y, w, h, label int) types.Box {
	return types.Box{Rect: types.Rect{X: x, Y: y, W: w, H: h}, Label: label}
}

func TestOverlayDrawsOutline(t *testing.T) {
	src := createTestImage(100, 100)
	opts := DefaultOptions()
	opts.ShowLabels = false

	out := Overlay(src, []types.Box{box(20, 30, 40, 20, 0)}, nil, opts)
	red := opts.BoxColor

	assert.Equal(t, red, out.NRGBAAt(20, 30))
	assert.Equal(t, red, out.NRGBAAt(21, 31))
	assert.Equal(t, red, out.NRGBAAt(59, 49))
	assert.Equal(t, red, out.NRGBAAt(40, 30))
	assert.Equal(t, gray, out.NRGBAAt(22, 32), "stroke is two pixels")
	assert.Equal(t, gray, out.NRGBAAt(40, 40), "interior untouched")
	assert.Equal(t, gray, out.NRGBAAt(60, 50), "outside untouched")
}

func TestOverlayDoesNotMutateInput(t *testing.T) {
	src := createTestImage(50, 50)
	Overlay(src, []types.Box{box(5, 5, 20, 20, 3)}, nil, DefaultOptions())
	assert.Equal(t, gray, src.NRGBAAt(5, 5))
}

func TestOverlayCanonicalizesAndClips(t *testing.T) {
	src := createTestImage(40, 40)
	opts := DefaultOptions()
	opts.ShowLabels = false

	require.NotPanics(t, func() {
		Overlay(src, []types.Box{box(-10, -10, 100, 100, 0), box(200, 200, 5, 5, 0)}, nil, opts)
	})

	out := Overlay(src, []types.Box{box(30, 30, -20, -20, 0)}, nil, opts)
	assert.Equal(t, opts.BoxColor, out.NRGBAAt(10, 10))
	assert.Equal(t, opts.BoxColor, out.NRGBAAt(29, 29))
}

func TestOverlayGesture(t *testing.T) {
	src := createTestImage(60, 60)
	opts := DefaultOptions()
	opts.GestureColor = color.NRGBA{0, 0, 255, 255}

	gesture := types.Rect{X: 10, Y: 10, W: 20, H: 20}
	out := Overlay(src, nil, &gesture, opts)
	assert.Equal(t, opts.GestureColor, out.NRGBAAt(10, 10))
	assert.Equal(t, gray, out.NRGBAAt(20, 20))
}

func TestOverlayDrawsLabelText(t *testing.T) {
	src := createTestImage(80, 80)
	opts := DefaultOptions()

	out := Overlay(src, []types.Box{box(10, 40, 30, 30, 7)}, nil, opts)

	// glyph cell sits above the top edge, starting two pixels right of it
	touched := false
	for y := 40 - 2 - 13; y < 40-2; y++ {
		for x := 12; x < 12+7; x++ {
			if out.NRGBAAt(x, y) != gray {
				touched = true
			}
		}
	}
	assert.True(t, touched)
}

func TestLabelText(t *testing.T) {
	names := map[int]string{1: "cat"}
	assert.Equal(t, "cat", labelText(1, names))
	assert.Equal(t, "2", labelText(2, names))
	assert.Equal(t, "0", labelText(0, nil))
}

func BenchmarkOverlay(b *testing.B) {
	src := createTestImage(600, 400)
	boxes := make([]types.Box, 50)
	for i := range boxes {
		boxes[i] = box(i*10, i*5, 60, 40, i%5)
	}
	opts := DefaultOptions()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Overlay(src, boxes, nil, opts)
	}
}
