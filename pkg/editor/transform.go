package editor

import "github.com/menta2k/image-labeler/pkg/types"

// Transform maps between the three coordinate spaces of a subject image:
// original pixels, the fitted display bitmap and normalized label records.
// Pixel conversions truncate toward zero so existing label files round-trip
// bit for bit.
type Transform struct {
	Scale    float64
	Original types.Size
}

// ToDisplay converts a normalized record into a display-space box
func (t Transform) ToDisplay(r types.Record) types.Box {
	fw, fh := float64(t.Original.W), float64(t.Original.H)

	cx := r.CX * fw
	cy := r.CY * fh
	w := r.W * fw
	h := r.H * fh

	// original-pixel top-left box
	x1 := int(cx - w/2)
	y1 := int(cy - h/2)
	ow := int(w)
	oh := int(h)

	return types.Box{
		Rect: types.Rect{
			X: int(float64(x1) * t.Scale),
			Y: int(float64(y1) * t.Scale),
			W: int(float64(ow) * t.Scale),
			H: int(float64(oh) * t.Scale),
		},
		Label: r.Class,
	}
}

// ToRecord converts a display-space box back into a normalized record
func (t Transform) ToRecord(b types.Box) types.Record {
	fw, fh := float64(t.Original.W), float64(t.Original.H)

	ox := float64(b.Rect.X) / t.Scale
	oy := float64(b.Rect.Y) / t.Scale
	ow := float64(b.Rect.W) / t.Scale
	oh := float64(b.Rect.H) / t.Scale

	return types.Record{
		Class: b.Label,
		CX:    (ox + ow/2) / fw,
		CY:    (oy + oh/2) / fh,
		W:     ow / fw,
		H:     oh / fh,
	}
}
