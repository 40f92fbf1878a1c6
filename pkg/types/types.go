package types

// Point is a position in display space
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt is shorthand for Point{x, y}
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Size holds pixel dimensions of an image or display area
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Empty reports whether either dimension is non-positive
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// Rect is an integer rectangle anchored at its top-left corner.
// Width and height may be negative when set through a permissive edit.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// RectFromPoints returns the non-negative bounding rectangle of two points
func RectFromPoints(a, b Point) Rect {
	x0, x1 := a.X, b.X
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	y0, y1 := a.Y, b.Y
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Canon returns the same area with non-negative width and height
func (r Rect) Canon() Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// Contains reports whether p lies inside the rectangle (left/top inclusive)
func (r Rect) Contains(p Point) bool {
	c := r.Canon()
	return p.X >= c.X && p.X < c.X+c.W && p.Y >= c.Y && p.Y < c.Y+c.H
}

// Empty reports whether the rectangle has no positive area
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Box is a display-space rectangle paired with an integer class label
type Box struct {
	Rect  Rect `json:"rect"`
	Label int  `json:"label"`
}

// Record is a persisted, center-based box normalized to the original image size
type Record struct {
	Class int     `json:"class"`
	CX    float64 `json:"cx"`
	CY    float64 `json:"cy"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// Region represents a normalized top-left box with coordinates in [0,1] range
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Record converts the region to a center-based record for the given class
func (r Region) Record(class int) Record {
	return Record{
		Class: class,
		CX:    r.X + r.W/2,
		CY:    r.Y + r.H/2,
		W:     r.W,
		H:     r.H,
	}
}

// Suggestion is the primary object a vision model located in an image
type Suggestion struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Region  `json:"box"`
}
