// Package editor implements the interactive bounding-box annotation state for
// a single subject image: the box list, the draw gesture, undo/redo history
// and the transforms between original, display and normalized coordinates.
//
// An Editor is owned by one interaction goroutine. Callers that load or save
// in the background must hand it snapshots (Boxes, ExportNormalizedRecords)
// rather than share it.
package editor

import (
	"fmt"
	"image"
	"io"

	"github.com/menta2k/image-labeler/internal/logger"
	"github.com/menta2k/image-labeler/pkg/labelfile"
	"github.com/menta2k/image-labeler/pkg/raster"
	"github.com/menta2k/image-labeler/pkg/types"
)

// DefaultMinGestureSize is the display-space size a drawn rectangle must
// exceed on both axes to become a box
const DefaultMinGestureSize = 10

// Config holds configuration for the editor
type Config struct {
	MinGestureSize int  // 0 selects DefaultMinGestureSize
	MaxHistory     int  // 0 keeps every undo entry
	StrictEdit     bool // reject edits with non-positive width or height
}

// LabelProvider supplies the class label for a freshly drawn rectangle.
// Returning ok=false cancels the box.
type LabelProvider interface {
	Label(rect types.Rect) (label int, ok bool)
}

// LabelFunc adapts a function to LabelProvider
type LabelFunc func(rect types.Rect) (int, bool)

// Label calls f(rect)
func (f LabelFunc) Label(rect types.Rect) (int, bool) { return f(rect) }

// FixedLabel always answers with the same label
func FixedLabel(label int) LabelProvider {
	return LabelFunc(func(types.Rect) (int, bool) { return label, true })
}

// Editor owns the boxes of the current subject image
type Editor struct {
	config  Config
	log     *logger.Logger
	decoder *raster.Decoder

	subject   image.Image
	display   image.Image
	transform Transform

	boxes []types.Box
	hist  history

	drawing bool
	start   types.Point
	current types.Rect

	revision   uint64
	generation uint64
}

// New creates a new Editor with default configuration
func New() *Editor {
	return NewWithConfig(Config{MinGestureSize: DefaultMinGestureSize}, nil)
}

// NewWithConfig creates a new Editor with custom configuration
func NewWithConfig(config Config, log *logger.Logger) *Editor {
	if config.MinGestureSize <= 0 {
		config.MinGestureSize = DefaultMinGestureSize
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Editor{
		config:    config,
		log:       log,
		decoder:   raster.New(),
		transform: Transform{Scale: 1},
		hist:      history{limit: config.MaxHistory},
	}
}

// SetDecoder replaces the decoder used by LoadSubject
func (e *Editor) SetDecoder(d *raster.Decoder) {
	e.decoder = d
}

// SetSubjectImage replaces the subject raster and fits it into area.
// On success boxes, gesture and both history stacks are reset; this is not
// undo-able. A nil or empty raster fails with types.ErrImageDecode and leaves
// the previous subject in place.
func (e *Editor) SetSubjectImage(img image.Image, area types.Size) error {
	if img == nil {
		return fmt.Errorf("%w: nil raster", types.ErrImageDecode)
	}
	size := raster.Dimensions(img)
	if size.Empty() {
		return fmt.Errorf("%w: empty raster %dx%d", types.ErrImageDecode, size.W, size.H)
	}

	display, scale := raster.Fit(img, area)

	e.subject = img
	e.display = display
	e.transform = Transform{Scale: scale, Original: size}
	e.boxes = nil
	e.hist.reset()
	e.CancelDraw()
	e.revision++
	e.generation++

	e.log.Debug("subject image set",
		"width", size.W, "height", size.H, "scale", scale)
	return nil
}

// LoadSubject decodes r and makes it the subject image
func (e *Editor) LoadSubject(r io.Reader, area types.Size) error {
	img, err := e.decoder.Decode(r)
	if err != nil {
		return err
	}
	return e.SetSubjectImage(img, area)
}

// Generation changes every time the subject image is replaced or dropped
func (e *Editor) Generation() uint64 {
	return e.generation
}

// HasSubject reports whether a subject image is set
func (e *Editor) HasSubject() bool {
	return e.subject != nil
}

// Subject returns the original raster, or nil
func (e *Editor) Subject() image.Image {
	return e.subject
}

// DisplayImage returns the fitted bitmap boxes are drawn over, or nil
func (e *Editor) DisplayImage() image.Image {
	return e.display
}

// ScaleFactor returns display = original * ScaleFactor
func (e *Editor) ScaleFactor() float64 {
	return e.transform.Scale
}

// Transform returns the coordinate transform of the current subject
func (e *Editor) Transform() Transform {
	return e.transform
}

// OriginalSize returns the subject's native pixel size
func (e *Editor) OriginalSize() types.Size {
	return e.transform.Original
}

// DisplaySize returns the size of the fitted bitmap
func (e *Editor) DisplaySize() types.Size {
	if e.display == nil {
		return types.Size{}
	}
	return raster.Dimensions(e.display)
}

// Revision increases on every change of the box list
func (e *Editor) Revision() uint64 {
	return e.revision
}

// Boxes returns a copy of the box list in insertion order
func (e *Editor) Boxes() []types.Box {
	return snapshot(e.boxes)
}

// Box returns the box at index i
func (e *Editor) Box(i int) (types.Box, error) {
	if err := e.checkIndex(i); err != nil {
		return types.Box{}, err
	}
	return e.boxes[i], nil
}

// Len returns the number of boxes
func (e *Editor) Len() int {
	return len(e.boxes)
}

func (e *Editor) checkIndex(i int) error {
	if i < 0 || i >= len(e.boxes) {
		return &types.IndexError{Index: i, Len: len(e.boxes)}
	}
	return nil
}

func (e *Editor) changed() {
	e.revision++
}

// BeginDraw starts a gesture at p. Ignored when no subject is set.
func (e *Editor) BeginDraw(p types.Point) {
	if e.subject == nil {
		return
	}
	e.drawing = true
	e.start = p
	e.current = types.Rect{X: p.X, Y: p.Y}
}

// UpdateDraw stretches the in-progress rectangle to p
func (e *Editor) UpdateDraw(p types.Point) {
	if !e.drawing {
		return
	}
	e.current = types.RectFromPoints(e.start, p)
}

// EndDraw finalizes the gesture at p. A rectangle larger than the minimum
// size on both axes pushes history and asks provider for a label; the box is
// added unless the provider cancels. Returns whether a box was added.
func (e *Editor) EndDraw(p types.Point, provider LabelProvider) bool {
	if !e.drawing {
		return false
	}
	rect := types.RectFromPoints(e.start, p)
	e.CancelDraw()

	minSize := e.config.MinGestureSize
	if rect.W <= minSize || rect.H <= minSize {
		return false
	}

	e.hist.push(e.boxes)

	label := 0
	if provider != nil {
		var ok bool
		label, ok = provider.Label(rect)
		if !ok {
			return false
		}
	}

	e.boxes = append(e.boxes, types.Box{Rect: rect, Label: label})
	e.changed()
	return true
}

// CancelDraw abandons the gesture without touching boxes or history
func (e *Editor) CancelDraw() {
	e.drawing = false
	e.current = types.Rect{}
}

// Gesture returns the in-progress rectangle while drawing
func (e *Editor) Gesture() (types.Rect, bool) {
	return e.current, e.drawing
}

// HitTest returns the index of the topmost box containing p.
// Later boxes paint over earlier ones, so the search runs backwards.
func (e *Editor) HitTest(p types.Point) (int, bool) {
	for i := len(e.boxes) - 1; i >= 0; i-- {
		if e.boxes[i].Rect.Contains(p) {
			return i, true
		}
	}
	return -1, false
}

// AddBox appends a box as an undo-able step
func (e *Editor) AddBox(b types.Box) error {
	if e.subject == nil {
		return fmt.Errorf("%w: no subject image", types.ErrNotFound)
	}
	if e.config.StrictEdit && b.Rect.Empty() {
		return types.ErrInvalidRect
	}
	e.hist.push(e.boxes)
	e.boxes = append(e.boxes, b)
	e.changed()
	return nil
}

// EditBox replaces the box at index i, keeping its list position
func (e *Editor) EditBox(i int, rect types.Rect, label int) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	if e.config.StrictEdit && rect.Empty() {
		return types.ErrInvalidRect
	}
	e.hist.push(e.boxes)
	e.boxes[i] = types.Box{Rect: rect, Label: label}
	e.changed()
	return nil
}

// DeleteBox removes the box at index i
func (e *Editor) DeleteBox(i int) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	e.hist.push(e.boxes)
	e.boxes = append(e.boxes[:i:i], e.boxes[i+1:]...)
	e.changed()
	return nil
}

// Undo restores the state before the last mutation. No-op on empty history.
func (e *Editor) Undo() bool {
	prev, ok := e.hist.stepBack(e.boxes)
	if !ok {
		return false
	}
	e.boxes = prev
	e.changed()
	return true
}

// Redo re-applies the last undone mutation. No-op on empty history.
func (e *Editor) Redo() bool {
	next, ok := e.hist.stepForward(e.boxes)
	if !ok {
		return false
	}
	e.boxes = next
	e.changed()
	return true
}

// CanUndo reports whether Undo would change anything
func (e *Editor) CanUndo() bool { return len(e.hist.undo) > 0 }

// CanRedo reports whether Redo would change anything
func (e *Editor) CanRedo() bool { return len(e.hist.redo) > 0 }

// Clear empties the box list and both history stacks. Not undo-able.
func (e *Editor) Clear() {
	e.boxes = nil
	e.hist.reset()
	e.CancelDraw()
	e.changed()
}

// Reset drops the subject image along with all boxes and history
func (e *Editor) Reset() {
	e.generation++
	e.subject = nil
	e.display = nil
	e.transform = Transform{Scale: 1}
	e.Clear()
}

// LoadRecords replaces the box list with normalized records converted to
// display space. History is left untouched: a load is a new baseline.
func (e *Editor) LoadRecords(records []types.Record) error {
	if e.subject == nil {
		return fmt.Errorf("%w: no subject image", types.ErrNotFound)
	}
	boxes := make([]types.Box, 0, len(records))
	for _, r := range records {
		boxes = append(boxes, e.transform.ToDisplay(r))
	}
	e.boxes = boxes
	e.changed()
	return nil
}

// LoadFromNormalizedText parses label file content and loads its records.
// Malformed lines are logged, skipped and returned as warnings.
func (e *Editor) LoadFromNormalizedText(text string) ([]error, error) {
	if e.subject == nil {
		return nil, fmt.Errorf("%w: no subject image", types.ErrNotFound)
	}
	records, warnings := labelfile.ParseString(text)
	for _, w := range warnings {
		e.log.Warn("skipping label record", "error", w)
	}
	return warnings, e.LoadRecords(records)
}

// ExportNormalizedRecords converts every box back to normalized form
func (e *Editor) ExportNormalizedRecords() []types.Record {
	if e.subject == nil {
		return nil
	}
	records := make([]types.Record, 0, len(e.boxes))
	for _, b := range e.boxes {
		records = append(records, e.transform.ToRecord(b))
	}
	return records
}

// ExportNormalizedText renders the boxes as label file content
func (e *Editor) ExportNormalizedText() string {
	return labelfile.FormatString(e.ExportNormalizedRecords())
}
