// Package imagelabeler provides an interactive bounding-box annotation engine
// for image datasets stored as flat label files.
//
// A dataset is a root folder with one sub-folder per collection. Each image
// may have a label file next to it with the same base name and a .txt
// extension, one box per line:
//
//	<class> <center_x> <center_y> <width> <height>
//
// with coordinates normalized to the original image size.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		"github.com/menta2k/image-labeler"
//		"github.com/menta2k/image-labeler/internal/config"
//		"github.com/menta2k/image-labeler/pkg/editor"
//		"github.com/menta2k/image-labeler/pkg/types"
//	)
//
//	func main() {
//		cfg := config.Default()
//		cfg.Dataset.Root = "dataset"
//
//		l, err := imagelabeler.New(cfg, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := l.SelectCollection("birds"); err != nil {
//			log.Fatal(err)
//		}
//
//		// Drag a box and tag it with class 2
//		l.BeginDraw(types.Pt(40, 40))
//		l.EndDraw(types.Pt(120, 90), editor.FixedLabel(2))
//
//		if err := l.Save(); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these components:
//
//  1. Editor (pkg/editor): boxes in display space, gestures, undo/redo, conversion
//  2. Session (pkg/session): collection navigation, save and delete
//  3. Dataset (pkg/dataset): the on-disk store
//  4. Render (pkg/render): box overlays for previews
//  5. Assist (pkg/assist, pkg/ollama): box proposals from a vision model
//
// Every Labeler method holds one lock, so commands issued from several
// goroutines run one after another and never interleave.
package imagelabeler

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/menta2k/image-labeler/internal/config"
	"github.com/menta2k/image-labeler/internal/logger"
	"github.com/menta2k/image-labeler/internal/utils"
	"github.com/menta2k/image-labeler/pkg/assist"
	"github.com/menta2k/image-labeler/pkg/dataset"
	"github.com/menta2k/image-labeler/pkg/editor"
	"github.com/menta2k/image-labeler/pkg/ollama"
	"github.com/menta2k/image-labeler/pkg/raster"
	"github.com/menta2k/image-labeler/pkg/render"
	"github.com/menta2k/image-labeler/pkg/session"
	"github.com/menta2k/image-labeler/pkg/types"
)

// Version of the image labeler library
const Version = "1.0.0"

// Labeler ties the editor, the navigator and the optional suggester together
type Labeler struct {
	mu sync.Mutex

	config    *config.Config
	log       *logger.Logger
	editor    *editor.Editor
	nav       *session.Navigator
	suggester *assist.Suggester
}

// ImageInfo describes the current image and its file
type ImageInfo struct {
	raster.Info
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	FileSize string `json:"file_size"`
}

// Position describes where the navigator is
type Position struct {
	Collection string `json:"collection"`
	Image      string `json:"image"`
	Index      int    `json:"index"`
	Count      int    `json:"count"`
}

// New opens the dataset named by cfg.Dataset.Root
func New(cfg *config.Config, log *logger.Logger) (*Labeler, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := dataset.NewWithConfig(dataset.Config{
		Root:      cfg.Dataset.Root,
		ImageExts: cfg.Dataset.ImageExts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}

	return NewWithStore(store, cfg, log)
}

// NewWithStore creates a Labeler over any session.Store
func NewWithStore(store session.Store, cfg *config.Config, log *logger.Logger) (*Labeler, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	ed := editor.NewWithConfig(editor.Config{
		MinGestureSize: cfg.Editor.MinGestureSize,
		MaxHistory:     cfg.Editor.MaxHistory,
		StrictEdit:     cfg.Editor.StrictEdit,
	}, log)
	ed.SetDecoder(raster.NewWithConfig(raster.Config{
		SupportedFormats: raster.FormatsForExtensions(cfg.Dataset.ImageExts),
	}))

	nav := session.New(store, ed, session.Config{
		Area:     types.Size{W: cfg.Display.Width, H: cfg.Display.Height},
		LabelExt: cfg.Dataset.LabelExt,
		AutoSave: cfg.Session.AutoSave,
	}, log)

	l := &Labeler{
		config: cfg,
		log:    log,
		editor: ed,
		nav:    nav,
	}

	if cfg.Assist.Enabled {
		client, err := ollama.NewClient(cfg.Assist.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create vision client: %w", err)
		}
		l.suggester = assist.NewSuggester(client, assist.Config{
			Model:         cfg.Assist.Model,
			SendSize:      cfg.Assist.SendSize,
			SendQuality:   cfg.Assist.SendQuality,
			MinConfidence: cfg.Assist.MinConfidence,
		})
	}

	return l, nil
}

// SetSuggester replaces the box suggester; nil disables suggestions
func (l *Labeler) SetSuggester(s *assist.Suggester) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suggester = s
}

// Collections lists the collections in the dataset
func (l *Labeler) Collections() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.Collections()
}

// CollectionSize counts the images in a collection without opening any
func (l *Labeler) CollectionSize(name string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.CollectionSize(name)
}

// SelectCollection opens the first image of a collection
func (l *Labeler) SelectCollection(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.SelectCollection(name)
}

// Position reports the active collection and image
func (l *Labeler) Position() Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	col, _ := l.nav.Collection()
	name, _ := l.nav.Current()
	return Position{
		Collection: col.Name,
		Image:      name,
		Index:      l.nav.Index(),
		Count:      l.nav.Count(),
	}
}

// CurrentPath returns the path of the current image
func (l *Labeler) CurrentPath() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.CurrentPath()
}

// Next moves to the following image without saving
func (l *Labeler) Next() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.Next()
}

// Previous moves to the preceding image without saving
func (l *Labeler) Previous() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.Previous()
}

// Goto moves to image i without saving
func (l *Labeler) Goto(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.Goto(i)
}

// Reload discards unsaved edits of the current image
func (l *Labeler) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.Reload()
}

// Save writes the boxes of the current image to its label file
func (l *Labeler) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.Save()
}

// Dirty reports unsaved edits
func (l *Labeler) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.Dirty()
}

// DeleteCurrentImage removes the current image and its labels from disk
func (l *Labeler) DeleteCurrentImage() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.DeleteCurrentImage()
}

// BeginDraw starts a drag gesture at p
func (l *Labeler) BeginDraw(p types.Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editor.BeginDraw(p)
}

// UpdateDraw moves the gesture's free corner to p
func (l *Labeler) UpdateDraw(p types.Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editor.UpdateDraw(p)
}

// EndDraw finishes the gesture at p. The provider is called while the lock
// is held and must not call back into the Labeler.
func (l *Labeler) EndDraw(p types.Point, provider editor.LabelProvider) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.EndDraw(p, provider)
}

// CancelDraw abandons the gesture
func (l *Labeler) CancelDraw() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editor.CancelDraw()
}

// HitTest returns the index of the topmost box containing p
func (l *Labeler) HitTest(p types.Point) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.HitTest(p)
}

// AddBox appends a box in display coordinates
func (l *Labeler) AddBox(b types.Box) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.AddBox(b)
}

// EditBox replaces box i
func (l *Labeler) EditBox(i int, rect types.Rect, label int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.EditBox(i, rect, label)
}

// DeleteBox removes box i
func (l *Labeler) DeleteBox(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.DeleteBox(i)
}

// Undo reverts the last box change
func (l *Labeler) Undo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.Undo()
}

// Redo re-applies the last undone change
func (l *Labeler) Redo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.Redo()
}

// Clear removes every box of the current image. Not undo-able.
func (l *Labeler) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editor.Clear()
}

// Boxes returns a copy of the current boxes in display coordinates
func (l *Labeler) Boxes() []types.Box {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.Boxes()
}

// Records returns the current boxes normalized to the original image
func (l *Labeler) Records() []types.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.ExportNormalizedRecords()
}

// LabelText returns the current boxes as label file content
func (l *Labeler) LabelText() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.ExportNormalizedText()
}

// ScaleFactor returns the display scale of the current image
func (l *Labeler) ScaleFactor() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.ScaleFactor()
}

// Sizes returns the original and display sizes of the current image
func (l *Labeler) Sizes() (original, display types.Size) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editor.OriginalSize(), l.editor.DisplaySize()
}

// ImageInfo reports the dimensions and file size of the current image
func (l *Labeler) ImageInfo() (ImageInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	path, ok := l.nav.CurrentPath()
	if !ok || !l.editor.HasSubject() {
		return ImageInfo{}, fmt.Errorf("%w: no current image", types.ErrNotFound)
	}

	info := ImageInfo{Info: raster.GetInfo(l.editor.Subject()), Path: path}
	st, err := os.Stat(path)
	if err != nil {
		return info, &types.PersistenceError{Op: "stat", Path: path, Err: err}
	}
	info.Bytes = st.Size()
	info.FileSize = utils.FormatFileSize(st.Size())
	return info, nil
}

// Render draws the current boxes and any gesture over the display image
func (l *Labeler) Render(opts render.Options) (*image.NRGBA, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.editor.HasSubject() {
		return nil, fmt.Errorf("%w: no current image", types.ErrNotFound)
	}

	var gesture *types.Rect
	if g, ok := l.editor.Gesture(); ok {
		gesture = &g
	}
	return render.Overlay(l.editor.DisplayImage(), l.editor.Boxes(), gesture, opts), nil
}

// Suggest asks the vision model for a box around subject and adds it with
// the given label as an undo-able change. The model runs without holding
// the lock; the answer is dropped if the image changed in the meantime.
func (l *Labeler) Suggest(ctx context.Context, subject string, label int) (types.Box, error) {
	l.mu.Lock()
	suggester := l.suggester
	img := l.editor.Subject()
	gen := l.editor.Generation()
	l.mu.Unlock()

	if suggester == nil {
		return types.Box{}, fmt.Errorf("%w: assist is not enabled", types.ErrNoSuggestion)
	}
	if img == nil {
		return types.Box{}, fmt.Errorf("%w: no current image", types.ErrNotFound)
	}

	sug, err := suggester.Suggest(ctx, img, subject)
	if err != nil {
		return types.Box{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.editor.Generation() != gen {
		return types.Box{}, fmt.Errorf("%w: image changed while waiting for the model", types.ErrNoSuggestion)
	}

	b := l.editor.Transform().ToDisplay(sug.Box.Record(label))
	if err := l.editor.AddBox(b); err != nil {
		return types.Box{}, err
	}
	l.log.Info("suggestion added", "label", label, "subject", sug.Label, "confidence", sug.Confidence)
	return b, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
