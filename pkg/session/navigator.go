// Package session walks the images of a collection and keeps the annotation
// editor pointed at the current one.
//
// Moving between images does not save. Callers call Save first, check Dirty,
// or enable Config.AutoSave.
package session

import (
	"errors"
	"fmt"

	"github.com/menta2k/image-labeler/internal/logger"
	"github.com/menta2k/image-labeler/pkg/editor"
	"github.com/menta2k/image-labeler/pkg/labelfile"
	"github.com/menta2k/image-labeler/pkg/types"
)

// Config holds configuration for the navigator
type Config struct {
	Area     types.Size // display area images are fitted into
	LabelExt string
	AutoSave bool // save a dirty editor before moving away from an image
}

// Navigator tracks the selected collection and the current position in it
type Navigator struct {
	store  Store
	editor *editor.Editor
	config Config
	log    *logger.Logger

	collection Collection
	selected   bool
	index      int
	savedRev   uint64
}

// New creates a navigator driving ed from store
func New(store Store, ed *editor.Editor, config Config, log *logger.Logger) *Navigator {
	if config.LabelExt == "" {
		config.LabelExt = labelfile.DefaultExt
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Navigator{
		store:  store,
		editor: ed,
		config: config,
		log:    log,
		index:  -1,
	}
}

// Editor returns the editor this navigator drives
func (n *Navigator) Editor() *editor.Editor {
	return n.editor
}

// Collections lists the collections available in the store
func (n *Navigator) Collections() ([]string, error) {
	return n.store.Collections()
}

// CollectionSize counts the images of a collection without selecting it
func (n *Navigator) CollectionSize(name string) (int, error) {
	col, err := n.store.Collection(name)
	if err != nil {
		return 0, err
	}
	return col.Len(), nil
}

// SelectCollection makes name the active collection and opens its first
// image. An empty collection leaves the position at -1.
func (n *Navigator) SelectCollection(name string) error {
	if err := n.autoSave(); err != nil {
		return err
	}

	col, err := n.store.Collection(name)
	if err != nil {
		return err
	}

	n.collection = col.clone()
	n.selected = true
	n.log.Info("collection selected", "collection", col.Name, "images", col.Len())

	if col.Len() == 0 {
		n.index = -1
		n.editor.Reset()
		n.markSaved()
		return nil
	}

	n.index = 0
	if err := n.load(0); err != nil {
		n.editor.Reset()
		n.markSaved()
		return err
	}
	return nil
}

// Collection returns a snapshot of the active collection
func (n *Navigator) Collection() (Collection, bool) {
	return n.collection.clone(), n.selected
}

// Index returns the current position, -1 when there is no image
func (n *Navigator) Index() int {
	return n.index
}

// Count returns the number of images in the active collection
func (n *Navigator) Count() int {
	return n.collection.Len()
}

// Current returns the file name of the current image
func (n *Navigator) Current() (string, bool) {
	if !n.valid(n.index) {
		return "", false
	}
	return n.collection.Images[n.index], true
}

// CurrentPath returns the full path of the current image
func (n *Navigator) CurrentPath() (string, bool) {
	if !n.valid(n.index) {
		return "", false
	}
	return n.collection.Path(n.index), true
}

// LabelPath returns the label file path of the current image
func (n *Navigator) LabelPath() (string, bool) {
	p, ok := n.CurrentPath()
	if !ok {
		return "", false
	}
	return labelfile.PathFor(p, n.config.LabelExt), true
}

// Dirty reports whether the editor changed since the last load or save
func (n *Navigator) Dirty() bool {
	return n.editor.HasSubject() && n.editor.Revision() != n.savedRev
}

// Next moves to the following image. Returns false at the end of the list.
func (n *Navigator) Next() (bool, error) {
	if n.index < 0 || n.index >= n.Count()-1 {
		return false, nil
	}
	if err := n.moveTo(n.index + 1); err != nil {
		return false, err
	}
	return true, nil
}

// Previous moves to the preceding image. Returns false at the start of the list.
func (n *Navigator) Previous() (bool, error) {
	if n.index <= 0 {
		return false, nil
	}
	if err := n.moveTo(n.index - 1); err != nil {
		return false, err
	}
	return true, nil
}

// Goto moves to image i
func (n *Navigator) Goto(i int) error {
	if !n.valid(i) {
		return fmt.Errorf("%w: image index %d of %d", types.ErrNotFound, i, n.Count())
	}
	if i == n.index {
		return nil
	}
	return n.moveTo(i)
}

// Reload re-reads the current image and its labels, discarding unsaved edits
func (n *Navigator) Reload() error {
	if !n.valid(n.index) {
		return fmt.Errorf("%w: no current image", types.ErrNotFound)
	}
	return n.load(n.index)
}

// Save writes the editor's boxes to the current label file, overwriting it.
// The box list is left untouched whether or not the write succeeds.
func (n *Navigator) Save() error {
	path, ok := n.LabelPath()
	if !ok || !n.editor.HasSubject() {
		return fmt.Errorf("%w: no current image", types.ErrNotFound)
	}

	text := n.editor.ExportNormalizedText()
	if err := n.store.WriteLabel(path, text); err != nil {
		return persistenceError("write", path, err)
	}

	n.markSaved()
	n.log.Info("labels saved", "path", path, "boxes", n.editor.Len())
	return nil
}

// DeleteCurrentImage removes the current image and its label file from the
// store, drops it from the list and opens the image that takes its place.
func (n *Navigator) DeleteCurrentImage() error {
	if !n.valid(n.index) {
		return fmt.Errorf("%w: image index %d of %d", types.ErrNotFound, n.index, n.Count())
	}

	path := n.collection.Path(n.index)
	if err := n.store.RemoveImage(path); err != nil {
		return persistenceError("remove", path, err)
	}

	labelPath := labelfile.PathFor(path, n.config.LabelExt)
	if err := n.store.RemoveLabel(labelPath); err != nil {
		n.log.Warn("failed to remove label file", "path", labelPath, "error", err)
	}
	n.log.Info("image deleted", "path", path)

	n.collection = n.collection.without(n.index)
	if n.Count() == 0 {
		n.index = -1
		n.editor.Reset()
		n.markSaved()
		return nil
	}
	if n.index >= n.Count() {
		n.index = n.Count() - 1
	}
	if err := n.load(n.index); err != nil {
		n.editor.Reset()
		n.markSaved()
		return fmt.Errorf("image deleted but next image failed to load: %w", err)
	}
	return nil
}

func (n *Navigator) valid(i int) bool {
	return i >= 0 && i < n.Count()
}

func (n *Navigator) markSaved() {
	n.savedRev = n.editor.Revision()
}

func (n *Navigator) autoSave() error {
	if !n.config.AutoSave || !n.Dirty() || !n.valid(n.index) {
		return nil
	}
	return n.Save()
}

func (n *Navigator) moveTo(i int) error {
	if err := n.autoSave(); err != nil {
		return err
	}
	if err := n.load(i); err != nil {
		return err
	}
	n.index = i
	return nil
}

// load opens image i and its labels. Nothing is changed unless both the
// image and the label file could be read and the image decoded.
func (n *Navigator) load(i int) error {
	path := n.collection.Path(i)
	labelPath := labelfile.PathFor(path, n.config.LabelExt)

	text, hasLabels, err := n.store.ReadLabel(labelPath)
	if err != nil {
		return persistenceError("read", labelPath, err)
	}

	rc, err := n.store.OpenImage(path)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return err
		}
		return persistenceError("open", path, err)
	}
	defer rc.Close()

	if err := n.editor.LoadSubject(rc, n.config.Area); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	if hasLabels {
		warnings, err := n.editor.LoadFromNormalizedText(text)
		if err != nil {
			return err
		}
		if len(warnings) > 0 {
			n.log.Warn("label file has malformed records", "path", labelPath, "skipped", len(warnings))
		}
	}

	n.markSaved()
	n.log.Debug("image loaded", "path", path, "boxes", n.editor.Len())
	return nil
}

func persistenceError(op, path string, err error) error {
	if errors.Is(err, types.ErrPersistence) || errors.Is(err, types.ErrNotFound) {
		return err
	}
	return &types.PersistenceError{Op: op, Path: path, Err: err}
}
