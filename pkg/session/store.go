package session

import (
	"io"
	"path/filepath"
)

// Store is the storage collaborator the navigator reads images and label
// files through. Paths handed to a Store always come from a Collection it
// returned.
type Store interface {
	// Collections lists collection names in display order
	Collections() ([]string, error)
	// Collection snapshots the images of one collection; unknown names
	// fail with types.ErrNotFound
	Collection(name string) (Collection, error)
	OpenImage(path string) (io.ReadCloser, error)
	// ReadLabel returns the label file content; ok is false when the file
	// does not exist
	ReadLabel(path string) (text string, ok bool, err error)
	WriteLabel(path, text string) error
	RemoveImage(path string) error
	// RemoveLabel succeeds when the file is already gone
	RemoveLabel(path string) error
}

// Collection is a snapshot of one folder of images
type Collection struct {
	Name   string
	Dir    string
	Images []string // file names, sorted
}

// Len returns the number of images
func (c Collection) Len() int {
	return len(c.Images)
}

// Path returns the full path of image i
func (c Collection) Path(i int) string {
	return filepath.Join(c.Dir, c.Images[i])
}

func (c Collection) clone() Collection {
	c.Images = append([]string(nil), c.Images...)
	return c
}

func (c Collection) without(i int) Collection {
	images := make([]string, 0, len(c.Images)-1)
	images = append(images, c.Images[:i]...)
	images = append(images, c.Images[i+1:]...)
	c.Images = images
	return c
}
