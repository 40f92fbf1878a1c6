// Package dataset stores collections as sub-directories of a root folder,
// with each image's label file stored next to it.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/menta2k/image-labeler/internal/utils"
	"github.com/menta2k/image-labeler/pkg/session"
	"github.com/menta2k/image-labeler/pkg/types"
)

// Config holds configuration for the dataset store
type Config struct {
	Root      string
	ImageExts []string
}

// DefaultConfig returns the default dataset configuration
func DefaultConfig() Config {
	return Config{
		Root:      "dataset",
		ImageExts: []string{".jpg", ".jpeg", ".png"},
	}
}

// Store is a session.Store backed by the local filesystem
type Store struct {
	config Config
}

var _ session.Store = (*Store)(nil)

// New opens the dataset at root with the default image extensions
func New(root string) (*Store, error) {
	cfg := DefaultConfig()
	cfg.Root = root
	return NewWithConfig(cfg)
}

// NewWithConfig opens a dataset, creating the root directory if missing
func NewWithConfig(config Config) (*Store, error) {
	if config.Root == "" {
		return nil, fmt.Errorf("dataset root cannot be empty")
	}
	if len(config.ImageExts) == 0 {
		config.ImageExts = DefaultConfig().ImageExts
	}
	if err := utils.EnsureDir(config.Root); err != nil {
		return nil, &types.PersistenceError{Op: "create", Path: config.Root, Err: err}
	}
	return &Store{config: config}, nil
}

// Root returns the dataset root directory
func (s *Store) Root() string {
	return s.config.Root
}

// Collections lists the sub-directories of the root, sorted by name
func (s *Store) Collections() ([]string, error) {
	entries, err := os.ReadDir(s.config.Root)
	if err != nil {
		return nil, &types.PersistenceError{Op: "list", Path: s.config.Root, Err: err}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Collection snapshots the image files of one collection, sorted by name
func (s *Store) Collection(name string) (session.Collection, error) {
	if !validName(name) {
		return session.Collection{}, fmt.Errorf("%w: invalid collection name %q", types.ErrNotFound, name)
	}

	dir := filepath.Join(s.config.Root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return session.Collection{}, fmt.Errorf("%w: collection %q", types.ErrNotFound, name)
		}
		return session.Collection{}, &types.PersistenceError{Op: "list", Path: dir, Err: err}
	}

	var images []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && utils.HasExtension(entry.Name(), s.config.ImageExts) {
			images = append(images, entry.Name())
		}
	}
	sort.Strings(images)

	return session.Collection{Name: name, Dir: dir, Images: images}, nil
}

// OpenImage opens an image file for reading
func (s *Store) OpenImage(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: image %s", types.ErrNotFound, path)
		}
		return nil, &types.PersistenceError{Op: "open", Path: path, Err: err}
	}
	return f, nil
}

// ReadLabel reads a label file. A missing file is not an error.
func (s *Store) ReadLabel(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, &types.PersistenceError{Op: "read", Path: path, Err: err}
	}
	return string(data), true, nil
}

// WriteLabel replaces the label file content
func (s *Store) WriteLabel(path, text string) error {
	if err := utils.WriteFileAtomic(path, []byte(text), 0644); err != nil {
		return &types.PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// RemoveImage deletes an image file
func (s *Store) RemoveImage(path string) error {
	if err := os.Remove(path); err != nil {
		return &types.PersistenceError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// RemoveLabel deletes a label file if it exists
func (s *Store) RemoveLabel(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &types.PersistenceError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
