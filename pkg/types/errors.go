package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the editor, the navigator and the stores
var (
	ErrImageDecode     = errors.New("image decode failed")
	ErrIndexOutOfRange = errors.New("box index out of range")
	ErrMalformedRecord = errors.New("malformed label record")
	ErrPersistence     = errors.New("persistence failed")
	ErrNotFound        = errors.New("not found")
	ErrInvalidRect     = errors.New("rectangle must have positive width and height")
	ErrNoSuggestion    = errors.New("no usable suggestion")
)

// IndexError reports an edit or delete against a stale box index
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("box index %d out of range [0,%d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// MalformedRecordError describes a label line that was skipped during load
type MalformedRecordError struct {
	Line int
	Text string
	Err  error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("line %d %q: malformed record", e.Line, e.Text)
}

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed read, write or delete on the dataset
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }
