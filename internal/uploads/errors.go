package uploads

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed = errors.New("uploads: session closed")
	ErrNotImage      = errors.New("uploads: only images are accepted")
	ErrTooLarge      = errors.New("uploads: file too large")
	ErrNotOwner      = errors.New("uploads: record belongs to another user")
	ErrNotFound      = errors.New("uploads: no such upload")
)

// StorageError reports a failure of the object store.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("uploads: storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PersistError reports a failure of the record store.
type PersistError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("uploads: persist %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("uploads: persist %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
