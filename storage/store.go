// Package storage provides key-value stores for whole documents: the post
// store document, its template, and uploaded images.
package storage // import "github.com/nicolagi/quire/storage"

import (
	"errors"
)

// Store represents a key-value store. Values are replaced wholesale on Put.
type Store interface {
	Put(key string, value []byte) (err error)

	// Get should return ErrNotFound if the key is not in the store.
	Get(key string) (value []byte, err error)
}

// Mover is implemented by stores that can move a value to another key without
// the caller copying it.
type Mover interface {
	// Move should return ErrNotFound if the source key is not in the store.
	Move(from, to string) (err error)
}

var (
	// ErrNotFound indicates a key is not in the store.
	ErrNotFound = errors.New("not found")
)

func dup(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
