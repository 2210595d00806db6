// Package persistence stores opaque save blobs in named slots.
package persistence

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSave is returned by Load when the slot is empty.
var ErrNoSave = errors.New("no saved game")

// Medium is a place to keep save blobs. Implementations are safe for
// concurrent use.
type Medium interface {
	Save(ctx context.Context, slot string, blob []byte) error
	Load(ctx context.Context, slot string) ([]byte, error)
	Delete(ctx context.Context, slot string) error
	Close() error
}

// Open picks a medium by backend name.
func Open(backend, path string) (Medium, error) {
	switch backend {
	case "sqlite":
		return OpenSQLite(path)
	case "file":
		return NewFile(path), nil
	default:
		return nil, fmt.Errorf("unknown save backend %q", backend)
	}
}
