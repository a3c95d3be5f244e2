// Package gateway defines the filesystem contract the store engine drives.
// This abstraction is what allows the same engine to persist to a local
// directory tree, an in-memory map, or an S3 bucket without changes: the
// engine only requires that an implementation satisfy the documented
// semantics below.
package gateway

import (
	"context"
	"errors"
	"io/fs"
)

// Filesystem is the complete set of primitives the store engine needs.
//
// Semantics implementations must provide:
//
//   - ReadFile and ReadDir report a missing target with an error satisfying
//     errors.Is(err, fs.ErrNotExist); the engine branches on that to
//     distinguish absence from failure.
//   - WriteFile has full-overwrite semantics and creates the file if absent.
//   - Rename atomically replaces newPath when the implementation can make
//     that guarantee (the local gateway can, within one volume); otherwise
//     the implementation documents its weaker visibility.
//   - MkdirAll creates the directory and all missing parents, succeeding if
//     the directory already exists.
//   - Remove of a missing path may return a not-found error or nil; the
//     engine treats both as success where idempotency is required.
//
// All methods take a Context because implementations may block on network
// I/O; implementations backed by the local filesystem may ignore it.
type Filesystem interface {
	MkdirAll(ctx context.Context, path string) error
	WriteFile(ctx context.Context, path string, data []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Rename(ctx context.Context, oldPath, newPath string) error
	Remove(ctx context.Context, path string) error
	ReadDir(ctx context.Context, path string) ([]DirEntry, error)
}

// DirEntry is one entry returned by ReadDir. Name is the bare entry name,
// never a path.
type DirEntry struct {
	Name  string
	IsDir bool
}

// NotExist reports whether err indicates a missing file or directory across
// every gateway implementation.
func NotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
