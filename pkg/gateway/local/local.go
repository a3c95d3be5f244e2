// Package local implements the store gateway on the operating system's
// filesystem. Rename is os.Rename, which atomically replaces the target
// when source and destination live on the same volume; this is the gateway
// the engine's crash-safety guarantee is written against.
package local

import (
	"context"
	"os"

	"github.com/dirstore/dirstore/pkg/gateway"
)

// Gateway is a stateless adapter over the os package. The zero value is
// usable; New exists for symmetry with the other gateways.
type Gateway struct{}

var _ gateway.Filesystem = (*Gateway)(nil)

// New returns a gateway backed by the local filesystem.
func New() *Gateway {
	return &Gateway{}
}

func (*Gateway) MkdirAll(_ context.Context, path string) error {
	return os.MkdirAll(path, 0750)
}

func (*Gateway) WriteFile(_ context.Context, path string, data []byte) error {
	return os.WriteFile(path, data, 0600)
}

func (*Gateway) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Rename atomically replaces newPath. Atomicity holds only within one
// volume; the store's configuration documents that requirement.
func (*Gateway) Rename(_ context.Context, oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (*Gateway) Remove(_ context.Context, path string) error {
	return os.Remove(path)
}

func (*Gateway) ReadDir(_ context.Context, path string) ([]gateway.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]gateway.DirEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, gateway.DirEntry{Name: entry.Name(), IsDir: entry.IsDir()})
	}
	return out, nil
}
