// Package memory implements the store gateway on an in-process map. It
// exists for tests and for ephemeral embedding; it mirrors the error
// semantics of the os-backed gateway closely enough that engine behavior
// verified against it holds on a real filesystem: missing parents fail
// writes, missing targets report fs.ErrNotExist, and rename is atomic under
// the gateway's lock.
package memory

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dirstore/dirstore/pkg/gateway"
)

// Gateway is a map-backed filesystem. Safe for concurrent use.
type Gateway struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

var _ gateway.Filesystem = (*Gateway)(nil)

// New returns an empty in-memory gateway.
func New() *Gateway {
	return &Gateway{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}

func (g *Gateway) MkdirAll(_ context.Context, path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mkdirAllLocked(path)
	return nil
}

func (g *Gateway) mkdirAllLocked(path string) {
	p := filepath.Clean(path)
	for {
		g.dirs[p] = true
		parent := filepath.Dir(p)
		if parent == p {
			return
		}
		p = parent
	}
}

func (g *Gateway) WriteFile(_ context.Context, path string, data []byte) error {
	p := filepath.Clean(path)

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.dirs[filepath.Dir(p)] {
		return notExist("open", path)
	}
	g.files[p] = append([]byte(nil), data...)
	return nil
}

func (g *Gateway) ReadFile(_ context.Context, path string) ([]byte, error) {
	p := filepath.Clean(path)

	g.mu.RLock()
	defer g.mu.RUnlock()

	data, ok := g.files[p]
	if !ok {
		return nil, notExist("open", path)
	}
	return append([]byte(nil), data...), nil
}

// Rename moves oldPath onto newPath in one step under the gateway lock, so
// readers never observe a state with neither or both paths populated.
func (g *Gateway) Rename(_ context.Context, oldPath, newPath string) error {
	oldP := filepath.Clean(oldPath)
	newP := filepath.Clean(newPath)

	g.mu.Lock()
	defer g.mu.Unlock()

	data, ok := g.files[oldP]
	if !ok {
		return notExist("rename", oldPath)
	}
	if !g.dirs[filepath.Dir(newP)] {
		return notExist("rename", newPath)
	}
	delete(g.files, oldP)
	g.files[newP] = data
	return nil
}

func (g *Gateway) Remove(_ context.Context, path string) error {
	p := filepath.Clean(path)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.files[p]; ok {
		delete(g.files, p)
		return nil
	}
	if g.dirs[p] {
		delete(g.dirs, p)
		return nil
	}
	return notExist("remove", path)
}

func (g *Gateway) ReadDir(_ context.Context, path string) ([]gateway.DirEntry, error) {
	p := filepath.Clean(path)

	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.dirs[p] {
		return nil, notExist("open", path)
	}

	prefix := p + string(filepath.Separator)
	seen := make(map[string]bool)
	var entries []gateway.DirEntry

	// Files nested deeper than one level are skipped here; their first
	// path element is a directory, and the dirs map holds every ancestor.
	for f := range g.files {
		name, nested, ok := childOf(f, prefix)
		if ok && !nested && !seen[name] {
			seen[name] = true
			entries = append(entries, gateway.DirEntry{Name: name})
		}
	}
	for d := range g.dirs {
		name, _, ok := childOf(d, prefix)
		if ok && !seen[name] {
			seen[name] = true
			entries = append(entries, gateway.DirEntry{Name: name, IsDir: true})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// childOf returns the first path element of p below prefix, whether p sits
// deeper than one level, and whether p lives below prefix at all.
func childOf(p, prefix string) (name string, nested, ok bool) {
	if !strings.HasPrefix(p, prefix) {
		return "", false, false
	}
	rest := strings.TrimPrefix(p, prefix)
	if rest == "" {
		return "", false, false
	}
	if i := strings.IndexRune(rest, filepath.Separator); i >= 0 {
		return rest[:i], true, true
	}
	return rest, false, true
}
