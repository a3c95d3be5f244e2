package store

import (
	"path/filepath"

	dserrors "github.com/dirstore/dirstore/pkg/errors"
	"github.com/dirstore/dirstore/pkg/utils"
)

// objectSuffix is the extension every persisted document carries. List
// recognizes documents by it and strips it when reporting ids.
const objectSuffix = ".json"

// Layout resolves collection, namespace, and id coordinates into the paths
// the engine hands to its gateway. It performs no I/O: the same coordinates
// always resolve to the same paths.
//
// The resulting tree:
//
//	<data_dir>/<collection>/<namespace...>/<id>.json
//	<temp_dir>/<collection>-<id>.json
type Layout struct {
	dataDir string
	tempDir string
}

// NewLayout builds a resolver rooted at the two directories. Both must be
// non-empty; they are cleaned but not required to exist yet.
func NewLayout(dataDir, tempDir string) (*Layout, error) {
	if dataDir == "" {
		return nil, dserrors.NewInvalidConfig("data directory cannot be empty")
	}
	if tempDir == "" {
		return nil, dserrors.NewInvalidConfig("temporary directory cannot be empty")
	}
	return &Layout{
		dataDir: filepath.Clean(dataDir),
		tempDir: filepath.Clean(tempDir),
	}, nil
}

// DataDir returns the root all persisted objects live under.
func (l *Layout) DataDir() string { return l.dataDir }

// TempDir returns the staging directory pending writes pass through.
func (l *Layout) TempDir() string { return l.tempDir }

// ObjectPath returns the final path for the object identified by key within
// collection. Every component is validated before joining, so an id like
// "../../etc/passwd" is rejected rather than resolved.
func (l *Layout) ObjectPath(collection string, key Key) (string, error) {
	if err := utils.ValidateComponent(collection); err != nil {
		return "", dserrors.NewInvalidKey(err.Error())
	}
	for _, element := range key.Namespace {
		if err := utils.ValidateComponent(element); err != nil {
			return "", dserrors.NewInvalidKey(err.Error())
		}
	}
	if err := utils.ValidateComponent(key.ID); err != nil {
		return "", dserrors.NewInvalidKey(err.Error())
	}

	elements := make([]string, 0, len(key.Namespace)+2)
	elements = append(elements, collection)
	elements = append(elements, key.Namespace...)
	elements = append(elements, key.ID+objectSuffix)

	path, err := utils.SecureJoin(l.dataDir, elements...)
	if err != nil {
		return "", dserrors.NewInvalidKey(err.Error())
	}
	return path, nil
}

// NamespacePath returns the directory holding the namespace's objects. An
// empty namespace resolves to the collection root.
func (l *Layout) NamespacePath(collection string, namespace []string) (string, error) {
	if err := utils.ValidateComponent(collection); err != nil {
		return "", dserrors.NewInvalidKey(err.Error())
	}
	for _, element := range namespace {
		if err := utils.ValidateComponent(element); err != nil {
			return "", dserrors.NewInvalidKey(err.Error())
		}
	}

	elements := make([]string, 0, len(namespace)+1)
	elements = append(elements, collection)
	elements = append(elements, namespace...)

	path, err := utils.SecureJoin(l.dataDir, elements...)
	if err != nil {
		return "", dserrors.NewInvalidKey(err.Error())
	}
	return path, nil
}

// TempPath returns the staging path a pending write passes through before
// the rename into place. With an empty suffix the name is deterministic for
// a collection and id, so a retried write reuses its staging file instead of
// leaking one per attempt. A non-empty suffix (see WithUniqueTempNames)
// keeps concurrent writers of the same id from staging over each other.
func (l *Layout) TempPath(collection, id, suffix string) (string, error) {
	if err := utils.ValidateComponent(collection); err != nil {
		return "", dserrors.NewInvalidKey(err.Error())
	}
	if err := utils.ValidateComponent(id); err != nil {
		return "", dserrors.NewInvalidKey(err.Error())
	}

	name := collection + "-" + id
	if suffix != "" {
		name += "-" + suffix
	}

	path, err := utils.SecureJoin(l.tempDir, name+objectSuffix)
	if err != nil {
		return "", dserrors.NewInvalidKey(err.Error())
	}
	return path, nil
}
