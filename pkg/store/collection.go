package store

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/dirstore/dirstore/pkg/codec"
	dserrors "github.com/dirstore/dirstore/pkg/errors"
	"github.com/dirstore/dirstore/pkg/gateway"
	"github.com/dirstore/dirstore/pkg/utils"
)

// Key identifies one object within a collection: a namespace path, possibly
// empty for the collection root, plus an id unique within that namespace.
type Key struct {
	Namespace []string
	ID        string
}

// String renders the key for logs and error messages.
func (k Key) String() string {
	if len(k.Namespace) == 0 {
		return k.ID
	}
	return strings.Join(k.Namespace, "/") + "/" + k.ID
}

// Collection provides typed access to the objects of one collection. All
// objects in a collection share the codec given at construction; distinct
// collections may use distinct codecs and value types.
//
// A Collection is a stateless view over its Store and is safe for concurrent
// use.
type Collection[T any] struct {
	store *Store
	name  string
	codec codec.Codec[T]
}

// NewCollection binds a typed view of the named collection to s.
func NewCollection[T any](s *Store, name string, c codec.Codec[T]) (*Collection[T], error) {
	if s == nil {
		return nil, dserrors.NewInvalidConfig("store cannot be nil")
	}
	if err := utils.ValidateComponent(name); err != nil {
		return nil, dserrors.NewError(dserrors.ErrCodeInvalidCollection, err.Error())
	}
	if c == nil {
		return nil, dserrors.NewInvalidConfig("codec cannot be nil")
	}
	return &Collection[T]{store: s, name: name, codec: c}, nil
}

// Name returns the collection's name.
func (c *Collection[T]) Name() string {
	return c.name
}

// logFailure reports a failed operation at error level. Not-found and
// rejected keys are expected outcomes callers branch on; those stay quiet.
func (c *Collection[T]) logFailure(operation, key string, err error) {
	if err == nil || dserrors.IsObjectNotFound(err) || dserrors.IsInvalidKey(err) {
		return
	}
	c.store.logger.Error("operation failed",
		"operation", operation,
		"collection", c.name,
		"key", key,
		"error", err)
}

// Write persists value under key, replacing any previous object without
// leaving a torn state: the document is staged in the temporary directory
// and renamed into place, so a concurrent reader observes either the old
// document or the new one, never a partial file. Namespace directories are
// created as needed.
func (c *Collection[T]) Write(ctx context.Context, key Key, value T) (err error) {
	start := time.Now()
	defer func() {
		c.store.metrics.RecordOperation("write", c.name, time.Since(start), err)
		c.logFailure("write", key.String(), err)
	}()

	objPath, err := c.store.layout.ObjectPath(c.name, key)
	if err != nil {
		return err
	}
	tmpPath, err := c.store.layout.TempPath(c.name, key.ID, c.store.tempSuffix())
	if err != nil {
		return err
	}

	if err := c.store.gw.MkdirAll(ctx, filepath.Dir(objPath)); err != nil {
		return dserrors.NewFilesystemError(filepath.Dir(objPath), err).WithOperation("write")
	}
	if err := c.store.gw.MkdirAll(ctx, c.store.layout.TempDir()); err != nil {
		return dserrors.NewFilesystemError(c.store.layout.TempDir(), err).WithOperation("write")
	}

	data, err := c.codec.Encode(value)
	if err != nil {
		return dserrors.NewEncodeFailure(err).
			WithContext("collection", c.name).
			WithContext("key", key.String()).
			WithOperation("write")
	}

	if err := c.store.gw.WriteFile(ctx, tmpPath, data); err != nil {
		return dserrors.NewFilesystemError(tmpPath, err).WithOperation("write")
	}
	if err := c.store.gw.Rename(ctx, tmpPath, objPath); err != nil {
		return dserrors.NewFilesystemError(objPath, err).WithOperation("write")
	}

	c.store.metrics.RecordPayloadSize("write", c.name, len(data))
	c.store.logger.Debug("object written",
		"collection", c.name,
		"key", key.String(),
		"bytes", len(data))
	return nil
}

// Read loads the object stored under key. A missing object is reported as
// OBJECT_NOT_FOUND; a present but undecodable one as CORRUPT_JSON.
func (c *Collection[T]) Read(ctx context.Context, key Key) (value T, err error) {
	start := time.Now()
	defer func() {
		c.store.metrics.RecordOperation("read", c.name, time.Since(start), err)
		c.logFailure("read", key.String(), err)
	}()

	objPath, err := c.store.layout.ObjectPath(c.name, key)
	if err != nil {
		return value, err
	}

	data, err := c.store.gw.ReadFile(ctx, objPath)
	if err != nil {
		if gateway.NotExist(err) {
			return value, dserrors.NewObjectNotFound(key.Namespace, key.ID).
				WithContext("collection", c.name).
				WithOperation("read")
		}
		return value, dserrors.NewFilesystemError(objPath, err).WithOperation("read")
	}

	decoded, err := c.codec.Decode(data)
	if err != nil {
		return value, dserrors.NewCorruptDocument(objPath, err).
			WithContext("collection", c.name).
			WithOperation("read")
	}

	c.store.metrics.RecordPayloadSize("read", c.name, len(data))
	return decoded, nil
}

// ReadOptional loads the object under key, reporting absence as ok=false
// instead of an error. Every other failure is returned unchanged.
func (c *Collection[T]) ReadOptional(ctx context.Context, key Key) (T, bool, error) {
	value, err := c.Read(ctx, key)
	if err != nil {
		var zero T
		if dserrors.IsObjectNotFound(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return value, true, nil
}

// Delete removes the object under key. Deleting an object that does not
// exist succeeds, so a delete retried after a crash converges to the same
// state.
func (c *Collection[T]) Delete(ctx context.Context, key Key) (err error) {
	start := time.Now()
	defer func() {
		c.store.metrics.RecordOperation("delete", c.name, time.Since(start), err)
		c.logFailure("delete", key.String(), err)
	}()

	objPath, err := c.store.layout.ObjectPath(c.name, key)
	if err != nil {
		return err
	}

	if err := c.store.gw.Remove(ctx, objPath); err != nil && !gateway.NotExist(err) {
		return dserrors.NewFilesystemError(objPath, err).WithOperation("delete")
	}

	c.store.logger.Debug("object deleted", "collection", c.name, "key", key.String())
	return nil
}

// List returns the ids of the objects directly inside namespace. Nested
// namespaces are not descended into and do not appear in the result. A
// namespace nothing was ever written to lists as empty. Order is
// unspecified.
func (c *Collection[T]) List(ctx context.Context, namespace []string) (ids []string, err error) {
	start := time.Now()
	defer func() {
		c.store.metrics.RecordOperation("list", c.name, time.Since(start), err)
		c.logFailure("list", strings.Join(namespace, "/"), err)
	}()

	nsPath, err := c.store.layout.NamespacePath(c.name, namespace)
	if err != nil {
		return nil, err
	}

	entries, err := c.store.gw.ReadDir(ctx, nsPath)
	if err != nil {
		if gateway.NotExist(err) {
			return []string{}, nil
		}
		return nil, dserrors.NewFilesystemError(nsPath, err).WithOperation("list")
	}

	ids = make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir || !strings.HasSuffix(entry.Name, objectSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name, objectSuffix))
	}
	return ids, nil
}

// ReadAll loads every object directly inside namespace, keyed by id. The
// first unreadable or undecodable object aborts the call: callers get the
// whole namespace or an error, never a partial map.
func (c *Collection[T]) ReadAll(ctx context.Context, namespace []string) (map[string]T, error) {
	ids, err := c.List(ctx, namespace)
	if err != nil {
		return nil, err
	}

	objects := make(map[string]T, len(ids))
	for _, id := range ids {
		value, err := c.Read(ctx, Key{Namespace: namespace, ID: id})
		if err != nil {
			return nil, err
		}
		objects[id] = value
	}
	return objects, nil
}
