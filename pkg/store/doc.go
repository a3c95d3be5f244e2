// Package store implements a minimal durable object store that persists
// typed records as individual JSON documents.
//
// A Store is built on a gateway.Filesystem and a Config naming two
// directories: DataDir, the root of the persisted tree, and TempDir, the
// staging area writes pass through. Objects are addressed by collection,
// namespace path, and id, and land at
//
//	<data_dir>/<collection>/<namespace...>/<id>.json
//
// Typed access goes through Collection, which binds a collection name to a
// codec.Codec for its value type:
//
//	st, err := store.New(local.New(), store.Config{
//		DataDir: "/var/lib/app/data",
//		TempDir: "/var/lib/app/tmp",
//	})
//	users, err := store.NewCollection[User](st, "users", codec.JSON[User]())
//	err = users.Write(ctx, store.Key{Namespace: []string{"eu"}, ID: "alice"}, u)
//
// Durability contract: every write is staged as a complete document in
// TempDir and then renamed to its final path. On the local gateway, and with
// both directories on one volume, the rename is atomic, so a reader sees
// either the previous document or the new one and never a torn file. The
// store coordinates nothing beyond that: concurrent writers of the same key
// race, last rename wins, and each key is its own unit of atomicity.
//
// Failures carry the taxonomy in pkg/errors: OBJECT_NOT_FOUND for reads of
// absent keys, CORRUPT_JSON when a document exists but will not decode,
// FILESYSTEM_ERROR for everything the gateway reports, and INVALID_KEY for
// rejected collection names, namespace elements, or ids.
package store
