package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dirstore/dirstore/pkg/codec"
	"github.com/dirstore/dirstore/pkg/store"
)

// runCommand dispatches one subcommand against the store.
func runCommand(ctx context.Context, st *store.Store, in io.Reader, out io.Writer, command string, args []string) error {
	switch command {
	case "put":
		return cmdPut(ctx, st, in, args)
	case "get":
		return cmdGet(ctx, st, out, args)
	case "rm":
		return cmdRm(ctx, st, args)
	case "ls":
		return cmdLs(ctx, st, out, args)
	case "dump":
		return cmdDump(ctx, st, out, args)
	default:
		return fmt.Errorf("unknown command: %s (expected put, get, rm, ls or dump)", command)
	}
}

// openDocuments opens a raw-JSON view of the named collection.
func openDocuments(st *store.Store, collection string) (*store.Collection[json.RawMessage], error) {
	return store.NewCollection[json.RawMessage](st, collection, codec.Raw())
}

// parseKey splits a slash-separated key: every segment but the last forms
// the namespace, the last is the id.
func parseKey(raw string) (store.Key, error) {
	segments := strings.Split(raw, "/")
	for _, s := range segments {
		if s == "" {
			return store.Key{}, fmt.Errorf("key %q has an empty segment", raw)
		}
	}

	var namespace []string
	if len(segments) > 1 {
		namespace = segments[:len(segments)-1]
	}
	return store.Key{Namespace: namespace, ID: segments[len(segments)-1]}, nil
}

// parseNamespace reads the optional slash-separated namespace argument;
// absent means the collection root.
func parseNamespace(args []string) ([]string, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, nil
	}
	segments := strings.Split(args[0], "/")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("namespace %q has an empty segment", args[0])
		}
	}
	return segments, nil
}

func cmdPut(ctx context.Context, st *store.Store, in io.Reader, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: %s put <collection> <key> [file]", appName)
	}
	docs, err := openDocuments(st, args[0])
	if err != nil {
		return err
	}
	key, err := parseKey(args[1])
	if err != nil {
		return err
	}

	var data []byte
	if len(args) == 3 && args[2] != "-" {
		data, err = os.ReadFile(args[2])
	} else {
		data, err = io.ReadAll(in)
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	return docs.Write(ctx, key, json.RawMessage(data))
}

func cmdGet(ctx context.Context, st *store.Store, out io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s get <collection> <key>", appName)
	}
	docs, err := openDocuments(st, args[0])
	if err != nil {
		return err
	}
	key, err := parseKey(args[1])
	if err != nil {
		return err
	}

	doc, err := docs.Read(ctx, key)
	if err != nil {
		return err
	}
	if _, err := out.Write(doc); err != nil {
		return err
	}
	if len(doc) == 0 || doc[len(doc)-1] != '\n' {
		if _, err := fmt.Fprintln(out); err != nil {
			return err
		}
	}
	return nil
}

func cmdRm(ctx context.Context, st *store.Store, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s rm <collection> <key>", appName)
	}
	docs, err := openDocuments(st, args[0])
	if err != nil {
		return err
	}
	key, err := parseKey(args[1])
	if err != nil {
		return err
	}
	return docs.Delete(ctx, key)
}

func cmdLs(ctx context.Context, st *store.Store, out io.Writer, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: %s ls <collection> [namespace]", appName)
	}
	docs, err := openDocuments(st, args[0])
	if err != nil {
		return err
	}
	namespace, err := parseNamespace(args[1:])
	if err != nil {
		return err
	}

	ids, err := docs.List(ctx, namespace)
	if err != nil {
		return err
	}
	// The engine promises no order; sort for terminals and diffs.
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := fmt.Fprintln(out, id); err != nil {
			return err
		}
	}
	return nil
}

func cmdDump(ctx context.Context, st *store.Store, out io.Writer, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: %s dump <collection> [namespace]", appName)
	}
	docs, err := openDocuments(st, args[0])
	if err != nil {
		return err
	}
	namespace, err := parseNamespace(args[1:])
	if err != nil {
		return err
	}

	all, err := docs.ReadAll(ctx, namespace)
	if err != nil {
		return err
	}

	// Map keys marshal sorted, so dumps are diffable.
	encoded, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	if _, err := out.Write(encoded); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}
