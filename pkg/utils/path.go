package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateComponent validates that a string is usable as a single path
// segment: a collection name, a namespace element, or an object id. The
// store derives on-disk paths from these strings, so anything that could
// change the directory structure is rejected.
//
// Returns an error if the component:
//   - is empty
//   - contains a path separator ('/' or '\')
//   - is "." or ".." (directory traversal)
//   - contains a NUL byte
//
// Example usage:
//
//	if err := ValidateComponent(id); err != nil {
//		return dserrors.NewInvalidKey(err.Error())
//	}
func ValidateComponent(component string) error {
	if component == "" {
		return fmt.Errorf("path component cannot be empty")
	}
	if strings.ContainsAny(component, `/\`) {
		return fmt.Errorf("path component %q contains a path separator", component)
	}
	if component == "." || component == ".." {
		return fmt.Errorf("path component %q is a directory traversal", component)
	}
	if strings.ContainsRune(component, 0) {
		return fmt.Errorf("path component contains a NUL byte")
	}
	return nil
}

// ValidatePath validates that a file path is safe and does not contain
// directory traversal attempts.
//
// Example usage:
//
//	if err := ValidatePath(cfg.DataDir, true); err != nil {
//		return fmt.Errorf("invalid data directory: %w", err)
//	}
func ValidatePath(path string, allowAbsolute bool) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	// Clean the path to resolve any . or .. elements
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	if !allowAbsolute && filepath.IsAbs(cleanPath) {
		return fmt.Errorf("absolute paths not allowed: %s", path)
	}

	return nil
}

// SecureJoin safely joins path elements under a base directory and ensures
// the result stays within it. Unlike filepath.Join, this function fails when
// the combined elements would escape the base through directory traversal.
//
// Example usage:
//
//	path, err := SecureJoin(cfg.DataDir, collection, ns...)
//	if err != nil {
//		return fmt.Errorf("invalid key combination: %w", err)
//	}
func SecureJoin(base string, elements ...string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}

	cleanBase := filepath.Clean(base)

	fullPath := filepath.Join(append([]string{cleanBase}, elements...)...)

	if !strings.HasPrefix(fullPath, cleanBase+string(filepath.Separator)) &&
		fullPath != cleanBase {
		return "", fmt.Errorf("path escapes base directory")
	}

	return fullPath, nil
}
