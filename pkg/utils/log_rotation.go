package utils

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotationConfig controls size-based log rotation.
type RotationConfig struct {
	// Filename is the file log output is written to.
	Filename string

	// MaxSizeMB is the size in megabytes at which the file is rotated
	// (0 = never rotate on size).
	MaxSizeMB int64

	// MaxBackups is the number of rotated files to retain (0 = retain all).
	MaxBackups int

	// Compress gzips rotated files.
	Compress bool
}

// LogRotator is an io.Writer that moves its file aside once it reaches a
// size limit and starts a fresh one. Rotated files carry a UTC timestamp
// suffix, so their names sort in rotation order; the oldest are pruned
// past MaxBackups.
type LogRotator struct {
	mu sync.Mutex

	config *RotationConfig
	file   *os.File
	size   int64
}

// NewLogRotator opens (or creates) the configured file and returns a
// rotator writing to it. Parent directories are created as needed.
func NewLogRotator(config *RotationConfig) (*LogRotator, error) {
	if config == nil || config.Filename == "" {
		return nil, fmt.Errorf("log rotation requires a filename")
	}

	lr := &LogRotator{config: config}
	if err := lr.openFile(); err != nil {
		return nil, err
	}
	return lr, nil
}

// Write implements io.Writer, rotating first when the write would cross
// the size limit.
func (lr *LogRotator) Write(p []byte) (int, error) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.shouldRotate(int64(len(p))) {
		if err := lr.rotate(); err != nil {
			return 0, fmt.Errorf("failed to rotate log: %w", err)
		}
	}

	n, err := lr.file.Write(p)
	lr.size += int64(n)
	return n, err
}

// Close closes the current log file. Writes after Close fail.
func (lr *LogRotator) Close() error {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.file == nil {
		return nil
	}
	err := lr.file.Close()
	lr.file = nil
	return err
}

// Rotate moves the current file aside immediately, regardless of size.
func (lr *LogRotator) Rotate() error {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.rotate()
}

func (lr *LogRotator) shouldRotate(writeSize int64) bool {
	if lr.config.MaxSizeMB <= 0 {
		return false
	}
	return lr.size+writeSize >= lr.config.MaxSizeMB*1024*1024
}

func (lr *LogRotator) rotate() error {
	if lr.file != nil {
		if err := lr.file.Close(); err != nil {
			return fmt.Errorf("failed to close current log file: %w", err)
		}
		lr.file = nil
	}

	backup := lr.backupName(time.Now().UTC())
	if err := os.Rename(lr.config.Filename, backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	// Compression and pruning are housekeeping; a failure there must not
	// take logging down with it.
	if lr.config.Compress {
		if err := compressFile(backup); err != nil {
			fmt.Fprintf(os.Stderr, "failed to compress rotated log %s: %v\n", backup, err)
		}
	}
	if err := lr.pruneBackups(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to prune rotated logs: %v\n", err)
	}

	return lr.openFile()
}

func (lr *LogRotator) openFile() error {
	if err := os.MkdirAll(filepath.Dir(lr.config.Filename), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(lr.config.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	lr.file = file
	lr.size = info.Size()
	return nil
}

// backupName derives the rotated filename: the base name with the
// timestamp spliced in before the extension. Nanosecond precision keeps
// rapid rotations from colliding.
func (lr *LogRotator) backupName(timestamp time.Time) string {
	dir := filepath.Dir(lr.config.Filename)
	base := filepath.Base(lr.config.Filename)
	ext := filepath.Ext(base)
	prefix := base[:len(base)-len(ext)]

	return filepath.Join(dir, fmt.Sprintf("%s-%s%s",
		prefix, timestamp.Format("2006-01-02T15-04-05.000000000"), ext))
}

// pruneBackups deletes the oldest rotated files beyond MaxBackups. The
// timestamp in the name sorts lexicographically, so name order is
// rotation order.
func (lr *LogRotator) pruneBackups() error {
	if lr.config.MaxBackups <= 0 {
		return nil
	}

	backups, err := lr.backupNames()
	if err != nil {
		return err
	}
	if len(backups) <= lr.config.MaxBackups {
		return nil
	}

	sort.Strings(backups)
	for _, name := range backups[:len(backups)-lr.config.MaxBackups] {
		full := filepath.Join(filepath.Dir(lr.config.Filename), name)
		if err := os.Remove(full); err != nil {
			fmt.Fprintf(os.Stderr, "failed to remove rotated log %s: %v\n", full, err)
		}
	}
	return nil
}

// backupNames lists the rotated files belonging to this log, compressed
// or not.
func (lr *LogRotator) backupNames() ([]string, error) {
	base := filepath.Base(lr.config.Filename)
	ext := filepath.Ext(base)
	prefix := base[:len(base)-len(ext)] + "-"

	entries, err := os.ReadDir(filepath.Dir(lr.config.Filename))
	if err != nil {
		return nil, err
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if name == base || !strings.HasPrefix(name, prefix) {
			continue
		}
		if strings.HasSuffix(name, ext) || strings.HasSuffix(name, ext+".gz") {
			backups = append(backups, name)
		}
	}
	return backups, nil
}

// compressFile gzips a rotated file in place, removing the original.
func compressFile(filename string) error {
	src, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(filename + ".gz")
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		_ = dst.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	return os.Remove(filename)
}
