package store

import (
	"errors"
	"path/filepath"
	"testing"

	dserrors "github.com/dirstore/dirstore/pkg/errors"
	"github.com/dirstore/dirstore/pkg/gateway/memory"
)

func mustLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := NewLayout("data", "tmp")
	if err != nil {
		t.Fatalf("NewLayout() error = %v", err)
	}
	return l
}

func TestNewLayoutValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewLayout("", "tmp"); err == nil {
		t.Error("NewLayout with empty data directory should fail")
	}
	if _, err := NewLayout("data", ""); err == nil {
		t.Error("NewLayout with empty temporary directory should fail")
	}

	l, err := NewLayout("data/", "./tmp")
	if err != nil {
		t.Fatalf("NewLayout() error = %v", err)
	}
	if l.DataDir() != "data" {
		t.Errorf("DataDir() = %q, want cleaned %q", l.DataDir(), "data")
	}
	if l.TempDir() != "tmp" {
		t.Errorf("TempDir() = %q, want cleaned %q", l.TempDir(), "tmp")
	}
}

func TestObjectPath(t *testing.T) {
	t.Parallel()
	l := mustLayout(t)

	tests := []struct {
		name    string
		key     Key
		want    string
		wantErr bool
	}{
		{
			name: "nested namespace",
			key:  Key{Namespace: []string{"0", "1"}, ID: "alice"},
			want: filepath.Join("data", "users", "0", "1", "alice.json"),
		},
		{
			name: "root namespace",
			key:  Key{ID: "alice"},
			want: filepath.Join("data", "users", "alice.json"),
		},
		{
			name: "id with inner dots",
			key:  Key{ID: "alice.v2"},
			want: filepath.Join("data", "users", "alice.v2.json"),
		},
		{
			name:    "empty id",
			key:     Key{Namespace: []string{"0"}},
			wantErr: true,
		},
		{
			name:    "traversal id",
			key:     Key{ID: ".."},
			wantErr: true,
		},
		{
			name:    "separator in namespace element",
			key:     Key{Namespace: []string{"a/b"}, ID: "alice"},
			wantErr: true,
		},
		{
			name:    "traversal namespace element",
			key:     Key{Namespace: []string{".."}, ID: "alice"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.ObjectPath("users", tt.key)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ObjectPath(%v) should fail", tt.key)
				}
				if !dserrors.IsInvalidKey(err) {
					t.Errorf("ObjectPath(%v) error = %v, want INVALID_KEY", tt.key, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ObjectPath(%v) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("ObjectPath(%v) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	if _, err := l.ObjectPath("", Key{ID: "alice"}); !dserrors.IsInvalidKey(err) {
		t.Errorf("ObjectPath with empty collection error = %v, want INVALID_KEY", err)
	}
}

func TestNamespacePath(t *testing.T) {
	t.Parallel()
	l := mustLayout(t)

	got, err := l.NamespacePath("users", nil)
	if err != nil {
		t.Fatalf("NamespacePath() error = %v", err)
	}
	if want := filepath.Join("data", "users"); got != want {
		t.Errorf("NamespacePath(nil) = %q, want %q", got, want)
	}

	got, err = l.NamespacePath("users", []string{"eu", "berlin"})
	if err != nil {
		t.Fatalf("NamespacePath() error = %v", err)
	}
	if want := filepath.Join("data", "users", "eu", "berlin"); got != want {
		t.Errorf("NamespacePath() = %q, want %q", got, want)
	}

	if _, err := l.NamespacePath("users", []string{""}); !dserrors.IsInvalidKey(err) {
		t.Errorf("NamespacePath with empty element error = %v, want INVALID_KEY", err)
	}
}

func TestTempPath(t *testing.T) {
	t.Parallel()
	l := mustLayout(t)

	got, err := l.TempPath("users", "alice", "")
	if err != nil {
		t.Fatalf("TempPath() error = %v", err)
	}
	if want := filepath.Join("tmp", "users-alice.json"); got != want {
		t.Errorf("TempPath() = %q, want %q", got, want)
	}

	got, err = l.TempPath("users", "alice", "f81d4fae")
	if err != nil {
		t.Fatalf("TempPath() error = %v", err)
	}
	if want := filepath.Join("tmp", "users-alice-f81d4fae.json"); got != want {
		t.Errorf("TempPath() with suffix = %q, want %q", got, want)
	}

	if _, err := l.TempPath("users", "../alice", ""); !dserrors.IsInvalidKey(err) {
		t.Errorf("TempPath with traversal id error = %v, want INVALID_KEY", err)
	}
}

func TestTempSuffixDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{DataDir: "data", TempDir: "tmp"}

	plain, err := New(memory.New(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := plain.tempSuffix(); got != "" {
		t.Errorf("default temp suffix = %q, want empty (deterministic staging names)", got)
	}

	unique, err := New(memory.New(), cfg, WithUniqueTempNames())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	first := unique.tempSuffix()
	second := unique.tempSuffix()
	if first == "" || second == "" {
		t.Fatal("unique temp suffix should not be empty")
	}
	if first == second {
		t.Errorf("unique temp suffixes should differ, both were %q", first)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{DataDir: "/var/lib/dirstore/data", TempDir: "/var/lib/dirstore/tmp"}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v for valid config", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty data dir", Config{TempDir: "tmp"}},
		{"empty temp dir", Config{DataDir: "data"}},
		{"traversal in data dir", Config{DataDir: "data/../../etc", TempDir: "tmp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			var se *dserrors.StorageError
			if !errors.As(err, &se) || se.Code != dserrors.ErrCodeInvalidConfig {
				t.Errorf("Validate() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}
