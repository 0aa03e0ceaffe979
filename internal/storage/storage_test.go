package storage_test

import (
	"context"
	"fmt"
	"os"
	"pagediff/internal/storage"
	"path/filepath"
	"regexp"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestObjectKey(t *testing.T) {
	type in struct {
		kind string
		seed string
		ext  string
		time time.Time
	}

	type want struct {
		pattern string
	}

	at := time.Date(2024, 3, 5, 7, 9, 11, 0, time.UTC)

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				"baseline",
				"",
				"png",
				at,
			},
			want{
				`^baseline/e3b0c44298fc1c14/20240305070911-[0-9a-f]{8}\.png$`,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				"diff",
				"",
				"png",
				at.In(time.FixedZone("JST", 9*60*60)),
			},
			want{
				`^diff/e3b0c44298fc1c14/20240305070911-[0-9a-f]{8}\.png$`,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := storage.ObjectKey(in.kind, in.seed, in.ext, in.time)
			if !regexp.MustCompile(want.pattern).MatchString(got) {
				t.Errorf("Expected %q to match %s", got, want.pattern)
			}
		})
	}
}

func TestObjectKey_SameSecond(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 5, 7, 9, 11, 0, time.UTC)
	seen := map[string]bool{}
	for range 100 {
		key := storage.ObjectKey("capture", "https://example.com", "png", at)
		if seen[key] {
			t.Fatalf("Expected unique keys, got %q twice", key)
		}
		seen[key] = true
	}
}

func TestFileStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	s, err := storage.NewFileStorage(ctx, storage.FileConfig{Directory: dir})
	if err != nil {
		t.Fatal(err)
	}

	url, err := s.Put(ctx, "diff/abc/1.png", []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "diff", "abc", "1.png"); url != want {
		t.Errorf("Expected %s, got %s", want, url)
	}

	got, err := s.Get(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte("data"), got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := s.Put(ctx, "diff/abc/1.png", []byte("replaced")); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(ctx, "file://"+url); string(got) != "replaced" {
		t.Errorf("Expected overwritten content, got %q", got)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "diff", "abc"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected no temporary files to remain, got %d entries", len(entries))
	}

	if _, err := s.Put(ctx, "../escape.png", []byte("x")); err == nil {
		t.Error("Expected keys outside the directory to be rejected")
	}
	if _, err := s.Get(ctx, "/etc/passwd"); err == nil {
		t.Error("Expected paths outside the directory to be rejected")
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	for _, location := range []string{dir, "file://" + dir} {
		s, err := storage.Open(ctx, location, "")
		if err != nil {
			t.Fatalf("%s: %v", location, err)
		}
		if _, ok := s.(*storage.FileStorage); !ok {
			t.Errorf("%s: expected file storage, got %T", location, s)
		}
	}

	if _, err := storage.Open(ctx, "ftp://example.com/x", ""); err == nil {
		t.Error("Expected an unsupported scheme to fail")
	}
}
