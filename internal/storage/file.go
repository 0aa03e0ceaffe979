package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type FileConfig struct {
	Directory string
}

type FileStorage struct {
	directory string
}

func NewFileStorage(ctx context.Context, f FileConfig) (*FileStorage, error) {
	if f.Directory == "" {
		f.Directory = "."
	}
	directory, err := filepath.Abs(f.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", f.Directory, err)
	}
	return &FileStorage{
		directory: directory,
	}, nil
}

func (s *FileStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	path, err := s.resolve(filepath.Join(s.directory, filepath.FromSlash(key)))
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	return path, nil
}

func (s *FileStorage) Get(ctx context.Context, url string) ([]byte, error) {
	path, err := s.resolve(strings.TrimPrefix(url, "file://"))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// resolve rejects paths outside the storage directory.
func (s *FileStorage) resolve(path string) (string, error) {
	path = filepath.Clean(path)
	rel, err := filepath.Rel(s.directory, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside of %s", path, s.directory)
	}
	return path, nil
}
