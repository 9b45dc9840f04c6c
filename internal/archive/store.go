// Package archive uploads and downloads pipeline outputs by name.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrNotFound = errors.New("archive entry not found")
	ErrCorrupt  = errors.New("archive entry checksum mismatch")
)

// Store is an opaque blob store addressed by name.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// PutFile uploads the file at path. An empty name stores it under its base
// name.
func PutFile(ctx context.Context, s Store, path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	if err := s.Put(ctx, name, data); err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}
	return nil
}

// GetFile downloads name into outPath.
func GetFile(ctx context.Context, s Store, name, outPath string) error {
	data, err := s.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}
